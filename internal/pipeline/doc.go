// Package pipeline implements the Markdown-to-HTML conversion stages that
// run before pagination:
//   - Markdown preprocessing (line normalization, highlight syntax,
//     \newpage manual break directives)
//   - Markdown to HTML conversion via Goldmark
//   - CSS injection and final paged-document assembly
//   - Table of contents entry collection from heading blocks
//
// Pagination itself lives in internal/paginate and measurement/PDF rendering
// in internal/chromium. This separation keeps the pipeline focused on
// document structure and content, while the engine handles page geometry and
// browser-based rendering concerns.
package pipeline
