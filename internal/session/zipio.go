package session

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Sentinel errors for zip import.
var (
	ErrZipInvalid        = errors.New("invalid ZIP")
	ErrZipUnsafePath     = errors.New("unsafe path in ZIP")
	ErrZipMarkdownCount  = errors.New("ZIP must contain exactly one markdown file")
	ErrZipDuplicateImage = errors.New("duplicate image filename in ZIP")
)

// markdownExts are accepted document extensions inside an import ZIP.
var markdownExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// ImportedZip is the validated content of an import ZIP. Nothing is written
// to disk; the caller decides the destination.
type ImportedZip struct {
	Markdown string
	Images   map[string][]byte // basename -> bytes
}

// ImportZip validates and parses a ZIP for import:
//   - exactly one markdown file (.md/.markdown/.txt)
//   - images only with allowed extensions, no duplicates after flattening
//   - no zip slip (absolute paths, "..", drive letters)
//
// Other member files are ignored rather than extracted.
func ImportZip(data []byte) (*ImportedZip, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrZipInvalid, err)
	}

	var mdMembers []*zip.File
	images := make(map[string][]byte)

	for _, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() {
			continue
		}
		if isBadZipMember(name) {
			return nil, fmt.Errorf("%w: %q", ErrZipUnsafePath, name)
		}

		ext := strings.ToLower(path.Ext(name))
		switch {
		case markdownExts[ext]:
			mdMembers = append(mdMembers, f)
		case allowedImageExts[ext]:
			// Images are flattened to images/<basename> on import.
			base := path.Base(name)
			if _, dup := images[base]; dup {
				return nil, fmt.Errorf("%w: %q", ErrZipDuplicateImage, base)
			}
			content, err := readZipMember(f)
			if err != nil {
				return nil, err
			}
			images[base] = content
		}
	}

	if len(mdMembers) != 1 {
		return nil, ErrZipMarkdownCount
	}

	raw, err := readZipMember(mdMembers[0])
	if err != nil {
		return nil, err
	}

	return &ImportedZip{Markdown: decodeText(raw), Images: images}, nil
}

// BuildExportZip builds an export ZIP with document.md and images/ entries.
func BuildExportZip(markdown string, images map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(DocumentFilename)
	if err != nil {
		return nil, fmt.Errorf("creating zip entry: %w", err)
	}
	if _, err := w.Write([]byte(markdown)); err != nil {
		return nil, fmt.Errorf("writing document entry: %w", err)
	}

	for base, data := range images {
		if !allowedImageExts[strings.ToLower(filepath.Ext(base))] || !IsSafeBasename(base) {
			continue
		}
		w, err := zw.Create(ImagesSubdir + "/" + base)
		if err != nil {
			return nil, fmt.Errorf("creating zip entry: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("writing image entry: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip: %w", err)
	}
	return buf.Bytes(), nil
}

// rewritePattern matches markdown image syntax and inline HTML img tags.
var rewritePattern = regexp.MustCompile(`(?i)(!\[[^\]]*\]\()([^)\s]+)([^)]*\))|(<img\b[^>]*?\ssrc=)(["'])([^"']+)(["'])`)

// RewriteImageURLs rewrites local image references to images/<basename> so
// imported images (always written to the workspace images dir) resolve even
// if the markdown referenced a different subpath inside the ZIP. Remote and
// data URLs, and basenames not present in the import, are left alone.
func RewriteImageURLs(markdown string, basenames map[string][]byte) string {
	if markdown == "" || len(basenames) == 0 {
		return markdown
	}

	lower := make(map[string]string, len(basenames))
	for b := range basenames {
		lower[strings.ToLower(b)] = b
	}

	rewrite := func(url string) string {
		u := strings.TrimSpace(url)
		lowered := strings.ToLower(u)
		if strings.HasPrefix(lowered, "http://") ||
			strings.HasPrefix(lowered, "https://") ||
			strings.HasPrefix(lowered, "data:") {
			return url
		}
		core := strings.SplitN(u, "?", 2)[0]
		core = strings.SplitN(core, "#", 2)[0]
		base := path.Base(core)
		if base == "" || base == "." {
			return url
		}
		hit, ok := lower[strings.ToLower(base)]
		if !ok {
			return url
		}
		return ImagesSubdir + "/" + hit
	}

	return rewritePattern.ReplaceAllStringFunc(markdown, func(m string) string {
		groups := rewritePattern.FindStringSubmatch(m)
		if groups[2] != "" {
			return groups[1] + rewrite(groups[2]) + groups[3]
		}
		return groups[4] + groups[5] + rewrite(groups[6]) + groups[7]
	})
}

// isBadZipMember applies zip slip defenses.
func isBadZipMember(name string) bool {
	if strings.TrimSpace(name) == "" {
		return true
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return true
	}
	// Block drive letters and other schemes.
	if strings.Contains(name, ":") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// readZipMember extracts one member's bytes.
func readZipMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", ErrZipInvalid, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrZipInvalid, f.Name, err)
	}
	return data, nil
}

// decodeText decodes markdown bytes: UTF-8 (with BOM stripped) when valid,
// Windows-1252 as the legacy fallback.
func decodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, []byte("�")))
	}
	return string(decoded)
}
