// Package session manages per-editor workspace directories: one markdown
// document, its pasted images, and access-time metadata with TTL expiry.
//
// Session IDs are capability tokens. They are canonical UUID4 strings,
// validated strictly before touching the filesystem, which also shuts the
// door on path tricks.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
)

// Workspace layout constants.
const (
	DocumentFilename = "document.md"
	ImagesSubdir     = "images"
	metaFilename     = ".meta.json"
)

// allowedImageExts are the extensions accepted for paste and zip import.
var allowedImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".svg": true,
}

// Sentinel errors for session operations.
var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrSessionNotFound  = errors.New("session not found")
	ErrPathTraversal    = errors.New("path traversal attempt")
	ErrImageType        = errors.New("unsupported image type")
)

// Store manages all workspaces under one root directory.
type Store struct {
	root string
	ttl  time.Duration // zero disables expiry
}

// NewStore creates the root directory if needed and returns a Store.
func NewStore(root string, ttl time.Duration) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspaces root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("creating workspaces root: %w", err)
	}
	return &Store{root: abs, ttl: ttl}, nil
}

// Root returns the absolute workspaces root directory.
func (s *Store) Root() string { return s.root }

// Workspace is the on-disk layout of one session.
type Workspace struct {
	ID           string
	Root         string
	DocumentPath string
	ImagesDir    string
	metaPath     string
}

// meta tracks workspace lifetime. Times are unix seconds.
type meta struct {
	CreatedAt  int64 `json:"created_at"`
	LastAccess int64 `json:"last_access"`
	Version    int   `json:"version"`
}

// NormalizeID validates and canonicalizes a session id. Only canonical
// UUID4 strings are accepted.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(strings.ToLower(id))
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.Version() != 4 || parsed.String() != id {
		return "", ErrInvalidSessionID
	}
	return id, nil
}

// workspace builds the path layout for a validated id.
func (s *Store) workspace(id string) *Workspace {
	root := filepath.Join(s.root, id)
	return &Workspace{
		ID:           id,
		Root:         root,
		DocumentPath: filepath.Join(root, DocumentFilename),
		ImagesDir:    filepath.Join(root, ImagesSubdir),
		metaPath:     filepath.Join(root, metaFilename),
	}
}

// Create allocates a fresh workspace with a new session id.
func (s *Store) Create() (*Workspace, error) {
	ws := s.workspace(uuid.NewString())
	if err := s.ensureDirs(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Get returns the workspace for an existing session.
func (s *Store) Get(id string) (*Workspace, error) {
	sid, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}
	ws := s.workspace(sid)
	if _, err := os.Stat(ws.Root); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sid)
	}
	return ws, nil
}

// Touch refreshes the session's last access time.
func (s *Store) Touch(id string) error {
	ws, err := s.Get(id)
	if err != nil {
		return err
	}
	m := s.loadMeta(ws)
	m.LastAccess = time.Now().Unix()
	return s.writeMeta(ws, m)
}

// Delete removes a session workspace. Deleting a missing session is a no-op.
func (s *Store) Delete(id string) error {
	sid, err := NormalizeID(id)
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.root, sid))
}

// SaveDocument writes the markdown document and touches the session.
func (s *Store) SaveDocument(id, markdown string) error {
	ws, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(ws.DocumentPath, []byte(markdown), 0o640); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return s.Touch(id)
}

// LoadDocument reads the markdown document. A session without a saved
// document yields an empty string.
func (s *Store) LoadDocument(id string) (string, error) {
	ws, err := s.Get(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(ws.DocumentPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}

// SavePastedImage stores pasted image bytes under a fresh uuid basename and
// returns the relative URL to embed in markdown (images/<uuid>.<ext>). The
// extension comes from content sniffing, with the declared content type as
// a fallback for SVG, which has no magic number.
func (s *Store) SavePastedImage(id string, data []byte, contentType string) (string, error) {
	ws, err := s.Get(id)
	if err != nil {
		return "", err
	}

	ext, err := sniffImageExt(data, contentType)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	dest, err := SafeJoin(ws.ImagesDir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(ws.ImagesDir, 0o750); err != nil {
		return "", fmt.Errorf("creating images dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o640); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := s.Touch(id); err != nil {
		return "", err
	}
	return ImagesSubdir + "/" + name, nil
}

// SaveImageAs stores image bytes under a caller-chosen basename, used by
// ZIP import where filenames must survive so document references resolve.
func (s *Store) SaveImageAs(id, basename string, data []byte) error {
	ws, err := s.Get(id)
	if err != nil {
		return err
	}
	if !IsSafeBasename(basename) || !allowedImageExts[strings.ToLower(filepath.Ext(basename))] {
		return fmt.Errorf("%w: %q", ErrPathTraversal, basename)
	}
	dest, err := SafeJoin(ws.ImagesDir, basename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ws.ImagesDir, 0o750); err != nil {
		return fmt.Errorf("creating images dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o640); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return s.Touch(id)
}

// ImagePath resolves a stored image basename to its path, rejecting
// anything but a plain allowed-extension filename inside the session.
func (s *Store) ImagePath(id, basename string) (string, error) {
	ws, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if !IsSafeBasename(basename) || !allowedImageExts[strings.ToLower(filepath.Ext(basename))] {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, basename)
	}
	return SafeJoin(ws.ImagesDir, basename)
}

// Images returns the contents of all stored images by basename.
func (s *Store) Images(id string) (map[string][]byte, error) {
	ws, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(ws.ImagesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing images: %w", err)
	}

	images := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() || !allowedImageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path, err := SafeJoin(ws.ImagesDir, e.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path) // #nosec G304 -- constrained by SafeJoin
		if err != nil {
			return nil, fmt.Errorf("reading image %s: %w", e.Name(), err)
		}
		images[e.Name()] = data
	}
	return images, nil
}

// CleanupExpired deletes sessions whose last access is older than the TTL.
// Returns the number of deleted workspaces. A zero TTL disables expiry.
func (s *Store) CleanupExpired() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("scanning workspaces root: %w", err)
	}

	now := time.Now().Unix()
	cutoff := int64(s.ttl / time.Second)
	deleted := 0
	for _, e := range entries {
		if !s.isWorkspaceDir(e) {
			continue
		}
		ws := s.workspace(e.Name())
		m := s.loadMeta(ws)
		last := m.LastAccess
		if last == 0 {
			last = m.CreatedAt
		}
		if now-last > cutoff {
			if err := os.RemoveAll(ws.Root); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// DeleteAll removes every session workspace under the root except the given
// ids (best-effort; invalid keep ids are ignored). Only directories that
// look like our workspaces are touched.
func (s *Store) DeleteAll(keep ...string) (int, error) {
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		if sid, err := NormalizeID(id); err == nil {
			keepSet[sid] = true
		}
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("scanning workspaces root: %w", err)
	}

	deleted := 0
	for _, e := range entries {
		if keepSet[e.Name()] || !s.isWorkspaceDir(e) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// isWorkspaceDir reports whether the entry is one of our session
// workspaces: a valid session id name containing a meta file.
func (s *Store) isWorkspaceDir(e os.DirEntry) bool {
	if !e.IsDir() {
		return false
	}
	if _, err := NormalizeID(e.Name()); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, e.Name(), metaFilename))
	return err == nil && !info.IsDir()
}

// ensureDirs creates the workspace layout and seeds metadata.
func (s *Store) ensureDirs(ws *Workspace) error {
	if err := os.MkdirAll(ws.ImagesDir, 0o750); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	if _, err := os.Stat(ws.metaPath); os.IsNotExist(err) {
		now := time.Now().Unix()
		return s.writeMeta(ws, meta{CreatedAt: now, LastAccess: now, Version: 1})
	}
	return nil
}

// loadMeta reads workspace metadata, falling back to fresh values on any
// error so a corrupt meta file never blocks cleanup.
func (s *Store) loadMeta(ws *Workspace) meta {
	data, err := os.ReadFile(ws.metaPath)
	if err != nil {
		now := time.Now().Unix()
		return meta{CreatedAt: now, LastAccess: now, Version: 1}
	}
	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		now := time.Now().Unix()
		return meta{CreatedAt: now, LastAccess: now, Version: 1}
	}
	return m
}

func (s *Store) writeMeta(ws *Workspace, m meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding meta: %w", err)
	}
	if err := os.WriteFile(ws.metaPath, data, 0o640); err != nil {
		return fmt.Errorf("writing meta: %w", err)
	}
	return nil
}

// sniffImageExt determines the stored extension from content bytes, with
// the declared content type deciding only SVG (no magic number to sniff).
func sniffImageExt(data []byte, contentType string) (string, error) {
	kind, _ := filetype.Match(data)
	switch kind {
	case matchers.TypePng:
		return ".png", nil
	case matchers.TypeJpeg:
		return ".jpg", nil
	case matchers.TypeGif:
		return ".gif", nil
	case matchers.TypeWebp:
		return ".webp", nil
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct == "image/svg+xml" {
		return ".svg", nil
	}
	return "", fmt.Errorf("%w: %q", ErrImageType, contentType)
}

// IsSafeBasename allows only simple filenames (no directory components).
func IsSafeBasename(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// SafeJoin joins parts under base and ensures the result stays within base.
// Defends against traversal when serving or extracting user-controlled
// paths.
func SafeJoin(base string, parts ...string) (string, error) {
	joined := filepath.Join(append([]string{base}, parts...)...)
	resolved := filepath.Clean(joined)
	if resolved != filepath.Clean(base) && !strings.HasPrefix(resolved, filepath.Clean(base)+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return resolved, nil
}

// imageURLPattern matches markdown and inline HTML image references.
var imageURLPattern = regexp.MustCompile(`(?i)!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)|<img\s+[^>]*?src=["']([^"']+)["']`)

// ReferencedImages returns the basenames of workspace images referenced in
// the markdown, i.e. relative images/<name> URLs with allowed extensions.
// Remote and data URLs are ignored.
func ReferencedImages(markdown string) map[string]bool {
	referenced := make(map[string]bool)
	for _, m := range imageURLPattern.FindAllStringSubmatch(markdown, -1) {
		url := m[1]
		if url == "" {
			url = m[2]
		}
		url = strings.TrimSpace(url)
		lowered := strings.ToLower(url)
		if lowered == "" ||
			strings.HasPrefix(lowered, "http://") ||
			strings.HasPrefix(lowered, "https://") ||
			strings.HasPrefix(lowered, "data:") {
			continue
		}
		if !strings.HasPrefix(lowered, ImagesSubdir+"/") {
			continue
		}
		// Strip any query/fragment before basename extraction.
		url = strings.SplitN(url, "?", 2)[0]
		url = strings.SplitN(url, "#", 2)[0]
		base := filepath.Base(url)
		if base == "" || base == "." {
			continue
		}
		if allowedImageExts[strings.ToLower(filepath.Ext(base))] {
			referenced[base] = true
		}
	}
	return referenced
}
