package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirLoader loads styles from a directory tree laid out like the embedded
// set (styles/<name>.css). Falls back to the embedded assets for names the
// directory does not provide.
type DirLoader struct {
	base     string
	fallback *EmbeddedLoader
}

// NewDirLoader validates the base path and creates a DirLoader.
func NewDirLoader(base string) (*DirLoader, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrInvalidAssetPath, base)
	}
	return &DirLoader{base: base, fallback: NewEmbeddedLoader()}, nil
}

// LoadStyle loads styles/<name>.css from the directory, falling back to the
// embedded set.
func (d *DirLoader) LoadStyle(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}

	path := filepath.Join(d.base, "styles", name+".css")
	content, err := os.ReadFile(path) // #nosec G304 -- constrained by ValidateAssetName
	if err != nil {
		return d.fallback.LoadStyle(name)
	}
	return string(content), nil
}

// Compile-time interface check.
var _ AssetLoader = (*DirLoader)(nil)
