// Package assets loads stylesheets from the embedded set or from a
// user-supplied directory.
package assets

import (
	"errors"
	"strings"
)

// DefaultStyleName is the built-in stylesheet applied when none is chosen.
const DefaultStyleName = "default"

// Sentinel errors for asset operations.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)

// AssetLoader loads named stylesheets.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
}

// ValidateAssetName rejects names that could escape the asset directory.
func ValidateAssetName(name string) error {
	if name == "" {
		return ErrInvalidAssetName
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return ErrInvalidAssetName
	}
	return nil
}
