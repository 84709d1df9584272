package engine

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultScriptName is reported for the embedded loopback bridge.
const DefaultScriptName = "bridge.js"

//go:embed bridge.js
var DefaultScript string

// LoadScript reads the bridge bundle at path, or returns the embedded
// loopback bridge when path is empty.
func LoadScript(path string) (script string, name string, err error) {
	if path == "" {
		return DefaultScript, DefaultScriptName, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read bridge script: %w", err)
	}
	return string(data), filepath.Base(path), nil
}
