package applier

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeArtifact persists a debugging artifact (screenshot or page markup)
// under the artifacts directory, creating it on first use.
func writeArtifact(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
