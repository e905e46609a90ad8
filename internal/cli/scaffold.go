package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/five82/kadai/internal/config"
)

const sampleAction = `#!/bin/bash
# kadai:name Hello World
# kadai:emoji 👋
# kadai:description A sample action, edit or delete this file

echo "Hello from kadai!"
echo "Add your own scripts to .kadai/actions/ to get started."
`

// Scaffold creates dir/.kadai/actions with a sample action and returns the
// .kadai directory. An existing hello.sh is left alone.
func Scaffold(dir string) (string, error) {
	projectDir := filepath.Join(dir, config.DirName)
	actionsDir := filepath.Join(projectDir, "actions")
	if err := os.MkdirAll(actionsDir, 0o755); err != nil {
		return "", fmt.Errorf("create actions dir: %w", err)
	}

	sample := filepath.Join(actionsDir, "hello.sh")
	file, err := os.OpenFile(sample, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o755)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return projectDir, nil
		}
		return "", fmt.Errorf("create sample action: %w", err)
	}
	if _, err := file.WriteString(sampleAction); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write sample action: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("write sample action: %w", err)
	}
	return projectDir, nil
}
