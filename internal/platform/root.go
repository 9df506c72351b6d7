package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/notebook/pkg/adapters/fs"
)

// ConfigFile marks a notebook root for FindRoot. Its content is not read.
const ConfigFile = "notebook.yaml"

// FindRoot looks upwards from startDir for a notebook root.
// Indicators are: the .notebook directory, a .git directory, or notebook.yaml.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, fs.DefaultSystemDir) || hasFile(dir, ".git") || hasFile(dir, ConfigFile) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("notebook root not found above %s", abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
