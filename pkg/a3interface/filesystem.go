package a3interface

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetArmaDir returns the directory of the running executable, the Arma 3 root when
// loaded by the game. Symlinks are not resolved.
func GetArmaDir() (string, error) {
	executablePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("error getting executable directory: %w", err)
	}
	return filepath.Dir(executablePath), nil
}

// AddonFolder resolves where config, logs and snapshots live: the folder holding
// the module, or armaDir/@addon when the module sits in the Arma root.
func AddonFolder(armaDir, modulePath, addon string) string {
	folder := filepath.Dir(modulePath)
	if modulePath == "" || folder == armaDir {
		folder = filepath.Join(armaDir, "@"+addon)
	}
	return folder
}
