package main

import (
	"os"
	"path/filepath"
)

// exeDir returns the directory containing the running executable, so
// config/ and logs/ default next to the binary regardless of the working
// directory a scheduler launches it from.
func exeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
