package internal

import (
	"os"
	"path/filepath"
)

// FullPathname makes filename absolute by joining it with the current
// working directory if necessary.
func FullPathname(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	wd, err := os.Getwd()
	return filepath.Join(wd, filename), err
}
