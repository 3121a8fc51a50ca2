package util

import "os"

// CheckFileExists reports whether fpath exists and can be stat-ed.
func CheckFileExists(fpath string) bool {
	_, err := os.Stat(fpath)
	return err == nil
}
