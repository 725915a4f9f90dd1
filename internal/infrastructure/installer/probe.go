package installer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// checkWritable verifies the target directory exists and is writable
// by the current process before any file is moved.
func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("installation directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("installation target %s is not a directory", dir)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("installation directory %s is not writable: %w", dir, err)
	}
	return nil
}
