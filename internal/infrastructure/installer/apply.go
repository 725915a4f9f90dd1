package installer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// applyIncremental moves the files listed as deleted into old/, then
// copies the new package contents over the target directory.
func applyIncremental(extractDir, targetDir string, deletedFiles []string) error {
	for _, file := range deletedFiles {
		filePath := filepath.Join(targetDir, filepath.FromSlash(file))
		if _, err := os.Stat(filePath); err != nil {
			continue
		}
		if err := moveToOld(filePath, targetDir); err != nil {
			return err
		}
	}

	return copyDirContents(extractDir, targetDir, changesFileName)
}

// applyFull parks target entries colliding with the new package root
// in old/, then copies the package contents over.
func applyFull(extractDir, targetDir string) error {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return fmt.Errorf("failed to read extract directory: %w", err)
	}

	for _, entry := range entries {
		if entry.Name() == changesFileName {
			continue
		}
		targetItem := filepath.Join(targetDir, entry.Name())
		if _, err := os.Stat(targetItem); err != nil {
			continue
		}
		if err := moveToOld(targetItem, targetDir); err != nil {
			return err
		}
	}

	return copyDirContents(extractDir, targetDir, changesFileName)
}

// moveToOld renames source into targetDir/old, suffixing .bakNN when
// the name is already taken. Files under old/ are swept on a later
// startup, after the new binary has proven it can run.
func moveToOld(source, targetDir string) error {
	oldDir := filepath.Join(targetDir, oldDirName)
	if err := os.MkdirAll(oldDir, dirPerm); err != nil {
		return fmt.Errorf("failed to create old directory: %w", err)
	}

	name := filepath.Base(source)
	dest := filepath.Join(oldDir, name)
	if _, err := os.Stat(dest); err == nil {
		for i := 1; i <= 99; i++ {
			candidate := filepath.Join(oldDir, fmt.Sprintf("%s.bak%02d", name, i))
			dest = candidate
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				break
			}
		}
		// If all 99 backups exist, the last one is overwritten.
	}

	if err := os.Rename(source, dest); err != nil {
		return fmt.Errorf("failed to move %s aside: %w", source, err)
	}
	return nil
}

// copyDirContents copies the contents of src into dst (not src
// itself), skipping the named file at the root level.
func copyDirContents(src, dst, skipName string) error {
	if err := os.MkdirAll(dst, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		if entry.Name() == skipName {
			continue
		}

		srcItem := filepath.Join(src, entry.Name())
		dstItem := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDirRecursive(srcItem, dstItem); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcItem, dstItem); err != nil {
			return err
		}
	}

	return nil
}

func copyDirRecursive(src, dst string) error {
	if err := os.MkdirAll(dst, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		srcItem := filepath.Join(src, entry.Name())
		dstItem := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDirRecursive(srcItem, dstItem); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcItem, dstItem); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to copy %s -> %s: %w", src, dst, err)
	}
	return nil
}
