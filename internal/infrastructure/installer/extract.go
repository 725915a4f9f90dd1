package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Maximum size for a single extracted entry - prevents
	// decompression bombs.
	maxEntrySize = 1 << 30 // 1GB

	// File permission for extracted files without mode bits.
	filePerm = 0o644
)

// extractArchive unpacks the artifact into destDir, dispatching on the
// archive extension.
func extractArchive(archivePath, destDir string) error {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(archivePath, destDir)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz(archivePath, destDir)
	}
	return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
}

// sanitizeArchivePath validates an archive entry name to prevent path
// traversal and returns the resolved destination path.
func sanitizeArchivePath(name, destDir string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))

	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}

	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("path traversal detected: %s", name)
		}
	}

	fullPath := filepath.Join(destDir, cleaned)
	absDestDir, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute dest path: %w", err)
	}
	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute full path: %w", err)
	}

	if !strings.HasPrefix(absFullPath, absDestDir+string(filepath.Separator)) && absFullPath != absDestDir {
		return "", fmt.Errorf("path escapes destination directory: %s", name)
	}

	return fullPath, nil
}

func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = file.Close() }()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return fmt.Errorf("failed to create extract directory: %w", err)
	}

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}

		outPath, err := sanitizeArchivePath(header.Name, destDir)
		if err != nil {
			return fmt.Errorf("invalid tar entry: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(outPath, dirPerm); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeEntry(outPath, tr, os.FileMode(header.Mode)); err != nil {
				return err
			}
		default:
			// Symlinks and special files are not part of update packages.
			continue
		}
	}

	return nil
}

func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return fmt.Errorf("failed to create extract directory: %w", err)
	}

	for _, entry := range reader.File {
		outPath, err := sanitizeArchivePath(entry.Name, destDir)
		if err != nil {
			return fmt.Errorf("invalid zip entry: %w", err)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(outPath, dirPerm); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		src, err := entry.Open()
		if err != nil {
			return fmt.Errorf("failed to open zip entry: %w", err)
		}
		writeErr := writeEntry(outPath, src, entry.Mode())
		_ = src.Close()
		if writeErr != nil {
			return writeErr
		}
	}

	return nil
}

// writeEntry writes one archive entry to disk, bounding the copy to
// guard against decompression bombs.
func writeEntry(outPath string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(outPath), dirPerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = filePerm
	}

	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.CopyN(outFile, src, maxEntrySize+1)
	if closeErr := outFile.Close(); closeErr != nil && (err == nil || errors.Is(err, io.EOF)) {
		err = closeErr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		_ = os.Remove(outPath)
		return fmt.Errorf("failed to extract %s: %w", filepath.Base(outPath), err)
	}
	if written > maxEntrySize {
		_ = os.Remove(outPath)
		return fmt.Errorf("entry %s exceeds maximum size", filepath.Base(outPath))
	}

	return nil
}
