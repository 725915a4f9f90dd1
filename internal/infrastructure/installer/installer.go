// Package installer applies downloaded update packages to the
// installation directory, handling both full and incremental packages.
package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nevna/upwell/internal/domain/entity"
	"github.com/nevna/upwell/internal/logging"
)

const (
	// Directory under the staging root where archives are unpacked.
	extractDirName = "extract"

	// Directory inside the target where replaced files are parked.
	oldDirName = "old"

	// Marker file identifying an incremental package.
	changesFileName = "changes.json"

	// File permission for directories.
	dirPerm = 0o755
)

// changesManifest is the incremental-package marker shipped inside the
// archive. All fields default empty.
type changesManifest struct {
	Added    []string `json:"added"`
	Deleted  []string `json:"deleted"`
	Modified []string `json:"modified"`
}

// Installer unpacks and applies update artifacts.
type Installer struct {
	stagingRoot string
}

// New creates an installer that unpacks archives under stagingRoot.
func New(stagingRoot string) *Installer {
	return &Installer{stagingRoot: stagingRoot}
}

// Install verifies, extracts, and applies the downloaded artifact to
// targetDir. The presence of changes.json in the package selects the
// incremental strategy; otherwise the package is applied as a full
// replacement.
func (i *Installer) Install(ctx context.Context, rec *entity.PendingUpdate, targetDir string) error {
	log := logging.FromContext(ctx)

	if rec == nil || rec.SavePath == "" {
		return errors.New("no downloaded artifact to install")
	}
	if _, err := os.Stat(rec.SavePath); err != nil {
		return fmt.Errorf("downloaded artifact missing: %w", err)
	}

	if rec.SHA256 != "" {
		if err := verifyChecksum(rec.SavePath, rec.SHA256); err != nil {
			return err
		}
	}

	if err := checkWritable(targetDir); err != nil {
		return err
	}

	extractDir := filepath.Join(i.stagingRoot, extractDirName, rec.VersionName)
	if err := os.RemoveAll(extractDir); err != nil {
		return fmt.Errorf("failed to reset extract directory: %w", err)
	}
	if err := extractArchive(rec.SavePath, extractDir); err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(extractDir) }()

	changes, err := readChanges(extractDir)
	if err != nil {
		return err
	}

	if changes != nil {
		log.Info().
			Str("version", rec.VersionName).
			Int("deleted", len(changes.Deleted)).
			Msg("applying incremental update")
		return applyIncremental(extractDir, targetDir, changes.Deleted)
	}

	log.Info().Str("version", rec.VersionName).Msg("applying full update")
	return applyFull(extractDir, targetDir)
}

// CleanupLeftovers removes files parked in old/ by a previous
// installation. Best effort: failures are logged and never fatal.
func (*Installer) CleanupLeftovers(ctx context.Context, targetDir string) {
	log := logging.FromContext(ctx)

	oldDir := filepath.Join(targetDir, oldDirName)
	if _, err := os.Stat(oldDir); err != nil {
		return
	}

	deleted, failed := removeDirContents(oldDir)
	if deleted > 0 || failed > 0 {
		if failed == 0 {
			log.Info().Int("deleted", deleted).Msg("cleaned up old update leftovers")
		} else {
			log.Warn().Int("deleted", deleted).Int("failed", failed).Msg("partially cleaned up old update leftovers")
		}
	}
}

// readChanges loads changes.json from the extracted package, returning
// nil when the package carries no incremental marker.
func readChanges(extractDir string) (*changesManifest, error) {
	content, err := os.ReadFile(filepath.Join(extractDir, changesFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", changesFileName, err)
	}

	var changes changesManifest
	if err := json.Unmarshal(content, &changes); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", changesFileName, err)
	}
	return &changes, nil
}

// verifyChecksum verifies the SHA256 checksum of a file.
func verifyChecksum(filePath, expectedHash string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("failed to compute checksum: %w", err)
	}

	actualHash := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(actualHash, expectedHash) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedHash, actualHash)
	}

	return nil
}

// removeDirContents deletes everything under dir recursively, one
// entry at a time, returning (deleted, failed) counts. The directory
// itself is removed when it ends up empty.
func removeDirContents(dir string) (deleted, failed int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			d, f := removeDirContents(path)
			deleted += d
			failed += f
			if err := os.Remove(path); err == nil {
				deleted++
			}
			continue
		}
		if err := os.Remove(path); err != nil {
			failed++
		} else {
			deleted++
		}
	}

	_ = os.Remove(dir)
	return deleted, failed
}
