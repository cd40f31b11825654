// Package ops backs up and restores the data directory.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tsadaash/internal/store"
)

var (
	ErrNotSQLite      = errors.New("snapshot needs a sqlite database")
	ErrTargetNotEmpty = errors.New("restore target is not empty")
)

// SQLite sidecar files are never archived; a snapshot replaces them.
var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

func isSidecar(name string) bool {
	for _, s := range sidecarSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// SnapshotSQLite writes a consistent copy of the open database to dst with
// VACUUM INTO. dst must not exist yet.
func SnapshotSQLite(ctx context.Context, db *store.DB, dst string) error {
	if db == nil || db.Driver != store.DriverSQLite {
		return ErrNotSQLite
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("snapshot target exists: %s", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return nil
}

// Backup archives dataDir while the application runs. For SQLite the live
// database file at dbPath is swapped for a fresh snapshot.
func Backup(ctx context.Context, db *store.DB, dataDir, dbPath, archivePath string) error {
	if db == nil || db.Driver != store.DriverSQLite || dbPath == "" {
		return BackupDataDir(dataDir, archivePath)
	}

	rel, err := filepath.Rel(filepath.Clean(dataDir), filepath.Clean(dbPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("database %s is outside the data directory %s", dbPath, dataDir)
	}

	tmp, err := os.MkdirTemp("", "tsadaash-snapshot-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	snap := filepath.Join(tmp, filepath.Base(dbPath))
	if err := SnapshotSQLite(ctx, db, snap); err != nil {
		return err
	}
	return backupDataDir(dataDir, archivePath, map[string]string{filepath.ToSlash(rel): snap})
}

// BackupDataDir archives srcDir as-is. Use Backup while the database is open.
func BackupDataDir(srcDir, archivePath string) error {
	return backupDataDir(srcDir, archivePath, nil)
}

// backupDataDir writes srcDir to a tar.gz. replace maps archive paths to
// files that stand in for the on-disk originals.
func backupDataDir(srcDir, archivePath string, replace map[string]string) error {
	srcDir = filepath.Clean(strings.TrimSpace(srcDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if srcDir == "" || archivePath == "" {
		return fmt.Errorf("srcDir and archivePath are required")
	}
	info, err := os.Stat(srcDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source is not a directory: %s", srcDir)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == srcDir || d.Type()&os.ModeSymlink != 0 || isSidecar(d.Name()) {
			return nil
		}
		// An archive written inside the tree it archives is skipped.
		if abs, err := filepath.Abs(path); err == nil {
			if out, err := filepath.Abs(archivePath); err == nil && abs == out {
				return nil
			}
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		from := path
		if r, ok := replace[rel]; ok {
			from = r
		}
		info, err := os.Stat(from)
		if err != nil {
			return err
		}
		return addEntry(tw, rel, from, info)
	})

	// Close in order so every error surfaces.
	errs := []error{walkErr, tw.Close(), gz.Close(), f.Close()}
	if err := errors.Join(errs...); err != nil {
		_ = os.Remove(archivePath)
		return err
	}
	return nil
}

func addEntry(tw *tar.Writer, rel, from string, info fs.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	if info.IsDir() && !strings.HasSuffix(hdr.Name, "/") {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(tw, src)
	return err
}

// RestoreDataDir unpacks an archive into an empty or missing targetDir.
func RestoreDataDir(archivePath, targetDir string) error {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if archivePath == "" || targetDir == "" {
		return fmt.Errorf("archivePath and targetDir are required")
	}
	if entries, err := os.ReadDir(targetDir); err == nil && len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrTargetNotEmpty, targetDir)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		rel, err := sanitizeArchiveRelPath(hdr.Name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(targetDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(outPath, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			dst, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(dst, tr); err != nil {
				_ = dst.Close()
				return err
			}
			if err := dst.Close(); err != nil {
				return err
			}
		default:
			// links and devices are not part of a data directory
		}
	}

	return nil
}

func sanitizeArchiveRelPath(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "." || name == "" {
		return "", fmt.Errorf("invalid archive entry path")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid absolute archive entry path: %s", name)
	}
	if strings.HasPrefix(name, ".."+string(filepath.Separator)) || name == ".." {
		return "", fmt.Errorf("invalid archive entry path traversal: %s", name)
	}
	return name, nil
}

// DirDigest hashes every regular file under root with its relative path.
// SQLite sidecars are ignored, matching what a backup contains.
func DirDigest(root string) (string, error) {
	root = filepath.Clean(root)
	entries := []string{}
	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isSidecar(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	}); err != nil {
		return "", err
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, rel := range entries {
		_, _ = io.WriteString(h, rel)
		_, _ = io.WriteString(h, "\n")
		b, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		if _, err := h.Write(b); err != nil {
			return "", err
		}
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
