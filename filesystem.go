package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

// FileRecord describes one file on either side of the sync. ContentHash is a
// lowercase hex MD5, or empty when the remote hash cannot be compared.
type FileRecord struct {
	Path        RelPath
	Size        int64
	ContentHash string
}

type Inventory map[RelPath]FileRecord

func (inv Inventory) Keys() []RelPath {
	keys := make([]RelPath, 0, len(inv))
	for k := range inv {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type scanFunc func(ctx context.Context, root string, excludes *ExcludeList) (Inventory, []ItemFailure, error)

// ScanLocal walks root and hashes every regular file below it. Symlinks are
// never followed or recorded. Files that cannot be read end up in the returned
// failures instead of aborting the walk.
func ScanLocal(ctx context.Context, root string, excludes *ExcludeList) (Inventory, []ItemFailure, error) {
	info, statErr := os.Stat(root)
	if statErr != nil {
		return nil, nil, &ScanError{Root: root, Err: statErr}
	}
	if !info.IsDir() {
		return nil, nil, &ScanError{Root: root, Err: fmt.Errorf("not a directory")}
	}

	inventory := make(Inventory)
	failures := make([]ItemFailure, 0)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			// unreadable directory or entry; keep walking the rest of the tree
			log.Warn(fmt.Sprintf("Unable to read %s: %s", path, err))
			failures = append(failures, ItemFailure{Path: rel, Op: OpScan, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if excludes.excludesDir(rel) {
				log.Debug(fmt.Sprintf("%s matches exclusion list. skipping...", rel))
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			log.Debug(fmt.Sprintf("%s is a symlink. skipping...", rel))
			return nil
		}
		if !d.Type().IsRegular() {
			log.Debug(fmt.Sprintf("%s is not a regular file. skipping...", rel))
			return nil
		}
		if excludes.Excludes(rel) {
			log.Debug(fmt.Sprintf("%s matches exclusion list. skipping...", rel))
			return nil
		}

		relPath, pathErr := NewRelPath(rel)
		if pathErr != nil {
			failures = append(failures, ItemFailure{Path: rel, Op: OpScan, Err: pathErr})
			return nil
		}

		record, hashErr := hashFile(path)
		if hashErr != nil {
			log.Warn(fmt.Sprintf("Unable to hash %s: %s", path, hashErr))
			failures = append(failures, ItemFailure{Path: rel, Op: OpScan, Err: hashErr})
			return nil
		}
		record.Path = relPath
		inventory[relPath] = record

		return nil
	})
	if walkErr != nil {
		return nil, nil, &ScanError{Root: root, Err: walkErr}
	}

	return inventory, failures, nil
}

func hashFile(path string) (FileRecord, error) {
	fd, openErr := os.Open(path)
	if openErr != nil {
		return FileRecord{}, openErr
	}
	defer fd.Close()

	hash := md5.New()
	size, copyErr := io.Copy(hash, fd)
	if copyErr != nil {
		return FileRecord{}, fmt.Errorf("hash %s: %w", path, copyErr)
	}

	return FileRecord{Size: size, ContentHash: hex.EncodeToString(hash.Sum(nil))}, nil
}

func localFilePath(root string, path RelPath) string {
	return filepath.Join(root, filepath.FromSlash(path.String()))
}
