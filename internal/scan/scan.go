// Package scan implements the Scanner half of C5: walking a project root
// under include/ignore globs, recording (absolutePath, relativePath,
// sizeBytes) per candidate file, and computing a stable content hash for
// change detection.
//
// Hashing and stored/current comparison follow HashDeltaDetector in the
// teacher's pkg/ingestion/hash_delta.go (SHA-256 over file content, added/
// modified/deleted classification against a previously stored hash map).
// Glob filtering uses doublestar, which supports the "**" recursive
// wildcard the teacher's own glob patterns (e.g. "**/*.go") assume.
package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kraklabs/codegraph/internal/cgerr"
)

// FileInfo is one scanned candidate file.
type FileInfo struct {
	AbsolutePath string
	RelativePath string
	SizeBytes    int64
	ContentHash  string
}

// Diagnostic mirrors a skip event the caller should surface but not treat
// as fatal (spec §4.5: FileTooLarge).
type Diagnostic struct {
	RelativePath string
	Err          error
}

// Options configures a scan.
type Options struct {
	IncludeGlobs     []string
	ExcludeGlobs     []string
	MaxFileSizeBytes int64
}

// Result is the scanner's output.
type Result struct {
	Files       []FileInfo
	Diagnostics []Diagnostic
}

// Walk scans root applying opts.IncludeGlobs/ExcludeGlobs and returns every
// matching file's metadata plus content hash. Files above
// opts.MaxFileSizeBytes are skipped and reported as a Diagnostic rather than
// failing the whole scan.
func Walk(root string, opts Options) (*Result, error) {
	result := &Result{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		slashRel := filepath.ToSlash(rel)

		if d.IsDir() {
			if matchesAny(slashRel+"/", opts.ExcludeGlobs) || matchesAny(slashRel, opts.ExcludeGlobs) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(slashRel, opts.ExcludeGlobs) {
			return nil
		}
		if len(opts.IncludeGlobs) > 0 && !matchesAny(slashRel, opts.IncludeGlobs) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				RelativePath: slashRel,
				Err:          cgerr.ErrFileTooLarge,
			})
			return nil
		}

		hash, hashErr := hashFile(path)
		if hashErr != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{RelativePath: slashRel, Err: hashErr})
			return nil
		}
		result.Files = append(result.Files, FileInfo{
			AbsolutePath: path,
			RelativePath: slashRel,
			SizeBytes:    info.Size(),
			ContentHash:  hash,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func matchesAny(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
	}
	return false
}

func hashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// Delta classifies a fresh Result against a previously stored
// relativePath→hash map into added/modified/deleted, the same
// three-way split HashDeltaDetector.DetectChanges produces.
type Delta struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// DiffAgainstStored computes a Delta by comparing current against a
// relativePath→hash snapshot previously persisted by the store.
func DiffAgainstStored(current []FileInfo, stored map[string]string) Delta {
	var delta Delta
	currentPaths := make(map[string]bool, len(current))
	for _, f := range current {
		currentPaths[f.RelativePath] = true
		storedHash, ok := stored[f.RelativePath]
		if !ok {
			delta.Added = append(delta.Added, f.RelativePath)
			continue
		}
		if storedHash != f.ContentHash {
			delta.Modified = append(delta.Modified, f.RelativePath)
		}
	}
	for path := range stored {
		if !currentPaths[path] {
			delta.Deleted = append(delta.Deleted, path)
		}
	}
	return delta
}
