// Git-based change detection: an alternative to DiffAgainstStored's
// content-hash comparison when the project root is itself a git checkout.
// Adapted from DeltaDetector in the teacher's pkg/ingestion/delta.go
// (`git diff --name-status`, rename-as-delete-plus-add in v1); trimmed to
// the working-tree-vs-HEAD comparison the coordinator needs rather than
// the teacher's arbitrary base/head commit range.
package scan

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// IsGitRepository reports whether root is inside a git working tree.
func IsGitRepository(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = root
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// GitDiff classifies uncommitted working-tree changes (against HEAD) plus
// untracked files into a Delta, the same added/modified/deleted split
// DiffAgainstStored produces from hashes. ok is false when root isn't a
// git checkout or the git binary isn't available, signaling the caller to
// fall back to DiffAgainstStored.
func GitDiff(root string) (delta Delta, ok bool) {
	if !IsGitRepository(root) {
		return Delta{}, false
	}

	tracked, err := runGitDiff(root)
	if err != nil {
		return Delta{}, false
	}
	parseNameStatus(tracked, &delta)

	untracked, err := untrackedFiles(root)
	if err == nil {
		delta.Added = append(delta.Added, untracked...)
	}
	return delta, true
}

func runGitDiff(root string) ([]byte, error) {
	cmd := exec.Command("git", "diff", "--name-status", "-M", "--relative", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("git diff: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("git diff: %w", err)
	}
	return out, nil
}

func untrackedFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, line)
		}
	}
	return files, scanner.Err()
}

// parseNameStatus fills delta from `git diff --name-status` output.
// Renames are treated as delete-then-add, matching the teacher's
// documented v1 behavior rather than tracking old/new path pairs.
func parseNameStatus(output []byte, delta *Delta) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		status := parts[0]
		paths := parts[1:]
		switch status[0] {
		case 'A':
			delta.Added = append(delta.Added, paths[0])
		case 'M':
			delta.Modified = append(delta.Modified, paths[0])
		case 'D':
			delta.Deleted = append(delta.Deleted, paths[0])
		case 'R':
			if len(paths) >= 2 {
				delta.Deleted = append(delta.Deleted, paths[0])
				delta.Added = append(delta.Added, paths[1])
			}
		case 'C':
			if len(paths) >= 2 {
				delta.Added = append(delta.Added, paths[1])
			}
		}
	}
}
