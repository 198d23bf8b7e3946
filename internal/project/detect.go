// Package project implements the Project Detector half of C5: reading
// manifests and marker files at a root directory to classify the primary
// language, framework, and project type, and to derive default include/
// ignore glob patterns.
//
// The priority-ranked, most-specific-first manifest check follows
// detectMonorepoManager in the mind-palace CLI's project package, adapted
// from monorepo-manager detection to single-project language/framework
// detection.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// Kind classifies what a detected project looks like at a structural level.
type Kind string

const (
	KindLibrary Kind = "library"
	KindService Kind = "service"
	KindCLI     Kind = "cli"
	KindUnknown Kind = "unknown"
)

// DetectedProject is the Detector's output (spec §4.5): root path, primary
// language, detected framework, project-type classification, source glob
// patterns, ignore patterns, and entry points.
type DetectedProject struct {
	RootPath        string
	PrimaryLanguage string
	Framework       string
	Kind            Kind
	IncludeGlobs    []string
	ExcludeGlobs    []string
	EntryPoints     []string
	ManifestFile    string
}

// frameworkRule is one entry in the priority-ranked package-name table:
// among the rules whose manifest marker is present and whose package-name
// substrings all appear in that manifest, the highest priority wins, and
// equal priorities go to the rule listed first.
type frameworkRule struct {
	language     string
	framework    string
	manifestFile string
	packageHints []string // substrings to look for within the manifest's raw bytes
	priority     int       // higher wins among multiple matches
}

var frameworkRules = []frameworkRule{
	{language: "go", framework: "gin", manifestFile: "go.mod", packageHints: []string{"gin-gonic/gin"}, priority: 10},
	{language: "go", framework: "echo", manifestFile: "go.mod", packageHints: []string{"labstack/echo"}, priority: 10},
	{language: "go", framework: "fiber", manifestFile: "go.mod", packageHints: []string{"gofiber/fiber"}, priority: 10},
	{language: "go", framework: "cobra-cli", manifestFile: "go.mod", packageHints: []string{"spf13/cobra"}, priority: 5},
	{language: "go", framework: "", manifestFile: "go.mod", priority: 1},

	{language: "typescript", framework: "next.js", manifestFile: "package.json", packageHints: []string{"\"next\""}, priority: 10},
	{language: "typescript", framework: "nestjs", manifestFile: "package.json", packageHints: []string{"@nestjs/core"}, priority: 10},
	{language: "typescript", framework: "express", manifestFile: "package.json", packageHints: []string{"\"express\""}, priority: 8},
	{language: "javascript", framework: "react", manifestFile: "package.json", packageHints: []string{"\"react\""}, priority: 6},
	{language: "javascript", framework: "", manifestFile: "package.json", priority: 1},

	{language: "python", framework: "django", manifestFile: "pyproject.toml", packageHints: []string{"django"}, priority: 10},
	{language: "python", framework: "fastapi", manifestFile: "pyproject.toml", packageHints: []string{"fastapi"}, priority: 10},
	{language: "python", framework: "flask", manifestFile: "pyproject.toml", packageHints: []string{"flask"}, priority: 8},
	{language: "python", framework: "", manifestFile: "pyproject.toml", priority: 1},
	{language: "python", framework: "", manifestFile: "requirements.txt", priority: 1},

	{language: "rust", framework: "", manifestFile: "Cargo.toml", priority: 1},
	{language: "java", framework: "spring-boot", manifestFile: "pom.xml", packageHints: []string{"spring-boot"}, priority: 10},
	{language: "java", framework: "", manifestFile: "pom.xml", priority: 1},
}

// Detect reads manifests under root and returns a DetectedProject. Absence
// of any recognized manifest yields an unknown-language project whose
// include globs fall back to every registered language's source extension,
// a permissive default so the scanner can still make progress.
func Detect(root string) (*DetectedProject, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = true
	}

	var candidates []frameworkRule
	for _, rule := range frameworkRules {
		if !present[rule.manifestFile] {
			continue
		}
		if len(rule.packageHints) == 0 {
			candidates = append(candidates, rule)
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, rule.manifestFile))
		if err != nil {
			continue
		}
		if containsAll(data, rule.packageHints) {
			candidates = append(candidates, rule)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].priority > candidates[j].priority })

	dp := &DetectedProject{RootPath: root, Kind: KindUnknown}
	if len(candidates) > 0 {
		top := candidates[0]
		dp.PrimaryLanguage = top.language
		dp.Framework = top.framework
		dp.ManifestFile = top.manifestFile
		dp.Kind = classifyKind(dp.Framework, present)
	}

	dp.IncludeGlobs = includeGlobsFor(dp.PrimaryLanguage)
	dp.ExcludeGlobs = defaultExcludeGlobs()
	dp.EntryPoints = findEntryPoints(root, dp.PrimaryLanguage, present)
	return dp, nil
}

func containsAll(data []byte, hints []string) bool {
	for _, h := range hints {
		if !contains(data, h) {
			return false
		}
	}
	return true
}

func contains(data []byte, substr string) bool {
	return len(substr) == 0 || indexOf(string(data), substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

func classifyKind(framework string, present map[string]bool) Kind {
	switch framework {
	case "gin", "echo", "fiber", "express", "nestjs", "next.js", "django", "fastapi", "flask", "spring-boot":
		return KindService
	}
	if present["main.go"] || present["cmd"] {
		return KindCLI
	}
	return KindLibrary
}

func includeGlobsFor(language string) []string {
	switch language {
	case "go":
		return []string{"**/*.go"}
	case "typescript":
		return []string{"**/*.ts", "**/*.tsx"}
	case "javascript":
		return []string{"**/*.js", "**/*.jsx"}
	case "python":
		return []string{"**/*.py"}
	case "rust":
		return []string{"**/*.rs"}
	case "java":
		return []string{"**/*.java"}
	default:
		return []string{"**/*.go", "**/*.ts", "**/*.tsx", "**/*.js", "**/*.py"}
	}
}

func defaultExcludeGlobs() []string {
	return []string{
		"**/node_modules/**", "**/vendor/**", "**/.git/**",
		"**/dist/**", "**/build/**", "**/target/**", "**/__pycache__/**",
	}
}

func findEntryPoints(root, language string, present map[string]bool) []string {
	var points []string
	switch language {
	case "go":
		if present["main.go"] {
			points = append(points, "main.go")
		}
		if present["cmd"] {
			_ = filepath.WalkDir(filepath.Join(root, "cmd"), func(path string, d os.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return nil
				}
				if filepath.Base(path) == "main.go" {
					rel, relErr := filepath.Rel(root, path)
					if relErr == nil {
						points = append(points, rel)
					}
				}
				return nil
			})
		}
	case "typescript", "javascript":
		if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
			var manifest struct {
				Main string `json:"main"`
			}
			if json.Unmarshal(data, &manifest) == nil && manifest.Main != "" {
				points = append(points, manifest.Main)
			}
		}
	case "python":
		for _, name := range []string{"main.py", "app.py", "manage.py"} {
			if present[name] {
				points = append(points, name)
			}
		}
	}
	return points
}
