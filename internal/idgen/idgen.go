// Package idgen generates deterministic, location-independent entity
// identifiers (spec §4.4, C4).
//
// IDs must not incorporate line or column information: reformatting a file
// must not change any entity's id, only renaming or moving it to another
// scope/file may. The teacher's own id generator hashed start/end
// line/column for functions; that is deliberately not reproduced here.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

const shortHexLen = 16

// NormalizePath forces forward slashes and strips a leading "./".
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return p
}

func hashHex(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{':'})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EntityID implements the id generator contract of spec §4.4:
//
//	id = truncate(sha256(normalize(relativePath) : kind : parentScope : name : disambiguator), 16 hex)
//
// kind is a short tag such as "function", "class", "interface", "type_alias",
// "variable", "field", "implements". parentScope is empty for file-level
// entities, the class name for methods, or the enclosing scope chain for
// nested entities. disambiguator is the parameter-signature suffix built by
// Disambiguator, or empty.
func EntityID(relativePath, kind, parentScope, name, disambiguator string) string {
	rel := NormalizePath(relativePath)
	full := hashHex(rel, kind, parentScope, name, disambiguator)
	return full[:shortHexLen]
}

// Param is one function/method parameter, used to build a disambiguator.
type Param struct {
	Name string
	Type string
}

// Disambiguator builds the `"param1Name:param1Type,..."` suffix spec §4.4
// describes. A parameterless function yields the empty string. A missing
// type is rendered as "any". When the combined signature text grows large
// (complex generics, many params), a secondary short hash is substituted to
// keep ids bounded.
func Disambiguator(params []Param) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		t := p.Type
		if t == "" {
			t = "any"
		}
		parts[i] = p.Name + ":" + t
	}
	joined := strings.Join(parts, ",")
	if len(joined) <= 128 {
		return joined
	}
	sum := hashHex(joined)
	return "sig:" + sum[:8]
}

// FileID generates the id for a File entity: "file:" + normalized path.
// Files are identified by path alone, not hashed, since their id must
// remain stable and human-traceable across runs (spec §4.4).
func FileID(relativePath string) string {
	return "file:" + NormalizePath(relativePath)
}

// GhostID generates the id for a GhostNode, deduplicated by
// (packageName, exportName) per spec §3.1/§3.3 invariant 3.
func GhostID(packageName, exportName string) string {
	if packageName == "" {
		packageName = "<unknown>"
	}
	return "ghost:" + packageName + ":" + exportName
}

// ModuleID generates the id for a module/package-level entity, keyed by
// its directory.
func ModuleID(directory string) string {
	return "module:" + path.Clean(NormalizePath(directory))
}
