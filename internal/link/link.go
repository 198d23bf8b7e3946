// Package link implements the Call/Type Linker — Pass 2 (C7): resolving
// the unresolved calls and type references Pass 1 (internal/extract) left
// behind, using an import-aware global symbol table built across every
// scanned file.
//
// This is a close adaptation of CallResolver in the teacher's
// pkg/ingestion/resolver.go: the same package index / global function
// registry / file-imports index / qualified-function index structure,
// the same qualified-call, dot-import, and interface-dispatch (field-based
// then param-based) resolution order, and the same external-type stub
// fallback — now producing idgen.GhostID ghost nodes (spec §4.4.1) instead
// of the teacher's ad hoc "_external_:" stub hash, and resolving
// UnresolvedTypeRef entries in addition to calls.
package link

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/idgen"
)

// CallEdge is a resolved caller→callee relationship.
type CallEdge struct {
	CallerID string
	CalleeID string
}

// TypeEdge is a resolved source→type relationship (extends/implements/uses).
type TypeEdge struct {
	SourceID string
	TypeID   string
}

// GhostNode is a synthetic node standing in for a symbol that exists
// outside the indexed project (an external package's exported function or
// an interface-typed field whose concrete implementation couldn't be
// determined).
type GhostNode struct {
	ID          string
	PackageName string
	ExportName  string
}

// packageInfo groups files by the directory that is their Go package.
type packageInfo struct {
	packageName string
	files       []string
}

// Linker accumulates a whole-project symbol table across files added via
// AddFile, then resolves queued unresolved references via Resolve.
//
// Build the index once all files are added. Resolve is safe to call from
// several goroutines, but it caches import-path lookups and ghost nodes as
// it goes, so each call holds the write lock and calls run one at a time.
type Linker struct {
	mu sync.RWMutex

	packageIndex    map[string]*packageInfo          // dir path -> package
	globalFunctions map[string]map[string]string     // dir path -> simple name -> function id
	fileImports     map[string]map[string]string     // relativePath -> alias -> import path
	importToPkgDir  map[string]string                // import path -> dir path (cached)

	fieldIndex         map[string]map[string]string // struct name -> field name -> field type
	implementsIndex    map[string][]string           // interface name -> implementing type names
	qualifiedFunctions map[string]string              // "Type.Method" -> function id

	functionIDToName      map[string]string
	functionIDToSignature map[string]string

	typeNameToID map[string]string // type name (class/interface/alias) -> entity id

	ghostNodes map[string]GhostNode // "package:export" -> node, deduplicated
}

// New returns an empty Linker ready for AddFile calls.
func New() *Linker {
	return &Linker{
		packageIndex:          make(map[string]*packageInfo),
		globalFunctions:       make(map[string]map[string]string),
		fileImports:           make(map[string]map[string]string),
		importToPkgDir:        make(map[string]string),
		fieldIndex:            make(map[string]map[string]string),
		implementsIndex:       make(map[string][]string),
		qualifiedFunctions:    make(map[string]string),
		functionIDToName:      make(map[string]string),
		functionIDToSignature: make(map[string]string),
		typeNameToID:          make(map[string]string),
		ghostNodes:            make(map[string]GhostNode),
	}
}

// AddFile registers one file's extraction result into the global symbol
// table. Call this for every scanned file before calling Resolve.
func (l *Linker) AddFile(result *extract.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := path.Dir(result.RelativePath)
	pkg, ok := l.packageIndex[dir]
	if !ok {
		pkg = &packageInfo{packageName: result.PackageName}
		l.packageIndex[dir] = pkg
	}
	pkg.files = append(pkg.files, result.RelativePath)

	if l.globalFunctions[dir] == nil {
		l.globalFunctions[dir] = make(map[string]string)
	}
	for _, fn := range result.Functions {
		simple := simpleName(fn.Name)
		l.globalFunctions[dir][simple] = fn.ID
		switch {
		case strings.Contains(fn.Name, "."):
			l.qualifiedFunctions[fn.Name] = fn.ID
		case fn.ParentScope != "":
			l.qualifiedFunctions[fn.ParentScope+"."+fn.Name] = fn.ID
		}
		l.functionIDToName[fn.ID] = fn.Name
		l.functionIDToSignature[fn.ID] = fn.Signature
	}

	for _, cls := range result.Classes {
		l.typeNameToID[cls.Name] = cls.ID
		if cls.ExtendsName != "" {
			// nothing to index here; extends resolution happens in Resolve
			_ = cls.ExtendsName
		}
	}
	for _, iface := range result.Interfaces {
		l.typeNameToID[iface.Name] = iface.ID
	}
	for _, alias := range result.TypeAliases {
		l.typeNameToID[alias.Name] = alias.ID
	}

	for _, f := range result.Fields {
		if l.fieldIndex[f.StructName] == nil {
			l.fieldIndex[f.StructName] = make(map[string]string)
		}
		l.fieldIndex[f.StructName][f.FieldName] = f.FieldType
	}

	for _, cls := range result.Classes {
		for _, implName := range cls.ImplementsNames {
			l.implementsIndex[implName] = append(l.implementsIndex[implName], cls.Name)
		}
	}

	if len(result.Imports) > 0 {
		aliases := make(map[string]string, len(result.Imports))
		for _, imp := range result.Imports {
			alias := imp.Alias
			if alias == "" {
				alias = path.Base(imp.ImportPath)
			}
			if alias == "_" {
				continue
			}
			aliases[alias] = imp.ImportPath
		}
		l.fileImports[result.RelativePath] = aliases
	}
}

// Resolved is everything Resolve produced for one Result's unresolved
// references.
type Resolved struct {
	Calls      []CallEdge
	TypeEdges  []TypeEdge
	GhostNodes []GhostNode
}

// Resolve resolves one file's unresolved calls and type references against
// the index built by AddFile. AddFile must have been called for every file
// in the project (including this one) first.
func (l *Linker) Resolve(result *extract.Result) Resolved {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out Resolved
	seenCalls := make(map[string]bool)
	addCall := func(e CallEdge) {
		key := e.CallerID + "->" + e.CalleeID
		if !seenCalls[key] {
			seenCalls[key] = true
			out.Calls = append(out.Calls, e)
		}
	}

	for _, call := range result.UnresolvedCalls {
		if id := l.resolveCall(result.RelativePath, call); id != "" {
			addCall(CallEdge{CallerID: call.CallerID, CalleeID: id})
			continue
		}
		if edges := l.resolveInterfaceCall(call); len(edges) > 0 {
			for _, edge := range edges {
				addCall(edge)
			}
			continue
		}
		if id, ghost, ok := l.resolveAsGhost(call); ok {
			addCall(CallEdge{CallerID: call.CallerID, CalleeID: id})
			out.GhostNodes = append(out.GhostNodes, ghost)
		}
	}

	for _, ref := range result.UnresolvedTypeRefs {
		if id, ok := l.typeNameToID[ref.TypeName]; ok {
			out.TypeEdges = append(out.TypeEdges, TypeEdge{SourceID: ref.SourceID, TypeID: id})
			continue
		}
		if !isPrimitiveOrBuiltinType(ref.TypeName) {
			ghost := l.ghostFor("", ref.TypeName)
			out.TypeEdges = append(out.TypeEdges, TypeEdge{SourceID: ref.SourceID, TypeID: ghost.ID})
			out.GhostNodes = append(out.GhostNodes, ghost)
		}
	}

	sort.Slice(out.Calls, func(i, j int) bool { return out.Calls[i].CalleeID < out.Calls[j].CalleeID })
	return out
}

func (l *Linker) resolveCall(callerFile string, call extract.UnresolvedCall) string {
	if id := l.resolveLocalCall(callerFile, call); id != "" {
		return id
	}
	if strings.Contains(call.CalleeName, ".") {
		if id := l.resolveQualifiedCall(callerFile, call); id != "" {
			return id
		}
	}
	return l.resolveDotImportCall(callerFile, call)
}

// resolveLocalCall matches a plain, unqualified call (no "." in
// CalleeName) against the caller's own package. This takes priority over
// qualified and dot-import resolution: a callee that exists both locally
// and via a dot import resolves locally.
func (l *Linker) resolveLocalCall(callerFile string, call extract.UnresolvedCall) string {
	if strings.Contains(call.CalleeName, ".") {
		return ""
	}
	return l.globalFunctions[path.Dir(callerFile)][call.CalleeName]
}

func (l *Linker) resolveQualifiedCall(callerFile string, call extract.UnresolvedCall) string {
	parts := strings.SplitN(call.CalleeName, ".", 2)
	if len(parts) < 2 {
		return ""
	}
	funcName := lastComponent(parts[1])
	if !isExportedName(funcName) {
		return ""
	}
	imports := l.fileImports[callerFile]
	if imports == nil {
		return ""
	}
	importPath, ok := imports[parts[0]]
	if !ok {
		return ""
	}
	return l.lookupFunctionInPackage(importPath, funcName)
}

func (l *Linker) resolveDotImportCall(callerFile string, call extract.UnresolvedCall) string {
	for alias, importPath := range l.fileImports[callerFile] {
		if alias == "." {
			if id := l.lookupFunctionInPackage(importPath, call.CalleeName); id != "" {
				return id
			}
		}
	}
	return ""
}

func (l *Linker) lookupFunctionInPackage(importPath, funcName string) string {
	dir := l.findPackageDir(importPath)
	if dir == "" {
		return ""
	}
	return l.globalFunctions[dir][funcName]
}

func (l *Linker) findPackageDir(importPath string) string {
	if dir, ok := l.importToPkgDir[importPath]; ok {
		return dir
	}
	for dir := range l.packageIndex {
		if strings.HasSuffix(importPath, dir) {
			l.importToPkgDir[importPath] = dir
			return dir
		}
	}
	base := path.Base(importPath)
	for dir, pkg := range l.packageIndex {
		if pkg.packageName == base {
			l.importToPkgDir[importPath] = dir
			return dir
		}
	}
	return ""
}

// resolveInterfaceCall dispatches a "receiver.Method" call through the
// field and implements indexes, mirroring resolveInterfaceCallViaFields /
// resolveInterfaceCallViaParams.
func (l *Linker) resolveInterfaceCall(call extract.UnresolvedCall) []CallEdge {
	if !strings.Contains(call.CalleeName, ".") {
		return nil
	}
	callerName := l.functionIDToName[call.CallerID]
	if strings.Contains(callerName, ".") {
		if edges := l.resolveInterfaceCallViaFields(call, callerName); len(edges) > 0 {
			return edges
		}
	}
	return l.resolveInterfaceCallViaParams(call)
}

func (l *Linker) resolveInterfaceCallViaFields(call extract.UnresolvedCall, callerName string) []CallEdge {
	structName := strings.SplitN(callerName, ".", 2)[0]
	parts := strings.Split(call.CalleeName, ".")
	if len(parts) < 2 {
		return nil
	}
	methodName := parts[len(parts)-1]
	fieldTypes, ok := l.fieldIndex[structName]
	if !ok {
		return nil
	}
	for i := len(parts) - 2; i >= 0; i-- {
		if ft, ok := fieldTypes[parts[i]]; ok {
			return l.resolveToImplementations(call.CallerID, methodName, ft)
		}
	}
	return nil
}

func (l *Linker) resolveInterfaceCallViaParams(call extract.UnresolvedCall) []CallEdge {
	sig := l.functionIDToSignature[call.CallerID]
	if sig == "" {
		return nil
	}
	params := parseParamNamesAndTypes(sig)
	if len(params) == 0 {
		return nil
	}
	parts := strings.Split(call.CalleeName, ".")
	if len(parts) < 2 {
		return nil
	}
	methodName := parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		candidate := parts[i]
		for _, p := range params {
			if p.name == candidate {
				if edges := l.resolveToImplementations(call.CallerID, methodName, p.typ); len(edges) > 0 {
					return edges
				}
			}
		}
	}
	return nil
}

func (l *Linker) resolveToImplementations(callerID, methodName, fieldType string) []CallEdge {
	if implTypes, ok := l.implementsIndex[fieldType]; ok {
		var edges []CallEdge
		for _, implType := range implTypes {
			if calleeID, ok := l.qualifiedFunctions[implType+"."+methodName]; ok {
				edges = append(edges, CallEdge{CallerID: callerID, CalleeID: calleeID})
			}
		}
		if len(edges) > 0 {
			return edges
		}
	}
	if calleeID, ok := l.qualifiedFunctions[fieldType+"."+methodName]; ok {
		return []CallEdge{{CallerID: callerID, CalleeID: calleeID}}
	}
	return nil
}

// resolveAsGhost is the final fallback: an external package's exported
// symbol, or an interface-typed field whose concrete type never matched an
// implementation. It always succeeds for a non-primitive type, producing a
// stable ghost node id.
func (l *Linker) resolveAsGhost(call extract.UnresolvedCall) (string, GhostNode, bool) {
	name := call.CalleeName
	pkg := call.ModulePath
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		if pkg == "" {
			pkg = name[:idx]
		}
		name = name[idx+1:]
	}
	if isPrimitiveOrBuiltinType(pkg) {
		return "", GhostNode{}, false
	}
	ghost := l.ghostFor(pkg, name)
	return ghost.ID, ghost, true
}

func (l *Linker) ghostFor(pkg, export string) GhostNode {
	id := idgen.GhostID(pkg, export)
	if existing, ok := l.ghostNodes[id]; ok {
		return existing
	}
	node := GhostNode{ID: id, PackageName: pkg, ExportName: export}
	l.ghostNodes[id] = node
	return node
}

type paramNameType struct{ name, typ string }

// parseParamNamesAndTypes extracts "(name type, ...)" pairs from a Go
// function signature string for interface-dispatch-via-parameter matching.
func parseParamNamesAndTypes(signature string) []paramNameType {
	open := strings.Index(signature, "(")
	if open < 0 {
		return nil
	}
	depth := 0
	closeIdx := -1
	for i := open; i < len(signature); i++ {
		switch signature[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		}
		if closeIdx >= 0 {
			break
		}
	}
	if closeIdx < 0 {
		return nil
	}
	inner := signature[open+1 : closeIdx]
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	var params []paramNameType
	for _, part := range strings.Split(inner, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) < 2 {
			continue
		}
		params = append(params, paramNameType{name: fields[0], typ: strings.Join(fields[1:], " ")})
	}
	return params
}

func simpleName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func lastComponent(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func isExportedName(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func isPrimitiveOrBuiltinType(t string) bool {
	switch strings.TrimPrefix(t, "*") {
	case "string", "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64", "complex64", "complex128",
		"bool", "byte", "rune", "error", "func",
		"any", "interface{}", "Context", "":
		return true
	}
	return false
}
