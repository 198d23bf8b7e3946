// Package extract implements Entity Extractor — Pass 1 (C6): turning a
// single parsed file (internal/uce.File) into row batches ready for
// storage, plus the unresolved call/type references Pass 2 (internal/link)
// will later resolve.
//
// The result shape — a file entity, per-kind entity slices, contains/
// imports edge lists, and separate unresolved-call and unresolved-type
// buckets — mirrors
// ParseResult in the teacher's pkg/ingestion/parser.go. Entity identity
// comes from internal/idgen rather than the teacher's line/col-keyed
// GenerateFunctionID.
package extract

import (
	"strings"

	"github.com/kraklabs/codegraph/internal/cgerr"
	"github.com/kraklabs/codegraph/internal/idgen"
	"github.com/kraklabs/codegraph/internal/uce"
)

// FunctionRow is a storage-ready function entity.
type FunctionRow struct {
	ID             string
	Name           string
	ParentScope    string
	StartLine      int
	EndLine        int
	StartCol       int
	EndCol         int
	Signature      string
	ReturnType     string
	IsExported     bool
	IsAsync        bool
	Complexity     int
	ParameterCount int
	DocComment     string
	EmbeddingText  string
}

// ClassRow is a storage-ready class/struct entity.
type ClassRow struct {
	ID              string
	Name            string
	StartLine       int
	EndLine         int
	IsAbstract      bool
	IsExported      bool
	ExtendsName     string
	ImplementsNames []string
	DocComment      string
}

// InterfaceRow is a storage-ready interface entity.
type InterfaceRow struct {
	ID           string
	Name         string
	StartLine    int
	EndLine      int
	IsExported   bool
	ExtendsNames []string
	DocComment   string
}

// TypeAliasRow, VariableRow, FieldRow mirror their uce counterparts with
// identity assigned.
type TypeAliasRow struct {
	ID         string
	Name       string
	StartLine  int
	IsExported bool
}

type VariableRow struct {
	ID         string
	Name       string
	StartLine  int
	Type       string
	IsExported bool
}

type FieldRow struct {
	ID         string
	StructName string
	FieldName  string
	FieldType  string
	Line       int
}

// ImportRow is a from-file import edge, resolved against other files by
// the linker.
type ImportRow struct {
	FromFileID      string
	ImportPath      string
	Alias           string
	ImportedSymbols []string
	Line            int
}

// UnresolvedCall is a call site whose target couldn't be determined from
// this file alone; internal/link resolves it in Pass 2.
type UnresolvedCall struct {
	CallerID   string
	CalleeName string
	ModulePath string
	Line       int
	IsDirect   bool
	IsAsync    bool
}

// UnresolvedTypeRef is a type reference (extends/implements/parameter/
// return) whose target type couldn't be determined from this file alone.
type UnresolvedTypeRef struct {
	SourceID      string
	TypeName      string
	Context       uce.TypeRefContext
	ParameterName string
}

// ContainsEdge is a parent/child containment relationship (spec data model
// contains(parentId, childId, line)): line is the child's start line within
// the parent, so a query can jump straight to where a function or type is
// declared without a second lookup.
type ContainsEdge struct {
	ParentID string
	ChildID  string
	Line     int
}

// Result is the extractor's output for one file.
type Result struct {
	FileID             string
	RelativePath       string
	PackageName        string
	ContentHash        string
	SizeBytes          int64
	Functions          []FunctionRow
	Classes            []ClassRow
	Interfaces         []InterfaceRow
	TypeAliases        []TypeAliasRow
	Variables          []VariableRow
	Fields             []FieldRow
	Imports            []ImportRow
	ContainsEdges      []ContainsEdge
	UnresolvedCalls    []UnresolvedCall
	UnresolvedTypeRefs []UnresolvedTypeRef
	Diagnostics        []cgerr.Diagnostic
}

// EmbeddingTextCapBytes bounds the embedding-text preview synthesized for
// each function, per SPEC_FULL.md's open-question decision (240 bytes, no
// redaction — callers needing privacy filtering do so upstream).
const EmbeddingTextCapBytes = 240

// Extract converts a parsed file into storage-ready rows. relativePath
// identifies the file across runs; it, not the absolute path, feeds
// idgen.FileID and idgen.EntityID so relocating the whole checkout doesn't
// change an otherwise identical file's identity; moving or renaming the
// file inside the checkout does. contentHash and sizeBytes pass
// through from the scan stage unchanged, so the stored cg_file row reflects
// the bytes that were actually parsed.
func Extract(relativePath string, file *uce.File, contentHash string, sizeBytes int64) *Result {
	fileID := idgen.FileID(relativePath)
	result := &Result{
		FileID:       fileID,
		RelativePath: relativePath,
		PackageName:  file.PackageName,
		ContentHash:  contentHash,
		SizeBytes:    sizeBytes,
	}

	for _, fn := range file.Functions {
		id := idgen.EntityID(relativePath, "function", fn.ParentScope, fn.Name, idgen.Disambiguator(toIDGenParams(fn.Params)))
		result.Functions = append(result.Functions, FunctionRow{
			ID:             id,
			Name:           fn.Name,
			ParentScope:    fn.ParentScope,
			StartLine:      fn.Loc.StartLine,
			EndLine:        fn.Loc.EndLine,
			StartCol:       fn.Loc.StartCol,
			EndCol:         fn.Loc.EndCol,
			Signature:      fn.Signature,
			ReturnType:     fn.ReturnType,
			IsExported:     hasModifier(fn.Modifiers, uce.ModExport),
			IsAsync:        hasModifier(fn.Modifiers, uce.ModAsync),
			Complexity:     fn.Complexity,
			ParameterCount: len(fn.Params),
			DocComment:     fn.DocComment,
			EmbeddingText:  embeddingText(fn),
		})
		result.ContainsEdges = append(result.ContainsEdges, ContainsEdge{ParentID: fileID, ChildID: id, Line: fn.Loc.StartLine})

		for _, call := range fn.UnresolvedCalls {
			result.UnresolvedCalls = append(result.UnresolvedCalls, UnresolvedCall{
				CallerID: id, CalleeName: call.CalleeName, ModulePath: call.ModulePath,
				Line: call.Line, IsDirect: call.IsDirect, IsAsync: call.IsAsync,
			})
		}
	}

	for _, cls := range file.Classes {
		id := idgen.EntityID(relativePath, "class", "", cls.Name, "")
		result.Classes = append(result.Classes, ClassRow{
			ID: id, Name: cls.Name, StartLine: cls.Loc.StartLine, EndLine: cls.Loc.EndLine,
			IsAbstract: cls.IsAbstract, IsExported: hasModifier(cls.Modifiers, uce.ModExport),
			ExtendsName: cls.ExtendsName, ImplementsNames: cls.ImplementsNames, DocComment: cls.DocComment,
		})
		result.ContainsEdges = append(result.ContainsEdges, ContainsEdge{ParentID: fileID, ChildID: id, Line: cls.Loc.StartLine})
		for _, ref := range cls.UnresolvedTypes {
			result.UnresolvedTypeRefs = append(result.UnresolvedTypeRefs, UnresolvedTypeRef{
				SourceID: id, TypeName: ref.TypeName, Context: ref.Context, ParameterName: ref.ParameterName,
			})
		}
		for _, f := range cls.Fields {
			fieldID := idgen.EntityID(relativePath, "field", cls.Name, f.Name, "")
			result.Fields = append(result.Fields, FieldRow{
				ID: fieldID, StructName: cls.Name, FieldName: f.Name, FieldType: f.Type, Line: f.Line,
			})
		}
	}

	for _, iface := range file.Interfaces {
		id := idgen.EntityID(relativePath, "interface", "", iface.Name, "")
		result.Interfaces = append(result.Interfaces, InterfaceRow{
			ID: id, Name: iface.Name, StartLine: iface.Loc.StartLine, EndLine: iface.Loc.EndLine,
			IsExported: hasModifier(iface.Modifiers, uce.ModExport), ExtendsNames: iface.ExtendsNames,
			DocComment: iface.DocComment,
		})
		result.ContainsEdges = append(result.ContainsEdges, ContainsEdge{ParentID: fileID, ChildID: id, Line: iface.Loc.StartLine})
		for _, ref := range iface.UnresolvedTypes {
			result.UnresolvedTypeRefs = append(result.UnresolvedTypeRefs, UnresolvedTypeRef{
				SourceID: id, TypeName: ref.TypeName, Context: ref.Context, ParameterName: ref.ParameterName,
			})
		}
	}

	for _, alias := range file.TypeAliases {
		id := idgen.EntityID(relativePath, "type_alias", "", alias.Name, "")
		result.TypeAliases = append(result.TypeAliases, TypeAliasRow{
			ID: id, Name: alias.Name, StartLine: alias.Loc.StartLine, IsExported: hasModifier(alias.Modifiers, uce.ModExport),
		})
		result.ContainsEdges = append(result.ContainsEdges, ContainsEdge{ParentID: fileID, ChildID: id, Line: alias.Loc.StartLine})
	}

	for _, v := range file.Variables {
		id := idgen.EntityID(relativePath, "variable", "", v.Name, "")
		result.Variables = append(result.Variables, VariableRow{
			ID: id, Name: v.Name, StartLine: v.Loc.StartLine, Type: v.Type, IsExported: hasModifier(v.Modifiers, uce.ModExport),
		})
		result.ContainsEdges = append(result.ContainsEdges, ContainsEdge{ParentID: fileID, ChildID: id, Line: v.Loc.StartLine})
	}

	for _, imp := range file.Imports {
		result.Imports = append(result.Imports, ImportRow{
			FromFileID: fileID, ImportPath: imp.ImportPath, Alias: imp.Alias,
			ImportedSymbols: imp.Symbols, Line: imp.Line,
		})
	}

	return result
}

func hasModifier(mods []uce.Modifier, target uce.Modifier) bool {
	for _, m := range mods {
		if m == target {
			return true
		}
	}
	return false
}

func toIDGenParams(params []uce.Param) []idgen.Param {
	out := make([]idgen.Param, len(params))
	for i, p := range params {
		out[i] = idgen.Param{Name: p.Name, Type: p.Type}
	}
	return out
}

// embeddingText synthesizes the compact preview stored alongside a
// function for downstream semantic search: signature plus doc comment,
// capped at EmbeddingTextCapBytes.
func embeddingText(fn uce.Function) string {
	var b strings.Builder
	if fn.DocComment != "" {
		b.WriteString(strings.TrimSpace(fn.DocComment))
		b.WriteString(" ")
	}
	b.WriteString(fn.Signature)
	text := b.String()
	if len(text) > EmbeddingTextCapBytes {
		text = text[:EmbeddingTextCapBytes]
	}
	return text
}
