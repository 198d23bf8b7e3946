package extract

import (
	"testing"

	"github.com/kraklabs/codegraph/internal/uce"
	"github.com/stretchr/testify/require"
)

func TestExtract_FunctionRowGetsStableID(t *testing.T) {
	file := &uce.File{
		PackageName: "pkg",
		Functions: []uce.Function{
			{
				Name: "DoThing", Loc: uce.Location{StartLine: 10, EndLine: 20},
				Signature: "func DoThing(x int) error", ReturnType: "error",
				Params:     []uce.Param{{Name: "x", Type: "int"}},
				Modifiers:  []uce.Modifier{uce.ModExport},
				DocComment: "DoThing does the thing.",
			},
		},
	}

	r1 := Extract("pkg/thing.go", file, "hash1", 100)
	require.Len(t, r1.Functions, 1)
	require.NotEmpty(t, r1.Functions[0].ID)
	require.True(t, r1.Functions[0].IsExported)

	// Moving the function to a different line range must not change its ID
	// (spec invariant: entity IDs exclude line/column).
	moved := &uce.File{
		PackageName: "pkg",
		Functions: []uce.Function{
			{
				Name: "DoThing", Loc: uce.Location{StartLine: 50, EndLine: 60},
				Signature: "func DoThing(x int) error", ReturnType: "error",
				Params:     []uce.Param{{Name: "x", Type: "int"}},
				Modifiers:  []uce.Modifier{uce.ModExport},
				DocComment: "DoThing does the thing.",
			},
		},
	}
	r2 := Extract("pkg/thing.go", moved, "hash2", 100)
	require.Equal(t, r1.Functions[0].ID, r2.Functions[0].ID)
}

func TestExtract_ContainsEdgeLinksFileToFunction(t *testing.T) {
	file := &uce.File{
		Functions: []uce.Function{{Name: "F", Loc: uce.Location{StartLine: 1, EndLine: 2}}},
	}
	result := Extract("a.go", file, "hash", 100)
	require.Len(t, result.ContainsEdges, 1)
	require.Equal(t, result.FileID, result.ContainsEdges[0].ParentID)
	require.Equal(t, result.Functions[0].ID, result.ContainsEdges[0].ChildID)
	require.Equal(t, 1, result.ContainsEdges[0].Line)
}

func TestExtract_UnresolvedCallsCarryCallerID(t *testing.T) {
	file := &uce.File{
		Functions: []uce.Function{
			{
				Name: "Caller", Loc: uce.Location{StartLine: 1, EndLine: 5},
				UnresolvedCalls: []uce.UnresolvedCall{
					{CalleeName: "Helper", Line: 3, IsDirect: true},
				},
			},
		},
	}
	result := Extract("a.go", file, "hash", 100)
	require.Len(t, result.UnresolvedCalls, 1)
	require.Equal(t, result.Functions[0].ID, result.UnresolvedCalls[0].CallerID)
	require.Equal(t, "Helper", result.UnresolvedCalls[0].CalleeName)
}

func TestExtract_EmbeddingTextCapped(t *testing.T) {
	longDoc := make([]byte, 500)
	for i := range longDoc {
		longDoc[i] = 'x'
	}
	file := &uce.File{
		Functions: []uce.Function{
			{Name: "F", Loc: uce.Location{StartLine: 1, EndLine: 2}, DocComment: string(longDoc), Signature: "func F()"},
		},
	}
	result := Extract("a.go", file, "hash", 100)
	require.LessOrEqual(t, len(result.Functions[0].EmbeddingText), EmbeddingTextCapBytes)
}

func TestExtract_ClassCarriesFieldsAndUnresolvedTypes(t *testing.T) {
	file := &uce.File{
		Classes: []uce.Class{
			{
				Name: "Widget", Loc: uce.Location{StartLine: 1, EndLine: 10},
				Fields:          []uce.Field{{Name: "ID", Type: "string", Line: 2}},
				UnresolvedTypes: []uce.UnresolvedTypeRef{{TypeName: "Base", Context: uce.CtxExtends}},
			},
		},
	}
	result := Extract("a.go", file, "hash", 100)
	require.Len(t, result.Classes, 1)
	require.Len(t, result.Fields, 1)
	require.Equal(t, "Widget", result.Fields[0].StructName)
	require.Len(t, result.UnresolvedTypeRefs, 1)
	require.Equal(t, result.Classes[0].ID, result.UnresolvedTypeRefs[0].SourceID)
}
