package link

import (
	"testing"

	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/uce"
	"github.com/stretchr/testify/require"
)

func TestLinker_ResolvesQualifiedCrossPackageCall(t *testing.T) {
	l := New()

	helperFile := extract.Extract("pkg/helper/helper.go", &uce.File{
		PackageName: "helper",
		Functions:   []uce.Function{{Name: "Do", Loc: uce.Location{StartLine: 1, EndLine: 2}}},
	}, "hash", 1)
	l.AddFile(helperFile)

	callerFile := extract.Extract("pkg/main/main.go", &uce.File{
		PackageName: "main",
		Functions: []uce.Function{
			{
				Name: "Run", Loc: uce.Location{StartLine: 1, EndLine: 5},
				UnresolvedCalls: []uce.UnresolvedCall{{CalleeName: "helper.Do", Line: 3, IsDirect: true}},
			},
		},
		Imports: []uce.Import{{ImportPath: "pkg/helper", Line: 1}},
	}, "hash", 1)
	l.AddFile(callerFile)

	resolved := l.Resolve(callerFile)
	require.Len(t, resolved.Calls, 1)
	require.Equal(t, helperFile.Functions[0].ID, resolved.Calls[0].CalleeID)
	require.Empty(t, resolved.GhostNodes)
}

func TestLinker_ResolvesUnqualifiedSamePackageCall(t *testing.T) {
	l := New()

	file := extract.Extract("pkg/greet/greet.go", &uce.File{
		PackageName: "greet",
		Functions: []uce.Function{
			{
				Name: "Hello", Loc: uce.Location{StartLine: 1, EndLine: 3},
				UnresolvedCalls: []uce.UnresolvedCall{{CalleeName: "greet", Line: 2, IsDirect: true}},
			},
			{Name: "greet", Loc: uce.Location{StartLine: 5, EndLine: 6}},
		},
	}, "hash", 1)
	l.AddFile(file)

	resolved := l.Resolve(file)
	require.Len(t, resolved.Calls, 1)
	require.Equal(t, file.Functions[1].ID, resolved.Calls[0].CalleeID)
	require.Empty(t, resolved.GhostNodes)
}

func TestLinker_UnresolvableExternalCallBecomesGhost(t *testing.T) {
	l := New()
	callerFile := extract.Extract("pkg/main/main.go", &uce.File{
		PackageName: "main",
		Functions: []uce.Function{
			{
				Name: "Run", Loc: uce.Location{StartLine: 1, EndLine: 5},
				UnresolvedCalls: []uce.UnresolvedCall{{CalleeName: "fmt.Println", ModulePath: "fmt", Line: 2, IsDirect: true}},
			},
		},
	}, "hash", 1)
	l.AddFile(callerFile)

	resolved := l.Resolve(callerFile)
	require.Len(t, resolved.Calls, 1)
	require.Len(t, resolved.GhostNodes, 1)
	require.Equal(t, "fmt", resolved.GhostNodes[0].PackageName)
	require.Equal(t, "Println", resolved.GhostNodes[0].ExportName)
}

func TestLinker_InterfaceDispatchViaField(t *testing.T) {
	l := New()

	impl := extract.Extract("pkg/impl/impl.go", &uce.File{
		PackageName: "impl",
		Classes:     []uce.Class{{Name: "JSONWriter", Loc: uce.Location{StartLine: 1, EndLine: 2}, ImplementsNames: []string{"Writer"}}},
		Functions: []uce.Function{
			{Name: "JSONWriter.Write", ParentScope: "JSONWriter", Loc: uce.Location{StartLine: 3, EndLine: 4}, Signature: "func (w *JSONWriter) Write()"},
		},
	}, "hash", 1)
	l.AddFile(impl)

	caller := extract.Extract("pkg/main/main.go", &uce.File{
		PackageName: "main",
		Classes:     []uce.Class{{Name: "Builder", Loc: uce.Location{StartLine: 1, EndLine: 10}}},
		Fields:      nil,
		Functions: []uce.Function{
			{
				Name: "Builder.Build", ParentScope: "Builder", Loc: uce.Location{StartLine: 5, EndLine: 8},
				UnresolvedCalls: []uce.UnresolvedCall{{CalleeName: "b.writer.Write", Line: 6, IsDirect: true}},
			},
		},
	}, "hash", 1)
	caller.Fields = append(caller.Fields, extract.FieldRow{StructName: "Builder", FieldName: "writer", FieldType: "Writer"})
	l.AddFile(caller)

	resolved := l.Resolve(caller)
	require.Len(t, resolved.Calls, 1)
	require.Equal(t, impl.Functions[0].ID, resolved.Calls[0].CalleeID)
}

func TestLinker_UnresolvedTypeRefGetsGhostWhenUnknown(t *testing.T) {
	l := New()
	caller := extract.Extract("pkg/main/main.go", &uce.File{
		PackageName: "main",
		Classes: []uce.Class{
			{
				Name: "Handler", Loc: uce.Location{StartLine: 1, EndLine: 2},
				UnresolvedTypes: []uce.UnresolvedTypeRef{{TypeName: "RequestContext", Context: uce.CtxExtends}},
			},
		},
	}, "hash", 1)
	l.AddFile(caller)

	resolved := l.Resolve(caller)
	require.Len(t, resolved.TypeEdges, 1)
	require.Len(t, resolved.GhostNodes, 1)
}
