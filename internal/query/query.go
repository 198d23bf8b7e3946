// Package query is the read-only surface over the graph database (spec
// §6): structured Go data, never markdown, one method per external
// operation an AI-agent tool protocol or a local viewer would call. It
// follows the naming of the teacher's own pkg/tools functions
// (SearchText, FindCallers, FindCallees, ListFiles, IndexStatus) but
// returns typed rows instead of a rendered ToolResult, since there is no
// tool-protocol layer in this module's scope.
package query

import (
	"context"
	"fmt"

	"github.com/kraklabs/codegraph/internal/store"
)

// Querier is the read-only entry point over a Store.
type Querier struct {
	st *store.Store
}

// New wraps st for querying.
func New(st *store.Store) *Querier {
	return &Querier{st: st}
}

// FileRow is one row of ListFiles.
type FileRow struct {
	ID           string
	RelativePath string
	Language     string
	Framework    string
	SizeBytes    int64
}

// ListFiles returns every indexed file, optionally filtered by a
// substring of RelativePath.
func (q *Querier) ListFiles(ctx context.Context, pathContains string) ([]FileRow, error) {
	script := `SELECT id, relative_path, COALESCE(language,''), COALESCE(framework,''), size_bytes FROM cg_file`
	params := map[string]any{}
	if pathContains != "" {
		script += ` WHERE relative_path LIKE :pat`
		params["pat"] = "%" + pathContains + "%"
	}
	script += ` ORDER BY relative_path`

	rows, err := q.st.Query(ctx, script, params)
	if err != nil {
		return nil, err
	}
	out := make([]FileRow, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		out = append(out, FileRow{
			ID:           asString(r[0]),
			RelativePath: asString(r[1]),
			Language:     asString(r[2]),
			Framework:    asString(r[3]),
			SizeBytes:    asInt64(r[4]),
		})
	}
	return out, nil
}

// FunctionRow is one row of ListFunctions/Search.
type FunctionRow struct {
	ID           string
	Name         string
	RelativePath string
	StartLine    int
	EndLine      int
	Signature    string
	Complexity   int
	IsExported   bool
}

// ListFunctions returns every function in file relativePath, or every
// function in the project if relativePath is empty.
func (q *Querier) ListFunctions(ctx context.Context, relativePath string) ([]FunctionRow, error) {
	script := `SELECT f.id, f.name, cf.relative_path, f.start_line, f.end_line, COALESCE(f.signature,''), f.complexity, f.is_exported
		FROM cg_function f JOIN cg_file cf ON cf.id = f.file_id`
	params := map[string]any{}
	if relativePath != "" {
		script += ` WHERE cf.relative_path = :path`
		params["path"] = relativePath
	}
	script += ` ORDER BY cf.relative_path, f.start_line`

	rows, err := q.st.Query(ctx, script, params)
	if err != nil {
		return nil, err
	}
	return functionRowsFrom(rows.Rows), nil
}

func functionRowsFrom(raw [][]any) []FunctionRow {
	out := make([]FunctionRow, 0, len(raw))
	for _, r := range raw {
		out = append(out, FunctionRow{
			ID:           asString(r[0]),
			Name:         asString(r[1]),
			RelativePath: asString(r[2]),
			StartLine:    int(asInt64(r[3])),
			EndLine:      int(asInt64(r[4])),
			Signature:    asString(r[5]),
			Complexity:   int(asInt64(r[6])),
			IsExported:   asInt64(r[7]) != 0,
		})
	}
	return out
}

// ClassRow is one row of ListClasses.
type ClassRow struct {
	ID              string
	Name            string
	RelativePath    string
	ExtendsName     string
	ImplementsNames string // raw JSON array, as stored
}

// ListClasses returns every class/struct declared in the project.
func (q *Querier) ListClasses(ctx context.Context) ([]ClassRow, error) {
	rows, err := q.st.Query(ctx,
		`SELECT c.id, c.name, cf.relative_path, COALESCE(c.extends_name,''), COALESCE(c.implements_names,'[]')
		 FROM cg_class c JOIN cg_file cf ON cf.id = c.file_id ORDER BY cf.relative_path, c.name`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]ClassRow, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		out = append(out, ClassRow{
			ID: asString(r[0]), Name: asString(r[1]), RelativePath: asString(r[2]),
			ExtendsName: asString(r[3]), ImplementsNames: asString(r[4]),
		})
	}
	return out, nil
}

// InterfaceRow is one row of ListInterfaces.
type InterfaceRow struct {
	ID           string
	Name         string
	RelativePath string
}

// ListInterfaces returns every interface declared in the project.
func (q *Querier) ListInterfaces(ctx context.Context) ([]InterfaceRow, error) {
	rows, err := q.st.Query(ctx,
		`SELECT i.id, i.name, cf.relative_path FROM cg_interface i JOIN cg_file cf ON cf.id = i.file_id ORDER BY cf.relative_path, i.name`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]InterfaceRow, 0, len(rows.Rows))
	for _, r := range rows.Rows {
		out = append(out, InterfaceRow{ID: asString(r[0]), Name: asString(r[1]), RelativePath: asString(r[2])})
	}
	return out, nil
}

// Entity is the union result of GetEntity: exactly one of Function/Class/
// Interface is non-nil.
type Entity struct {
	Function  *FunctionRow
	Class     *ClassRow
	Interface *InterfaceRow
}

// GetEntity resolves id against every entity-kind table until one
// matches.
func (q *Querier) GetEntity(ctx context.Context, id string) (*Entity, error) {
	fnRows, err := q.st.Query(ctx,
		`SELECT f.id, f.name, cf.relative_path, f.start_line, f.end_line, COALESCE(f.signature,''), f.complexity, f.is_exported
		 FROM cg_function f JOIN cg_file cf ON cf.id = f.file_id WHERE f.id = :id`,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(fnRows.Rows) > 0 {
		rows := functionRowsFrom(fnRows.Rows)
		return &Entity{Function: &rows[0]}, nil
	}

	classRows, err := q.st.Query(ctx,
		`SELECT c.id, c.name, cf.relative_path, COALESCE(c.extends_name,''), COALESCE(c.implements_names,'[]')
		 FROM cg_class c JOIN cg_file cf ON cf.id = c.file_id WHERE c.id = :id`,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(classRows.Rows) > 0 {
		r := classRows.Rows[0]
		return &Entity{Class: &ClassRow{
			ID: asString(r[0]), Name: asString(r[1]), RelativePath: asString(r[2]),
			ExtendsName: asString(r[3]), ImplementsNames: asString(r[4]),
		}}, nil
	}

	ifaceRows, err := q.st.Query(ctx,
		`SELECT i.id, i.name, cf.relative_path FROM cg_interface i JOIN cg_file cf ON cf.id = i.file_id WHERE i.id = :id`,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(ifaceRows.Rows) > 0 {
		r := ifaceRows.Rows[0]
		return &Entity{Interface: &InterfaceRow{ID: asString(r[0]), Name: asString(r[1]), RelativePath: asString(r[2])}}, nil
	}

	return nil, nil
}

// CallEdgeRow is one row of GetCallers/GetCallees.
type CallEdgeRow struct {
	FunctionID string
	Name       string
	Line       int
	IsDirect   bool
}

// GetCallers returns every function that calls functionID.
func (q *Querier) GetCallers(ctx context.Context, functionID string) ([]CallEdgeRow, error) {
	rows, err := q.st.Query(ctx,
		`SELECT f.id, f.name, c.line, c.is_direct FROM cg_calls c JOIN cg_function f ON f.id = c.caller_id WHERE c.callee_id = :id`,
		map[string]any{"id": functionID})
	if err != nil {
		return nil, err
	}
	return callEdgesFrom(rows.Rows), nil
}

// GetCallees returns every function functionID calls.
func (q *Querier) GetCallees(ctx context.Context, functionID string) ([]CallEdgeRow, error) {
	rows, err := q.st.Query(ctx,
		`SELECT f.id, f.name, c.line, c.is_direct FROM cg_calls c JOIN cg_function f ON f.id = c.callee_id WHERE c.caller_id = :id`,
		map[string]any{"id": functionID})
	if err != nil {
		return nil, err
	}
	return callEdgesFrom(rows.Rows), nil
}

func callEdgesFrom(raw [][]any) []CallEdgeRow {
	out := make([]CallEdgeRow, 0, len(raw))
	for _, r := range raw {
		out = append(out, CallEdgeRow{FunctionID: asString(r[0]), Name: asString(r[1]), Line: int(asInt64(r[2])), IsDirect: asInt64(r[3]) != 0})
	}
	return out
}

// ImportRow is one row of GetImports/GetImporters.
type ImportRow struct {
	RelativePath string
	ImportPath   string
	Alias        string
}

// GetImports returns every import declared by the file at relativePath.
func (q *Querier) GetImports(ctx context.Context, relativePath string) ([]ImportRow, error) {
	rows, err := q.st.Query(ctx,
		`SELECT cf.relative_path, i.import_path, COALESCE(i.alias,'') FROM cg_imports i
		 JOIN cg_file cf ON cf.id = i.from_file_id WHERE cf.relative_path = :path`,
		map[string]any{"path": relativePath})
	if err != nil {
		return nil, err
	}
	return importRowsFrom(rows.Rows), nil
}

// GetImporters returns every file that imports importPath.
func (q *Querier) GetImporters(ctx context.Context, importPath string) ([]ImportRow, error) {
	rows, err := q.st.Query(ctx,
		`SELECT cf.relative_path, i.import_path, COALESCE(i.alias,'') FROM cg_imports i
		 JOIN cg_file cf ON cf.id = i.from_file_id WHERE i.import_path = :path`,
		map[string]any{"path": importPath})
	if err != nil {
		return nil, err
	}
	return importRowsFrom(rows.Rows), nil
}

func importRowsFrom(raw [][]any) []ImportRow {
	out := make([]ImportRow, 0, len(raw))
	for _, r := range raw {
		out = append(out, ImportRow{RelativePath: asString(r[0]), ImportPath: asString(r[1]), Alias: asString(r[2])})
	}
	return out
}

// Search matches pattern against function name, signature, or doc
// comment (searchIn: "name", "signature", "doc", or "all"). limit <= 0
// defaults to 20.
func (q *Querier) Search(ctx context.Context, pattern, searchIn string, limit int) ([]FunctionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	if searchIn == "" {
		searchIn = "all"
	}
	like := "%" + pattern + "%"

	var condition string
	params := map[string]any{"limit": limit}
	switch searchIn {
	case "name":
		condition = "f.name LIKE :p1"
		params["p1"] = like
	case "signature":
		condition = "f.signature LIKE :p1"
		params["p1"] = like
	case "doc":
		condition = "f.doc_comment LIKE :p1"
		params["p1"] = like
	default:
		condition = "(f.name LIKE :p1 OR f.signature LIKE :p2 OR f.doc_comment LIKE :p3)"
		params["p1"], params["p2"], params["p3"] = like, like, like
	}

	script := fmt.Sprintf(
		`SELECT f.id, f.name, cf.relative_path, f.start_line, f.end_line, COALESCE(f.signature,''), f.complexity, f.is_exported
		 FROM cg_function f JOIN cg_file cf ON cf.id = f.file_id WHERE %s ORDER BY cf.relative_path, f.start_line LIMIT :limit`,
		condition)

	rows, err := q.st.Query(ctx, script, params)
	if err != nil {
		return nil, err
	}
	return functionRowsFrom(rows.Rows), nil
}

// MostComplex returns the limit functions with the highest cyclomatic
// complexity, descending.
func (q *Querier) MostComplex(ctx context.Context, limit int) ([]FunctionRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := q.st.Query(ctx,
		`SELECT f.id, f.name, cf.relative_path, f.start_line, f.end_line, COALESCE(f.signature,''), f.complexity, f.is_exported
		 FROM cg_function f JOIN cg_file cf ON cf.id = f.file_id ORDER BY f.complexity DESC LIMIT :limit`,
		map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return functionRowsFrom(rows.Rows), nil
}

// OverviewStats is the project-wide summary GetOverviewStats returns.
type OverviewStats struct {
	FileCount      int
	FunctionCount  int
	ClassCount     int
	InterfaceCount int
	CallEdgeCount  int
	GhostNodeCount int
}

// OverviewStats counts every entity kind, tolerating a missing table
// (pre-migration store) by treating it as zero rather than failing the
// whole summary — the same count-with-fallback idiom the teacher's own
// indexStatusState.countEntities uses.
func (q *Querier) OverviewStats(ctx context.Context) (OverviewStats, error) {
	var stats OverviewStats
	counts := []struct {
		table string
		dest  *int
	}{
		{"cg_file", &stats.FileCount},
		{"cg_function", &stats.FunctionCount},
		{"cg_class", &stats.ClassCount},
		{"cg_interface", &stats.InterfaceCount},
		{"cg_calls", &stats.CallEdgeCount},
		{"cg_ghost_node", &stats.GhostNodeCount},
	}
	for _, c := range counts {
		n, err := q.count(ctx, c.table)
		if err != nil {
			continue
		}
		*c.dest = n
	}
	return stats, nil
}

func (q *Querier) count(ctx context.Context, table string) (int, error) {
	rows, err := q.st.Query(ctx, "SELECT COUNT(*) FROM "+table, nil)
	if err != nil {
		return 0, err
	}
	if len(rows.Rows) == 0 {
		return 0, nil
	}
	return int(asInt64(rows.Rows[0][0])), nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
