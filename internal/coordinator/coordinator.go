// Package coordinator implements the Indexer Coordinator (C8): the
// top-level orchestration that drives a project through
// scanning -> parsing -> extracting -> storing -> linking, using a bounded
// worker pool for the parallelizable parse/extract stage. All store writes
// of a run are issued from Run's own goroutine inside one transaction;
// there is no separate writer goroutine or write channel.
//
// The worker-pool shape (jobs channel of file indices, a buffered results
// channel, an atomic progress counter, a ProgressCallback reporting
// (current, total, phase)) is adapted from parseFilesParallel in the
// teacher's pkg/ingestion/local_pipeline.go. The hash-diff skip/delete/
// reinsert cycle below is adapted from the same file's incremental
// re-index path, driven by HashDeltaDetector's added/modified/deleted
// classification (internal/scan.DiffAgainstStored) rather than re-parsing
// everything on every run.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/codegraph/internal/cgerr"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/idgen"
	"github.com/kraklabs/codegraph/internal/link"
	"github.com/kraklabs/codegraph/internal/migrate"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"
	"github.com/kraklabs/codegraph/internal/uce"
)

// Phase names a stage of the run, reported via ProgressCallback.
type Phase string

const (
	PhaseScanning   Phase = "scanning"
	PhaseParsing    Phase = "parsing"
	PhaseExtracting Phase = "extracting"
	PhaseStoring    Phase = "storing"
	PhaseLinking    Phase = "linking"
)

// ProgressCallback reports (current, total) progress within phase. current
// and total share parseFilesParallel's 1-based, monotonically increasing
// semantics.
type ProgressCallback func(phase Phase, current, total int)

// Options configures a Run.
type Options struct {
	RootDir          string
	IncludeGlobs     []string
	ExcludeGlobs     []string
	MaxFileSizeBytes int64
	Workers          int // 0 selects runtime.NumCPU, capped at 8
	OnProgress       ProgressCallback
	// MaxFailureRate aborts the run if the fraction of files that fail to
	// parse exceeds this threshold (0 disables the check).
	MaxFailureRate float64
	// Paths forces the named relative paths into this run's changed set on
	// top of whatever the hash/git diff already finds, so a watcher's
	// specific FileChangeEvent paths get reprocessed even if their content
	// hash happens to match what's stored (e.g. a save that restores the
	// same bytes). It never restricts the run: Run always does a full scan
	// of RootDir so deletions and untouched adds are still caught.
	Paths []string
}

// FileError records a per-file failure that did not abort the run.
type FileError struct {
	RelativePath string
	Err          error
}

// Result summarizes one coordinator run.
type Result struct {
	FilesScanned    int
	FilesIndexed    int
	FilesSkipped    int // unchanged by content hash, not reprocessed
	FilesDeleted    int // present in the store but missing from disk
	FunctionsStored int
	ClassesStored   int
	CallsResolved   int
	GhostNodes      int
	FileErrors      []FileError
	Diagnostics     []*cgerr.Diagnostic
}

// Coordinator drives one project through the full pipeline against a
// single store. The store's own RWMutex enforces single-writer discipline;
// the coordinator additionally serializes all writes onto one goroutine so
// entity batches land as a coherent, ordered sequence.
type Coordinator struct {
	st     *store.Store
	parser uce.Parser
	wLock  sync.Mutex // serializes an entire run's read-decide-write cycle
}

// New returns a Coordinator bound to st, parsing source with parser.
func New(st *store.Store, parser uce.Parser) *Coordinator {
	return &Coordinator{st: st, parser: parser}
}

// EnsureSchema applies every core migration. Call once before the first
// Run against a fresh store.
func (c *Coordinator) EnsureSchema(ctx context.Context) error {
	runner := migrate.NewRunner(c.st.DB(), migrate.CoreMigrations())
	return runner.MigrateUp(ctx, 0)
}

type parsedFile struct {
	relativePath string
	language     string
	file         *uce.File
	info         scan.FileInfo
	err          error
}

// Run executes scanning, a content-hash diff against the store's prior
// state, parsing+extraction (parallel, changed files only), storing, and
// linking for opts.RootDir. A file whose hash matches the stored one is
// skipped entirely; a changed or added file has its prior rows deleted and
// replaced; a file the scan no longer finds has its rows deleted outright
// (spec §4.8, §3.4 cascade-delete-on-removal).
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}
	report := opts.OnProgress
	if report == nil {
		report = func(Phase, int, int) {}
	}

	scanResult, err := scan.Walk(opts.RootDir, scan.Options{
		IncludeGlobs:     opts.IncludeGlobs,
		ExcludeGlobs:     opts.ExcludeGlobs,
		MaxFileSizeBytes: opts.MaxFileSizeBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	for _, d := range scanResult.Diagnostics {
		result.Diagnostics = append(result.Diagnostics, cgerr.NewDiagnostic(d.RelativePath, "", d.Err, d.Err, ""))
	}
	result.FilesScanned = len(scanResult.Files)
	report(PhaseScanning, len(scanResult.Files), len(scanResult.Files))

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkerCount()
	}

	// The whole read-diff-parse-write cycle runs under wLock so a
	// concurrently triggered Run (e.g. from the watcher) can't observe or
	// act on a half-updated store.
	c.wLock.Lock()
	defer c.wLock.Unlock()

	stored, err := c.storedHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored file hashes: %w", err)
	}

	byPath := make(map[string]scan.FileInfo, len(scanResult.Files))
	for _, f := range scanResult.Files {
		byPath[f.RelativePath] = f
	}
	delta := diffDelta(opts.RootDir, scanResult.Files, byPath, stored)
	result.FilesDeleted = len(delta.Deleted)

	changedPaths := make(map[string]bool, len(delta.Added)+len(delta.Modified)+len(opts.Paths))
	for _, p := range delta.Added {
		changedPaths[p] = true
	}
	for _, p := range delta.Modified {
		changedPaths[p] = true
	}
	// A caller that knows exactly which paths a watcher batch touched (spec
	// §4.9) can force them into this run's changed set even when their
	// content hash happens to match what's stored, e.g. a save that
	// restores the same bytes.
	for _, p := range opts.Paths {
		if _, ok := byPath[p]; ok {
			changedPaths[p] = true
		}
	}
	toParse := make([]scan.FileInfo, 0, len(changedPaths))
	for p := range changedPaths {
		toParse = append(toParse, byPath[p])
	}
	result.FilesSkipped = len(scanResult.Files) - len(toParse)

	parsed := c.parseAndExtract(ctx, toParse, workers, report)

	var failed int
	var extractResults []*extract.Result
	for _, pf := range parsed {
		if pf.err != nil {
			failed++
			result.FileErrors = append(result.FileErrors, FileError{RelativePath: pf.relativePath, Err: pf.err})
			continue
		}
		extractResults = append(extractResults, extract.Extract(pf.relativePath, pf.file, pf.info.ContentHash, pf.info.SizeBytes))
	}
	if opts.MaxFailureRate > 0 && len(toParse) > 0 {
		rate := float64(failed) / float64(len(toParse))
		if rate > opts.MaxFailureRate {
			return result, fmt.Errorf("%w: parse failure rate %.2f exceeds threshold %.2f", cgerr.ErrExtractionFailure, rate, opts.MaxFailureRate)
		}
	}

	linker := link.New()
	for _, r := range extractResults {
		linker.AddFile(r)
	}
	// Cross-file calls may target a file whose content didn't change this
	// run; rehydrate just enough of its symbol table from the store so
	// calls from changed files can still resolve into it. An unchanged
	// file's own outgoing calls are not re-resolved in this run.
	for _, f := range scanResult.Files {
		if changedPaths[f.RelativePath] {
			continue
		}
		rehydrated, err := c.loadIndexedFile(ctx, f.RelativePath)
		if err != nil {
			return nil, fmt.Errorf("rehydrate %s: %w", f.RelativePath, err)
		}
		if rehydrated != nil {
			linker.AddFile(rehydrated)
		}
	}

	err = c.st.WithTransaction(ctx, func(tx *store.Tx) error {
		for _, p := range delta.Deleted {
			if err := deleteFileCascade(ctx, tx, idgen.FileID(p)); err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
		}

		total := len(extractResults)
		for i, r := range extractResults {
			if err := deleteFileCascade(ctx, tx, r.FileID); err != nil {
				return fmt.Errorf("clear prior rows for %s: %w", r.RelativePath, err)
			}
			if err := writeFileResult(ctx, tx, r); err != nil {
				return fmt.Errorf("store %s: %w", r.RelativePath, err)
			}
			report(PhaseStoring, i+1, total)
		}
		for i, r := range extractResults {
			resolved := linker.Resolve(r)
			if err := writeResolved(ctx, tx, resolved); err != nil {
				return fmt.Errorf("link %s: %w", r.RelativePath, err)
			}
			result.CallsResolved += len(resolved.Calls)
			result.GhostNodes += len(resolved.GhostNodes)
			report(PhaseLinking, i+1, len(extractResults))
		}
		if len(delta.Deleted) > 0 || len(extractResults) > 0 {
			if err := link.CompactGhosts(ctx, tx); err != nil {
				return fmt.Errorf("compact ghost nodes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	result.FilesIndexed = len(extractResults)
	for _, r := range extractResults {
		result.FunctionsStored += len(r.Functions)
		result.ClassesStored += len(r.Classes)
	}
	return result, nil
}

// storedHashes loads the relativePath->contentHash snapshot the previous
// run left behind, the basis for this run's added/modified/deleted split.
func (c *Coordinator) storedHashes(ctx context.Context) (map[string]string, error) {
	rows, err := c.st.Query(ctx, `SELECT relative_path, content_hash FROM cg_file`, nil)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(rows.Rows))
	for _, row := range rows.Rows {
		if len(row) < 2 {
			continue
		}
		path, _ := row[0].(string)
		hash, _ := row[1].(string)
		hashes[path] = hash
	}
	return hashes, nil
}

// diffDelta classifies this run's changed paths, preferring a git-based
// diff (scan.GitDiff) over stored-hash comparison when root is a git
// checkout: scanning `git diff --name-status` against HEAD is cheaper than
// hashing every tracked file to find the handful that moved. Falls back to
// scan.DiffAgainstStored when root isn't a git checkout, or when git's
// Added/Modified classification needs correcting against what's actually on
// disk (a path git reports but the scan excluded via globs, or a path git
// missed because it predates the repo).
func diffDelta(root string, files []scan.FileInfo, byPath map[string]scan.FileInfo, stored map[string]string) scan.Delta {
	gitDelta, ok := scan.GitDiff(root)
	if !ok {
		return scan.DiffAgainstStored(files, stored)
	}

	delta := scan.Delta{}
	for _, p := range gitDelta.Added {
		if _, in := byPath[p]; in {
			delta.Added = append(delta.Added, p)
		}
	}
	for _, p := range gitDelta.Modified {
		if _, in := byPath[p]; in {
			delta.Modified = append(delta.Modified, p)
		}
	}
	for _, p := range gitDelta.Deleted {
		if _, wasStored := stored[p]; wasStored {
			if _, stillPresent := byPath[p]; !stillPresent {
				delta.Deleted = append(delta.Deleted, p)
			}
		}
	}
	// Any stored path git's diff didn't mention at all (e.g. it predates
	// the repo's first commit, or git itself reported nothing because the
	// checkout has no HEAD yet) still needs deletion detection.
	reported := make(map[string]bool, len(gitDelta.Added)+len(gitDelta.Modified)+len(gitDelta.Deleted))
	for _, p := range gitDelta.Added {
		reported[p] = true
	}
	for _, p := range gitDelta.Modified {
		reported[p] = true
	}
	for _, p := range gitDelta.Deleted {
		reported[p] = true
	}
	for p := range stored {
		if reported[p] {
			continue
		}
		if _, stillPresent := byPath[p]; !stillPresent {
			delta.Deleted = append(delta.Deleted, p)
		}
	}
	// Files on disk that git didn't mention (committed and clean, e.g. on
	// the first index of a checkout) are classified by stored hash instead.
	hashDelta := scan.DiffAgainstStored(files, stored)
	for _, p := range hashDelta.Added {
		if !reported[p] {
			delta.Added = append(delta.Added, p)
		}
	}
	for _, p := range hashDelta.Modified {
		if !reported[p] {
			delta.Modified = append(delta.Modified, p)
		}
	}
	return delta
}

// loadIndexedFile rebuilds just enough of an *extract.Result from
// previously stored rows to seed the linker's symbol table for a file this
// run didn't re-parse. Returns nil if the file isn't indexed (e.g. it was
// just added via a pure-metadata path with no rows yet).
func (c *Coordinator) loadIndexedFile(ctx context.Context, relativePath string) (*extract.Result, error) {
	fileID := idgen.FileID(relativePath)

	fileRows, err := c.st.Query(ctx, `SELECT 1 FROM cg_file WHERE id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	if len(fileRows.Rows) == 0 {
		// Nothing indexed for this path yet; nothing to rehydrate.
		return nil, nil
	}

	result := &extract.Result{FileID: fileID, RelativePath: relativePath}

	funcRows, err := c.st.Query(ctx, `SELECT id, name FROM cg_function WHERE file_id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	for _, row := range funcRows.Rows {
		id, _ := row[0].(string)
		name, _ := row[1].(string)
		result.Functions = append(result.Functions, extract.FunctionRow{ID: id, Name: name})
	}

	clsRows, err := c.st.Query(ctx, `SELECT id, name, implements_names FROM cg_class WHERE file_id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	for _, row := range clsRows.Rows {
		id, _ := row[0].(string)
		name, _ := row[1].(string)
		cls := extract.ClassRow{ID: id, Name: name}
		if raw, ok := row[2].(string); ok && raw != "" {
			_ = json.Unmarshal([]byte(raw), &cls.ImplementsNames)
		}
		result.Classes = append(result.Classes, cls)
	}

	ifaceRows, err := c.st.Query(ctx, `SELECT id, name FROM cg_interface WHERE file_id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	for _, row := range ifaceRows.Rows {
		id, _ := row[0].(string)
		name, _ := row[1].(string)
		result.Interfaces = append(result.Interfaces, extract.InterfaceRow{ID: id, Name: name})
	}

	aliasRows, err := c.st.Query(ctx, `SELECT id, name FROM cg_type_alias WHERE file_id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	for _, row := range aliasRows.Rows {
		id, _ := row[0].(string)
		name, _ := row[1].(string)
		result.TypeAliases = append(result.TypeAliases, extract.TypeAliasRow{ID: id, Name: name})
	}

	fieldRows, err := c.st.Query(ctx, `SELECT struct_name, field_name, field_type FROM cg_field WHERE file_id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	for _, row := range fieldRows.Rows {
		structName, _ := row[0].(string)
		fieldName, _ := row[1].(string)
		fieldType, _ := row[2].(string)
		result.Fields = append(result.Fields, extract.FieldRow{StructName: structName, FieldName: fieldName, FieldType: fieldType})
	}

	impRows, err := c.st.Query(ctx, `SELECT import_path, alias FROM cg_imports WHERE from_file_id = :id`, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	for _, row := range impRows.Rows {
		importPath, _ := row[0].(string)
		alias, _ := row[1].(string)
		result.Imports = append(result.Imports, extract.ImportRow{FromFileID: fileID, ImportPath: importPath, Alias: alias})
	}

	return result, nil
}

// deleteFileCascade removes every row keyed by fileID: its own cg_file row
// (which cascades to cg_function/cg_class/cg_interface/cg_type_alias/
// cg_variable/cg_field via their ON DELETE CASCADE foreign keys) plus the
// edge-table rows that reference the file or its entities but carry no FK
// of their own (spec §3.4: a changed or removed file's rows are deleted
// before any reinsert).
func deleteFileCascade(ctx context.Context, tx *store.Tx, fileID string) error {
	entityIDs, err := collectEntityIDs(ctx, tx, fileID)
	if err != nil {
		return err
	}

	if err := tx.Execute(ctx, `DELETE FROM cg_contains WHERE parent_id = :id`, map[string]any{"id": fileID}); err != nil {
		return err
	}
	if err := tx.Execute(ctx, `DELETE FROM cg_imports WHERE from_file_id = :id`, map[string]any{"id": fileID}); err != nil {
		return err
	}

	if len(entityIDs) > 0 {
		idClause, idParams := inClause("e", entityIDs)
		stmts := []string{
			`DELETE FROM cg_contains WHERE parent_id IN (` + idClause + `) OR child_id IN (` + idClause + `)`,
			`DELETE FROM cg_calls WHERE caller_id IN (` + idClause + `) OR callee_id IN (` + idClause + `)`,
			`DELETE FROM cg_uses_type WHERE source_id IN (` + idClause + `)`,
			`DELETE FROM cg_extends WHERE source_id IN (` + idClause + `) OR target_id IN (` + idClause + `)`,
			`DELETE FROM cg_implements WHERE source_id IN (` + idClause + `) OR target_id IN (` + idClause + `)`,
			`DELETE FROM cg_extends_interface WHERE source_id IN (` + idClause + `) OR target_id IN (` + idClause + `)`,
			`DELETE FROM cg_has_method WHERE class_id IN (` + idClause + `) OR function_id IN (` + idClause + `)`,
			`DELETE FROM cg_references_external WHERE source_id IN (` + idClause + `)`,
		}
		for _, stmt := range stmts {
			if err := tx.Execute(ctx, stmt, idParams); err != nil {
				return err
			}
		}
	}

	return tx.Execute(ctx, `DELETE FROM cg_file WHERE id = :id`, map[string]any{"id": fileID})
}

// collectEntityIDs gathers every entity id cg_file's ON DELETE CASCADE
// would remove, so edge tables that reference those ids directly (and
// carry no FK back to cg_file) can be cleared before the cascade fires.
func collectEntityIDs(ctx context.Context, tx *store.Tx, fileID string) ([]string, error) {
	tables := []string{"cg_function", "cg_class", "cg_interface", "cg_type_alias", "cg_variable", "cg_field"}
	var ids []string
	for _, table := range tables {
		rows, err := tx.Query(ctx, `SELECT id FROM `+table+` WHERE file_id = :id`, map[string]any{"id": fileID})
		if err != nil {
			return nil, err
		}
		for _, row := range rows.Rows {
			if len(row) == 0 {
				continue
			}
			if id, ok := row[0].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// inClause builds a "(:prefix0,:prefix1,...)"-ready placeholder list and
// its matching named-param map for a dynamic IN (...) clause.
func inClause(prefix string, ids []string) (string, map[string]any) {
	placeholders := make([]string, len(ids))
	params := make(map[string]any, len(ids))
	for i, id := range ids {
		name := fmt.Sprintf("%s%d", prefix, i)
		placeholders[i] = ":" + name
		params[name] = id
	}
	return strings.Join(placeholders, ","), params
}

func (c *Coordinator) parseAndExtract(ctx context.Context, files []scan.FileInfo, workers int, report ProgressCallback) []parsedFile {
	if len(files) == 0 {
		return nil
	}
	if len(files) < 10 || workers <= 1 {
		return c.parseSequential(ctx, files, report)
	}

	jobs := make(chan int, len(files))
	resultsCh := make(chan parsedFile, len(files))
	var progressCount int64
	total := len(files)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				resultsCh <- c.parseOne(files[i])
				current := atomic.AddInt64(&progressCount, 1)
				report(PhaseParsing, int(current), total)
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make([]parsedFile, 0, len(files))
	for r := range resultsCh {
		results = append(results, r)
	}
	return results
}

func (c *Coordinator) parseSequential(ctx context.Context, files []scan.FileInfo, report ProgressCallback) []parsedFile {
	results := make([]parsedFile, 0, len(files))
	for i, f := range files {
		select {
		case <-ctx.Done():
			return results
		default:
		}
		results = append(results, c.parseOne(f))
		report(PhaseParsing, i+1, len(files))
	}
	return results
}

func (c *Coordinator) parseOne(f scan.FileInfo) parsedFile {
	content, err := os.ReadFile(f.AbsolutePath)
	if err != nil {
		return parsedFile{relativePath: f.RelativePath, info: f, err: err}
	}
	language := languageForExt(f.RelativePath)
	file, err := c.parser.Parse(content, language)
	if err != nil {
		return parsedFile{relativePath: f.RelativePath, info: f, err: fmt.Errorf("%w: %v", cgerr.ErrParseFailure, err)}
	}
	file.RelativePath = f.RelativePath
	return parsedFile{relativePath: f.RelativePath, language: language, file: file, info: f}
}

func languageForExt(relativePath string) string {
	for i := len(relativePath) - 1; i >= 0; i-- {
		if relativePath[i] == '.' {
			switch relativePath[i:] {
			case ".go":
				return "go"
			case ".ts", ".tsx":
				return "typescript"
			case ".js", ".jsx":
				return "javascript"
			case ".py":
				return "python"
			}
			break
		}
	}
	return "unknown"
}

func defaultWorkerCount() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// writeFileResult persists one file's extracted entities: the file row
// itself, then every entity kind and its contains edge. The caller is
// responsible for clearing any prior rows for this file id first (see
// deleteFileCascade) — this function only inserts.
func writeFileResult(ctx context.Context, tx *store.Tx, r *extract.Result) error {
	if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_file (id, absolute_path, relative_path, extension, content_hash, size_bytes) VALUES (:id, :abs, :rel, :ext, :hash, :size)`,
		map[string]any{"id": r.FileID, "abs": r.RelativePath, "rel": r.RelativePath, "ext": extOf(r.RelativePath), "hash": r.ContentHash, "size": r.SizeBytes}); err != nil {
		return err
	}

	for _, fn := range r.Functions {
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_function
			(id, name, file_id, start_line, end_line, start_col, end_col, signature, return_type, is_exported, is_async, complexity, parameter_count, doc_comment, embedding_text)
			VALUES (:id, :name, :file_id, :sl, :el, :sc, :ec, :sig, :ret, :exp, :async, :cx, :pc, :doc, :emb)`,
			map[string]any{
				"id": fn.ID, "name": fn.Name, "file_id": r.FileID, "sl": fn.StartLine, "el": fn.EndLine,
				"sc": fn.StartCol, "ec": fn.EndCol, "sig": fn.Signature, "ret": fn.ReturnType,
				"exp": boolToInt(fn.IsExported), "async": boolToInt(fn.IsAsync), "cx": fn.Complexity,
				"pc": fn.ParameterCount, "doc": fn.DocComment, "emb": fn.EmbeddingText,
			}); err != nil {
			return err
		}
	}

	for _, cls := range r.Classes {
		implementsJSON, err := json.Marshal(cls.ImplementsNames)
		if err != nil {
			return err
		}
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_class
			(id, name, file_id, start_line, end_line, is_abstract, is_exported, extends_name, implements_names, doc_comment)
			VALUES (:id, :name, :file_id, :sl, :el, :abs, :exp, :ext, :impl, :doc)`,
			map[string]any{
				"id": cls.ID, "name": cls.Name, "file_id": r.FileID, "sl": cls.StartLine, "el": cls.EndLine,
				"abs": boolToInt(cls.IsAbstract), "exp": boolToInt(cls.IsExported), "ext": cls.ExtendsName,
				"impl": string(implementsJSON), "doc": cls.DocComment,
			}); err != nil {
			return err
		}
	}

	for _, iface := range r.Interfaces {
		extendsJSON, err := json.Marshal(iface.ExtendsNames)
		if err != nil {
			return err
		}
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_interface (id, name, file_id, start_line, end_line, is_exported, extends_names, doc_comment)
			VALUES (:id, :name, :file_id, :sl, :el, :exp, :ext, :doc)`,
			map[string]any{
				"id": iface.ID, "name": iface.Name, "file_id": r.FileID, "sl": iface.StartLine, "el": iface.EndLine,
				"exp": boolToInt(iface.IsExported), "ext": string(extendsJSON), "doc": iface.DocComment,
			}); err != nil {
			return err
		}
	}

	for _, alias := range r.TypeAliases {
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_type_alias (id, name, file_id, start_line, is_exported)
			VALUES (:id, :name, :file_id, :sl, :exp)`,
			map[string]any{"id": alias.ID, "name": alias.Name, "file_id": r.FileID, "sl": alias.StartLine, "exp": boolToInt(alias.IsExported)}); err != nil {
			return err
		}
	}

	for _, v := range r.Variables {
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_variable (id, name, file_id, start_line, type, is_exported)
			VALUES (:id, :name, :file_id, :sl, :type, :exp)`,
			map[string]any{"id": v.ID, "name": v.Name, "file_id": r.FileID, "sl": v.StartLine, "type": v.Type, "exp": boolToInt(v.IsExported)}); err != nil {
			return err
		}
	}

	for _, field := range r.Fields {
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_field (id, struct_name, field_name, field_type, file_id, line)
			VALUES (:id, :sn, :fn, :ft, :file_id, :line)`,
			map[string]any{"id": field.ID, "sn": field.StructName, "fn": field.FieldName, "ft": field.FieldType, "file_id": r.FileID, "line": field.Line}); err != nil {
			return err
		}
	}

	for _, imp := range r.Imports {
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_imports (from_file_id, to_file_id, import_path, alias, line)
			VALUES (:from, NULL, :path, :alias, :line)`,
			map[string]any{"from": imp.FromFileID, "path": imp.ImportPath, "alias": imp.Alias, "line": imp.Line}); err != nil {
			return err
		}
	}

	for _, edge := range r.ContainsEdges {
		if err := tx.Execute(ctx, `INSERT OR REPLACE INTO cg_contains (parent_id, child_id, line) VALUES (:p, :c, :line)`,
			map[string]any{"p": edge.ParentID, "c": edge.ChildID, "line": edge.Line}); err != nil {
			return err
		}
	}
	return nil
}

// writeResolved persists the call/type edges and ghost nodes one file's
// Resolve call produced.
func writeResolved(ctx context.Context, tx *store.Tx, resolved link.Resolved) error {
	for _, ghost := range resolved.GhostNodes {
		if err := tx.Execute(ctx, `INSERT OR IGNORE INTO cg_ghost_node (id, package_name, export_name) VALUES (:id, :pkg, :export)`,
			map[string]any{"id": ghost.ID, "pkg": ghost.PackageName, "export": ghost.ExportName}); err != nil {
			return err
		}
	}
	for _, call := range resolved.Calls {
		if err := tx.Execute(ctx, `INSERT OR IGNORE INTO cg_calls (caller_id, callee_id, line, is_direct) VALUES (:caller, :callee, 0, 1)`,
			map[string]any{"caller": call.CallerID, "callee": call.CalleeID}); err != nil {
			return err
		}
	}
	for _, te := range resolved.TypeEdges {
		if err := tx.Execute(ctx, `INSERT OR IGNORE INTO cg_uses_type (source_id, type_id, context, parameter_name) VALUES (:src, :type, 'extends', '')`,
			map[string]any{"src": te.SourceID, "type": te.TypeID}); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func extOf(relativePath string) string {
	for i := len(relativePath) - 1; i >= 0; i-- {
		if relativePath[i] == '.' {
			return relativePath[i:]
		}
		if relativePath[i] == '/' {
			break
		}
	}
	return ""
}
