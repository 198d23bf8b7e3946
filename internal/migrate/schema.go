package migrate

import "database/sql"

// CoreMigrations returns the ordered migration list for the indexing
// pipeline's relations. The relation set mirrors the teacher's
// DatalogSchema() (vertically partitioned file/function/type tables, edge
// tables, ghost nodes) translated from CozoScript `:create` statements
// into SQL DDL for the sqlite-backed store (see DESIGN.md C2/C3).
func CoreMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "core_entities", Up: migrateV1Up, Down: migrateV1Down},
		{Version: 2, Name: "ghost_nodes_and_project_meta", Up: migrateV2Up, Down: migrateV2Down},
	}
}

func migrateV1Up(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE cg_file (
			id TEXT PRIMARY KEY,
			absolute_path TEXT NOT NULL,
			relative_path TEXT NOT NULL UNIQUE,
			extension TEXT,
			content_hash TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			last_indexed_at TEXT,
			language TEXT,
			framework TEXT
		)`,
		`CREATE TABLE cg_function (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_id TEXT NOT NULL REFERENCES cg_file(id) ON DELETE CASCADE,
			start_line INTEGER, end_line INTEGER, start_col INTEGER, end_col INTEGER,
			signature TEXT,
			return_type TEXT,
			is_exported INTEGER DEFAULT 0,
			is_async INTEGER DEFAULT 0,
			is_generator INTEGER DEFAULT 0,
			complexity INTEGER DEFAULT 1,
			parameter_count INTEGER DEFAULT 0,
			doc_comment TEXT,
			embedding_text TEXT,
			inference_confidence REAL
		)`,
		`CREATE INDEX idx_cg_function_file ON cg_function(file_id)`,
		`CREATE TABLE cg_function_code (
			function_id TEXT PRIMARY KEY REFERENCES cg_function(id) ON DELETE CASCADE,
			code_text TEXT
		)`,
		`CREATE TABLE cg_function_embedding (
			cie_function_embedding_id TEXT PRIMARY KEY REFERENCES cg_function(id) ON DELETE CASCADE,
			embedding BLOB
		)`,
		`CREATE TABLE cg_class (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_id TEXT NOT NULL REFERENCES cg_file(id) ON DELETE CASCADE,
			start_line INTEGER, end_line INTEGER,
			is_abstract INTEGER DEFAULT 0,
			is_exported INTEGER DEFAULT 0,
			extends_name TEXT,
			implements_names TEXT, -- JSON array
			doc_comment TEXT
		)`,
		`CREATE INDEX idx_cg_class_file ON cg_class(file_id)`,
		`CREATE TABLE cg_interface (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_id TEXT NOT NULL REFERENCES cg_file(id) ON DELETE CASCADE,
			start_line INTEGER, end_line INTEGER,
			is_exported INTEGER DEFAULT 0,
			extends_names TEXT, -- JSON array
			doc_comment TEXT
		)`,
		`CREATE TABLE cg_type_alias (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_id TEXT NOT NULL REFERENCES cg_file(id) ON DELETE CASCADE,
			start_line INTEGER, end_line INTEGER,
			is_exported INTEGER DEFAULT 0,
			doc_comment TEXT
		)`,
		`CREATE TABLE cg_variable (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_id TEXT NOT NULL REFERENCES cg_file(id) ON DELETE CASCADE,
			start_line INTEGER, end_line INTEGER,
			type TEXT,
			is_exported INTEGER DEFAULT 0,
			doc_comment TEXT
		)`,
		`CREATE TABLE cg_field (
			id TEXT PRIMARY KEY,
			struct_name TEXT NOT NULL,
			field_name TEXT NOT NULL,
			field_type TEXT NOT NULL,
			file_id TEXT NOT NULL REFERENCES cg_file(id) ON DELETE CASCADE,
			line INTEGER
		)`,
		`CREATE INDEX idx_cg_field_struct ON cg_field(struct_name)`,
		// Relationship tables (spec §3.2): all edges are first-class rows,
		// with no owning pointer, so cascade-delete is modeled per-endpoint
		// at the application layer rather than via a single FK (edges may
		// reference rows across several entity tables).
		`CREATE TABLE cg_contains (
			parent_id TEXT NOT NULL,
			child_id TEXT NOT NULL,
			line INTEGER,
			PRIMARY KEY (parent_id, child_id)
		)`,
		`CREATE TABLE cg_calls (
			caller_id TEXT NOT NULL,
			callee_id TEXT NOT NULL,
			line INTEGER,
			is_direct INTEGER DEFAULT 1,
			is_async INTEGER DEFAULT 0,
			PRIMARY KEY (caller_id, callee_id, line)
		)`,
		`CREATE INDEX idx_cg_calls_caller ON cg_calls(caller_id)`,
		`CREATE INDEX idx_cg_calls_callee ON cg_calls(callee_id)`,
		`CREATE TABLE cg_imports (
			from_file_id TEXT NOT NULL,
			to_file_id TEXT,
			import_path TEXT NOT NULL,
			alias TEXT,
			imported_symbols TEXT, -- JSON array
			line INTEGER,
			PRIMARY KEY (from_file_id, import_path)
		)`,
		`CREATE INDEX idx_cg_imports_to ON cg_imports(to_file_id)`,
		`CREATE TABLE cg_extends (source_id TEXT NOT NULL, target_id TEXT NOT NULL, PRIMARY KEY (source_id, target_id))`,
		`CREATE TABLE cg_implements (source_id TEXT NOT NULL, target_id TEXT NOT NULL, PRIMARY KEY (source_id, target_id))`,
		`CREATE TABLE cg_extends_interface (source_id TEXT NOT NULL, target_id TEXT NOT NULL, PRIMARY KEY (source_id, target_id))`,
		`CREATE TABLE cg_has_method (
			class_id TEXT NOT NULL,
			function_id TEXT NOT NULL,
			visibility TEXT,
			is_static INTEGER DEFAULT 0,
			is_abstract INTEGER DEFAULT 0,
			PRIMARY KEY (class_id, function_id)
		)`,
		`CREATE TABLE cg_uses_type (
			source_id TEXT NOT NULL,
			type_id TEXT NOT NULL,
			context TEXT NOT NULL,
			parameter_name TEXT,
			PRIMARY KEY (source_id, type_id, context, parameter_name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateV1Down(tx *sql.Tx) error {
	tables := []string{
		"cg_uses_type", "cg_has_method", "cg_extends_interface", "cg_implements", "cg_extends",
		"cg_imports", "cg_calls", "cg_contains", "cg_field", "cg_variable", "cg_type_alias",
		"cg_interface", "cg_class", "cg_function_embedding", "cg_function_code", "cg_function", "cg_file",
	}
	for _, t := range tables {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return err
		}
	}
	return nil
}

func migrateV2Up(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE cg_ghost_node (
			id TEXT PRIMARY KEY,
			package_name TEXT NOT NULL,
			export_name TEXT NOT NULL,
			UNIQUE (package_name, export_name)
		)`,
		`CREATE TABLE cg_references_external (
			source_id TEXT NOT NULL,
			ghost_id TEXT NOT NULL REFERENCES cg_ghost_node(id) ON DELETE CASCADE,
			PRIMARY KEY (source_id, ghost_id)
		)`,
		`CREATE TABLE cg_project_meta (key TEXT PRIMARY KEY, value TEXT)`,
		`CREATE TABLE cg_semantic_cache (
			function_id TEXT NOT NULL,
			file_content_hash TEXT NOT NULL,
			analyzer TEXT NOT NULL,
			result_json TEXT NOT NULL,
			PRIMARY KEY (function_id, file_content_hash, analyzer)
		)`,
		`CREATE TABLE cg_lock_marker (
			store_path TEXT PRIMARY KEY,
			pid INTEGER NOT NULL,
			acquired_at TEXT NOT NULL,
			hostname TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateV2Down(tx *sql.Tx) error {
	tables := []string{"cg_lock_marker", "cg_semantic_cache", "cg_project_meta", "cg_references_external", "cg_ghost_node"}
	for _, t := range tables {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + t); err != nil {
			return err
		}
	}
	return nil
}
