package semantic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/codegraph/internal/store"
)

// Cache is the lazy per-analyzer result cache backed by cg_semantic_cache
// (spec §4.10: analyzers are never run at index time, only on first query,
// and are invalidated by a file-content-hash change since the cache key
// embeds the hash).
type Cache struct {
	st *store.Store
}

// NewCache wraps a store for analyzer result caching.
func NewCache(st *store.Store) *Cache {
	return &Cache{st: st}
}

const (
	analyzerDataFlow = "dataflow"
	analyzerReturns  = "returns"
	analyzerErrors   = "errors"
	analyzerPatterns = "patterns"
)

func (c *Cache) lookup(ctx context.Context, functionID, fileContentHash, analyzer string) (json.RawMessage, bool, error) {
	rows, err := c.st.Query(ctx,
		`SELECT result_json FROM cg_semantic_cache WHERE function_id = :fid AND file_content_hash = :hash AND analyzer = :analyzer`,
		map[string]any{"fid": functionID, "hash": fileContentHash, "analyzer": analyzer})
	if err != nil {
		return nil, false, err
	}
	if len(rows.Rows) == 0 {
		return nil, false, nil
	}
	raw, ok := rows.Rows[0][0].(string)
	if !ok {
		return nil, false, fmt.Errorf("semantic cache: unexpected column type for %s", analyzer)
	}
	return json.RawMessage(raw), true, nil
}

func (c *Cache) store(ctx context.Context, functionID, fileContentHash, analyzer string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal %s result: %w", analyzer, err)
	}
	return c.st.Execute(ctx,
		`INSERT OR REPLACE INTO cg_semantic_cache (function_id, file_content_hash, analyzer, result_json)
		 VALUES (:fid, :hash, :analyzer, :json)`,
		map[string]any{"fid": functionID, "hash": fileContentHash, "analyzer": analyzer, "json": string(payload)})
}

// GetDataFlow returns the cached data-flow result for functionID at
// fileContentHash, computing and storing it via compute on a cache miss.
func (c *Cache) GetDataFlow(ctx context.Context, functionID, fileContentHash string, compute func() DataFlowResult) (DataFlowResult, error) {
	if raw, ok, err := c.lookup(ctx, functionID, fileContentHash, analyzerDataFlow); err != nil {
		return DataFlowResult{}, err
	} else if ok {
		var result DataFlowResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return DataFlowResult{}, err
		}
		return result, nil
	}
	result := compute()
	if err := c.store(ctx, functionID, fileContentHash, analyzerDataFlow, result); err != nil {
		return result, err
	}
	return result, nil
}

// GetReturns mirrors GetDataFlow for the return analyzer.
func (c *Cache) GetReturns(ctx context.Context, functionID, fileContentHash string, compute func() ReturnAnalysis) (ReturnAnalysis, error) {
	if raw, ok, err := c.lookup(ctx, functionID, fileContentHash, analyzerReturns); err != nil {
		return ReturnAnalysis{}, err
	} else if ok {
		var result ReturnAnalysis
		if err := json.Unmarshal(raw, &result); err != nil {
			return ReturnAnalysis{}, err
		}
		return result, nil
	}
	result := compute()
	if err := c.store(ctx, functionID, fileContentHash, analyzerReturns, result); err != nil {
		return result, err
	}
	return result, nil
}

// GetErrors mirrors GetDataFlow for the error analyzer.
func (c *Cache) GetErrors(ctx context.Context, functionID, fileContentHash string, compute func() ErrorAnalysis) (ErrorAnalysis, error) {
	if raw, ok, err := c.lookup(ctx, functionID, fileContentHash, analyzerErrors); err != nil {
		return ErrorAnalysis{}, err
	} else if ok {
		var result ErrorAnalysis
		if err := json.Unmarshal(raw, &result); err != nil {
			return ErrorAnalysis{}, err
		}
		return result, nil
	}
	result := compute()
	if err := c.store(ctx, functionID, fileContentHash, analyzerErrors, result); err != nil {
		return result, err
	}
	return result, nil
}

// GetPatterns mirrors GetDataFlow for the design-pattern detector panel,
// keyed by the type's synthetic "type:<name>" pseudo function id since
// patterns are detected per-type rather than per-function.
func (c *Cache) GetPatterns(ctx context.Context, typeID, fileContentHash string, compute func() []DetectedPattern) ([]DetectedPattern, error) {
	if raw, ok, err := c.lookup(ctx, typeID, fileContentHash, analyzerPatterns); err != nil {
		return nil, err
	} else if ok {
		var result []DetectedPattern
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, err
		}
		return result, nil
	}
	result := compute()
	if err := c.store(ctx, typeID, fileContentHash, analyzerPatterns, result); err != nil {
		return result, err
	}
	return result, nil
}
