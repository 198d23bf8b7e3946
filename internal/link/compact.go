package link

import (
	"context"

	"github.com/kraklabs/codegraph/internal/store"
)

// CompactGhosts garbage-collects ghost nodes no call or type edge points to
// any longer: a file that used to call into an unresolved external symbol
// gets reindexed or removed, its cg_calls/cg_uses_type rows go with it
// (deleteFileCascade), but the ghost node itself carries no foreign key
// back to those edges and so survives until something sweeps it. This is
// the lifecycle's compaction pass, run once per coordinator Run after
// linking — the same cascade-on-removal idiom the schema's FKs apply to
// entity rows, applied here as an explicit query since cg_ghost_node has no
// owning parent to cascade from.
func CompactGhosts(ctx context.Context, tx *store.Tx) error {
	return tx.Execute(ctx, `DELETE FROM cg_ghost_node WHERE id NOT IN (
		SELECT callee_id FROM cg_calls WHERE callee_id IS NOT NULL
		UNION
		SELECT type_id FROM cg_uses_type WHERE type_id IS NOT NULL
	)`, nil)
}
