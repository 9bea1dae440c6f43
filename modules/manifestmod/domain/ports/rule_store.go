package ports

import (
	"context"
	"errors"

	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
)

var (
	ErrRuleNotFound     = errors.New("rule_not_found")
	ErrVersionConflict  = errors.New("rule_version_conflict")
	ErrStoreUnavailable = errors.New("rule_store_unavailable")
)

type ListQuery struct {
	// ModType filters the listing when non-empty.
	ModType types.ModType
	// Cursor is an opaque token from a previous page, empty for the
	// first page.
	Cursor string
	Limit  int
}

type ListResult struct {
	Rules []types.Rule
	// NextCursor is empty on the final page.
	NextCursor string
}

// RuleStore persists modification rules. All mutations are
// compare-and-swap on Version; Version and ModifiedAt advance together
// or not at all. Keys are never reused, including after delete.
type RuleStore interface {
	Create(ctx context.Context, rule types.Rule) (types.Rule, error)
	Get(ctx context.Context, key string) (types.Rule, error)
	List(ctx context.Context, q ListQuery) (ListResult, error)
	SetEnabled(ctx context.Context, key string, enabled bool, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, key string, expectedVersion int64) (types.Rule, error)
	// Snapshot returns an immutable point-in-time view of every rule,
	// enabled or not. It never returns a partial set; transient backend
	// failure surfaces as ErrStoreUnavailable.
	Snapshot(ctx context.Context) ([]types.Rule, error)
}
