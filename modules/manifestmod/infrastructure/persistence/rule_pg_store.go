package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
	"github.com/driftworks/manifestmod/pkg/httperr"
	"github.com/driftworks/manifestmod/pkg/pagecursor"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type RulePGStore struct {
	pool pgBeginner
}

func NewRulePGStore(pool pgBeginner) *RulePGStore {
	return &RulePGStore{pool: pool}
}

const ruleColumns = `rule_key::text, mod_type, target, package_name, package_display_name, removal, install_types, manifest_scope, enabled, created_by, modified_at, version`

func (s *RulePGStore) Create(ctx context.Context, rule types.Rule) (types.Rule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Rule{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	stored := cloneRule(rule)
	if err := tx.QueryRow(ctx, `
INSERT INTO manifestmod.rules
  (rule_key, mod_type, target, package_name, package_display_name, removal, install_types, manifest_scope, enabled, created_by, modified_at, version)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), 1)
RETURNING modified_at, version
`, rule.Key, string(rule.ModType), rule.Target, rule.PackageName, rule.PackageDisplayName, rule.Removal, rule.InstallTypes, rule.ManifestScope, rule.Enabled, rule.CreatedBy).Scan(&stored.ModifiedAt, &stored.Version); err != nil {
		return types.Rule{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Rule{}, err
	}
	return stored, nil
}

func (s *RulePGStore) Get(ctx context.Context, key string) (types.Rule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Rule{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rule, err := scanRule(tx.QueryRow(ctx, `
SELECT `+ruleColumns+`
FROM manifestmod.rules
WHERE rule_key = $1::uuid
`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Rule{}, ports.ErrRuleNotFound
		}
		return types.Rule{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Rule{}, err
	}
	return rule, nil
}

func (s *RulePGStore) List(ctx context.Context, q ports.ListQuery) (ports.ListResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ports.ListResult{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var rows pgx.Rows
	if q.Cursor != "" {
		after, err := pagecursor.Decode(q.Cursor)
		if err != nil {
			return ports.ListResult{}, httperr.NewBadRequest(errRuleCursorInvalid)
		}
		rows, err = tx.Query(ctx, `
SELECT `+ruleColumns+`
FROM manifestmod.rules
WHERE ($1 = '' OR mod_type = $1)
  AND (modified_at, rule_key) < ($2::timestamptz, $3::uuid)
ORDER BY modified_at DESC, rule_key DESC
LIMIT $4
`, string(q.ModType), after.ModifiedAt, after.Key, limit+1)
		if err != nil {
			return ports.ListResult{}, err
		}
	} else {
		rows, err = tx.Query(ctx, `
SELECT `+ruleColumns+`
FROM manifestmod.rules
WHERE ($1 = '' OR mod_type = $1)
ORDER BY modified_at DESC, rule_key DESC
LIMIT $2
`, string(q.ModType), limit+1)
		if err != nil {
			return ports.ListResult{}, err
		}
	}

	rules, err := collectRules(rows)
	if err != nil {
		return ports.ListResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ports.ListResult{}, err
	}

	result := ports.ListResult{Rules: rules}
	if len(rules) > limit {
		result.Rules = rules[:limit]
		last := result.Rules[limit-1]
		result.NextCursor = pagecursor.Encode(pagecursor.Cursor{ModifiedAt: last.ModifiedAt, Key: last.Key})
	}
	return result, nil
}

func (s *RulePGStore) SetEnabled(ctx context.Context, key string, enabled bool, expectedVersion int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var newVersion int64
	err = tx.QueryRow(ctx, `
UPDATE manifestmod.rules
SET enabled = $2, version = version + 1, modified_at = now()
WHERE rule_key = $1::uuid AND version = $3
RETURNING version
`, key, enabled, expectedVersion).Scan(&newVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, s.mutationMissError(ctx, tx, key)
		}
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newVersion, nil
}

func (s *RulePGStore) Delete(ctx context.Context, key string, expectedVersion int64) (types.Rule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Rule{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	final, err := scanRule(tx.QueryRow(ctx, `
DELETE FROM manifestmod.rules
WHERE rule_key = $1::uuid AND version = $2
RETURNING `+ruleColumns+`
`, key, expectedVersion))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Rule{}, s.mutationMissError(ctx, tx, key)
		}
		return types.Rule{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Rule{}, err
	}
	return final, nil
}

// mutationMissError distinguishes "someone deleted it" from "someone
// edited it" after a zero-row CAS write.
func (s *RulePGStore) mutationMissError(ctx context.Context, tx pgx.Tx, key string) error {
	var version int64
	err := tx.QueryRow(ctx, `
SELECT version FROM manifestmod.rules WHERE rule_key = $1::uuid
`, key).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrRuleNotFound
	}
	if err != nil {
		return err
	}
	return ports.ErrVersionConflict
}

// Snapshot reads every rule in one statement, giving the evaluation
// engine a statement-consistent view. Backend failures surface as
// ErrStoreUnavailable so the engine can retry instead of evaluating a
// partial rule set.
func (s *RulePGStore) Snapshot(ctx context.Context) ([]types.Rule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Join(ports.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT `+ruleColumns+`
FROM manifestmod.rules
`)
	if err != nil {
		return nil, errors.Join(ports.ErrStoreUnavailable, err)
	}

	rules, err := collectRules(rows)
	if err != nil {
		return nil, errors.Join(ports.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Join(ports.ErrStoreUnavailable, err)
	}
	return rules, nil
}

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(row ruleScanner) (types.Rule, error) {
	var rule types.Rule
	var modType string
	if err := row.Scan(&rule.Key, &modType, &rule.Target, &rule.PackageName, &rule.PackageDisplayName, &rule.Removal, &rule.InstallTypes, &rule.ManifestScope, &rule.Enabled, &rule.CreatedBy, &rule.ModifiedAt, &rule.Version); err != nil {
		return types.Rule{}, err
	}
	rule.ModType = types.ModType(modType)
	if rule.InstallTypes == nil {
		rule.InstallTypes = []string{}
	}
	if rule.ManifestScope == nil {
		rule.ManifestScope = []string{}
	}
	return rule, nil
}

func collectRules(rows pgx.Rows) ([]types.Rule, error) {
	defer rows.Close()

	out := make([]types.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
