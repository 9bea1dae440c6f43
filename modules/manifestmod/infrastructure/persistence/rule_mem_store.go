package persistence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
	"github.com/driftworks/manifestmod/pkg/httperr"
	"github.com/driftworks/manifestmod/pkg/pagecursor"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	errRuleCursorInvalid = "RULE_CURSOR_INVALID"
)

// RuleMemoryStore is the in-process RuleStore used when no database is
// configured, and by handler and service tests. Same contract as the
// PG store: CAS on version, keyset pagination, snapshot reads.
type RuleMemoryStore struct {
	mu    sync.Mutex
	rules map[string]types.Rule
	clock func() time.Time
}

func NewRuleMemoryStore() *RuleMemoryStore {
	return &RuleMemoryStore{
		rules: make(map[string]types.Rule),
		clock: time.Now,
	}
}

func (s *RuleMemoryStore) Create(_ context.Context, rule types.Rule) (types.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.Key]; exists {
		return types.Rule{}, errors.New("rule memory store: duplicate key")
	}

	stored := cloneRule(rule)
	stored.Version = 1
	stored.ModifiedAt = s.clock().UTC()
	s.rules[stored.Key] = stored
	return cloneRule(stored), nil
}

func (s *RuleMemoryStore) Get(_ context.Context, key string) (types.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[key]
	if !ok {
		return types.Rule{}, ports.ErrRuleNotFound
	}
	return cloneRule(rule), nil
}

func (s *RuleMemoryStore) List(_ context.Context, q ports.ListQuery) (ports.ListResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var after *pagecursor.Cursor
	if q.Cursor != "" {
		c, err := pagecursor.Decode(q.Cursor)
		if err != nil {
			return ports.ListResult{}, httperr.NewBadRequest(errRuleCursorInvalid)
		}
		after = &c
	}

	s.mu.Lock()
	ordered := make([]types.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if q.ModType != "" && rule.ModType != q.ModType {
			continue
		}
		ordered = append(ordered, cloneRule(rule))
	}
	s.mu.Unlock()

	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].ModifiedAt.Equal(ordered[j].ModifiedAt) {
			return ordered[i].ModifiedAt.After(ordered[j].ModifiedAt)
		}
		return ordered[i].Key > ordered[j].Key
	})

	if after != nil {
		cut := 0
		for cut < len(ordered) && !listedAfterCursor(ordered[cut], *after) {
			cut++
		}
		ordered = ordered[cut:]
	}

	result := ports.ListResult{}
	if len(ordered) > limit {
		result.Rules = ordered[:limit]
		last := result.Rules[limit-1]
		result.NextCursor = pagecursor.Encode(pagecursor.Cursor{ModifiedAt: last.ModifiedAt, Key: last.Key})
	} else {
		result.Rules = ordered
	}
	return result, nil
}

// listedAfterCursor reports whether rule sorts strictly after the
// cursor position in (modifiedAt desc, key desc) order.
func listedAfterCursor(rule types.Rule, c pagecursor.Cursor) bool {
	if !rule.ModifiedAt.Equal(c.ModifiedAt) {
		return rule.ModifiedAt.Before(c.ModifiedAt)
	}
	return rule.Key < c.Key
}

func (s *RuleMemoryStore) SetEnabled(_ context.Context, key string, enabled bool, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[key]
	if !ok {
		return 0, ports.ErrRuleNotFound
	}
	if rule.Version != expectedVersion {
		return 0, ports.ErrVersionConflict
	}

	rule.Enabled = enabled
	rule.Version++
	rule.ModifiedAt = s.clock().UTC()
	s.rules[key] = rule
	return rule.Version, nil
}

func (s *RuleMemoryStore) Delete(_ context.Context, key string, expectedVersion int64) (types.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[key]
	if !ok {
		return types.Rule{}, ports.ErrRuleNotFound
	}
	if rule.Version != expectedVersion {
		return types.Rule{}, ports.ErrVersionConflict
	}

	delete(s.rules, key)
	return cloneRule(rule), nil
}

func (s *RuleMemoryStore) Snapshot(_ context.Context) ([]types.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, cloneRule(rule))
	}
	return out, nil
}

func cloneRule(r types.Rule) types.Rule {
	out := r
	out.InstallTypes = append([]string{}, r.InstallTypes...)
	out.ManifestScope = append([]string{}, r.ManifestScope...)
	return out
}
