package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/driftworks/manifestmod/modules/manifestmod/domain/matching"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
)

const (
	snapshotAttempts = 3
	snapshotBackoff  = 50 * time.Millisecond
)

type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]types.Rule, error)
}

// EvaluationService resolves the directive set for one client manifest
// request from a single point-in-time snapshot of the rule store.
// Resolution is a pure, order-independent function of the matching
// rule set: remove votes always win over install votes for the same
// (install type, package) pair.
type EvaluationService struct {
	store SnapshotSource
	sleep func(time.Duration)
}

func NewEvaluationService(store SnapshotSource) *EvaluationService {
	return &EvaluationService{store: store, sleep: time.Sleep}
}

func (s *EvaluationService) Evaluate(ctx context.Context, client types.ClientContext, manifestName string) (types.DirectiveSet, error) {
	rules, err := s.snapshotWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	installVotes := map[string]map[string]struct{}{}
	removeVotes := map[string]map[string]struct{}{}

	manifestName = strings.TrimSpace(manifestName)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !matching.Matches(rule, client) {
			continue
		}
		if len(rule.ManifestScope) > 0 && !containsString(rule.ManifestScope, manifestName) {
			continue
		}

		buckets := rule.InstallTypes
		if len(buckets) == 0 {
			buckets = []string{types.DefaultInstallType}
		}
		votes := installVotes
		if rule.Removal {
			votes = removeVotes
		}
		for _, bucket := range buckets {
			if votes[bucket] == nil {
				votes[bucket] = map[string]struct{}{}
			}
			votes[bucket][rule.PackageName] = struct{}{}
		}
	}

	out := types.DirectiveSet{}
	for bucket, pkgs := range removeVotes {
		directives := out[bucket]
		for pkg := range pkgs {
			directives.Remove = append(directives.Remove, pkg)
		}
		sort.Strings(directives.Remove)
		out[bucket] = directives
	}
	for bucket, pkgs := range installVotes {
		directives := out[bucket]
		for pkg := range pkgs {
			// Fail closed: a remove vote for the same pair silences
			// every install vote.
			if _, removed := removeVotes[bucket][pkg]; removed {
				continue
			}
			directives.Install = append(directives.Install, pkg)
		}
		sort.Strings(directives.Install)
		if len(directives.Install) == 0 && len(directives.Remove) == 0 {
			continue
		}
		out[bucket] = directives
	}
	return out, nil
}

func (s *EvaluationService) snapshotWithRetry(ctx context.Context) ([]types.Rule, error) {
	var lastErr error
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		rules, err := s.store.Snapshot(ctx)
		if err == nil {
			return rules, nil
		}
		if !errors.Is(err, ports.ErrStoreUnavailable) {
			return nil, err
		}
		lastErr = err
		if attempt < snapshotAttempts-1 {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.sleep(snapshotBackoff << attempt)
		}
	}
	return nil, lastErr
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
