package persistence

import (
	"context"
	"sync"

	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
)

// AuditPGStore appends mutation records to manifestmod.audit_log.
// Rows are insert-only; nothing in this module updates or deletes
// them.
type AuditPGStore struct {
	pool pgBeginner
}

func NewAuditPGStore(pool pgBeginner) *AuditPGStore {
	return &AuditPGStore{pool: pool}
}

func (s *AuditPGStore) Record(ctx context.Context, entry ports.AuditEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO manifestmod.audit_log
  (action, rule_key, actor_uuid, actor_role, before_state, after_state, recorded_at)
VALUES ($1, $2::uuid, $3, $4, $5::jsonb, $6::jsonb, $7)
`, string(entry.Action), entry.RuleKey, entry.ActorUUID, entry.ActorRole, nullableJSON(entry.Before), nullableJSON(entry.After), entry.RecordedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// AuditMemoryLog collects entries in memory for the no-database
// configuration and for tests.
type AuditMemoryLog struct {
	mu      sync.Mutex
	entries []ports.AuditEntry
}

func NewAuditMemoryLog() *AuditMemoryLog {
	return &AuditMemoryLog{}
}

func (l *AuditMemoryLog) Record(_ context.Context, entry ports.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *AuditMemoryLog) Entries() []ports.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.AuditEntry(nil), l.entries...)
}
