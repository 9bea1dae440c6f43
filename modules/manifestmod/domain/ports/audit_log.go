package ports

import (
	"context"
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionCreate  AuditAction = "CREATE"
	AuditActionEnable  AuditAction = "ENABLE"
	AuditActionDisable AuditAction = "DISABLE"
	AuditActionDelete  AuditAction = "DELETE"
)

type AuditEntry struct {
	Action     AuditAction
	RuleKey    string
	ActorUUID  string
	ActorRole  string
	Before     json.RawMessage
	After      json.RawMessage
	RecordedAt time.Time
}

// AuditLog receives an immutable record of every accepted mutation.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}
