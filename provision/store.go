/*
store.go - Key-path transactional store interface

PURPOSE:
  The engine persists every record as a JSON document at a slash-delimited
  path, and commits every multi-entity mutation as one atomic batch of
  path -> value writes (a nil value deletes the path). Partial application
  of a batch is not a legal outcome: a failed commit guarantees no ledger
  entry from that batch exists.

WHY PATHS?
  Every cascade in this domain (salary update -> recalculated movements,
  period deletion -> movement deletion -> regeneration, payment -> debit
  movements) touches records in several collections at once. A single
  batch primitive keeps those cascades atomic without the engine knowing
  anything about the backing database.

IMPLEMENTATIONS:
  - provision/store: in-memory, for tests and development
  - store/sqlite:    documents table inside one SQL transaction

SEE ALSO:
  - paths.go: canonical path layout per collection
*/
package provision

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// STORE - Key-path persistence with atomic batch commit
// =============================================================================

// Store persists JSON documents addressed by slash-delimited paths.
type Store interface {
	// Get returns the document at path, or nil if the path does not exist.
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// List returns every document whose path is directly or transitively
	// under prefix, keyed by full path.
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)

	// Apply commits the batch atomically: either every write and delete in
	// it is applied, or none is.
	Apply(ctx context.Context, batch Batch) error

	// NewKey returns a fresh opaque identifier, unique per store.
	NewKey() string
}

// =============================================================================
// BATCH - One logical operation's writes
// =============================================================================

// Batch maps storage paths to the values to write; a nil value deletes the
// path. Staging the same path twice keeps the last value, which is how the
// period-deletion cascade turns delete+regenerate into an in-place upsert.
type Batch map[string]any

func NewBatch() Batch { return make(Batch) }

// Put stages a write of v at path.
func (b Batch) Put(path string, v any) { b[path] = v }

// Delete stages removal of the document at path.
func (b Batch) Delete(path string) { b[path] = nil }

// Merge folds other into b, other winning on path collisions.
func (b Batch) Merge(other Batch) {
	for p, v := range other {
		b[p] = v
	}
}

// =============================================================================
// AUDIT SINK - Fire-and-forget operation log
// =============================================================================

type AuditAction string

const (
	AuditEmployeeCreated  AuditAction = "employee_created"
	AuditEmployeeDeleted  AuditAction = "employee_deleted"
	AuditSalaryUpdated    AuditAction = "salary_updated"
	AuditPeriodDeleted    AuditAction = "period_deleted"
	AuditAccrualsGenerated AuditAction = "accruals_generated"
	AuditPaymentSubmitted AuditAction = "payment_submitted"
	AuditPaymentDeleted   AuditAction = "payment_deleted"
)

// AuditEntry records who did what to which entity. Entries are written after
// a successful commit; a sink failure must never fail the ledger mutation.
type AuditEntry struct {
	ID         string         `json:"id"`
	Actor      Actor          `json:"actor"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Changes    map[string]any `json:"changes,omitempty"`
	At         time.Time      `json:"at"`
}

// AuditSink consumes audit entries. Implementations may drop entries on
// error; callers ignore the returned error by contract.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// StoreAuditSink persists entries under auditLogs/ in the same store as the
// ledger, outside the ledger's own batches.
type StoreAuditSink struct {
	Store Store
}

func (s *StoreAuditSink) Record(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = s.Store.NewKey()
	}
	batch := NewBatch()
	batch.Put(AuditLogPath(entry.ID), entry)
	return s.Store.Apply(ctx, batch)
}

// NopAuditSink discards every entry.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, AuditEntry) error { return nil }
