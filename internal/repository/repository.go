// Package repository defines the storage interface for narrative log
// messages and the parameter/record types exchanged with it.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/lsst-ts/narrativelog/internal/filter"
)

// MessageRecord is one message row joined with its jira_fields satellite
// row (taxonomy columns are NULL when no satellite row exists). Validity
// is derived from DateInvalidated, never read from storage.
type MessageRecord struct {
	ID          uuid.UUID
	SiteID      string
	MessageText string
	Level       int
	Tags        datatypes.JSONSlice[string]
	Urls        datatypes.JSONSlice[string]
	TimeLost    decimal.Decimal
	DateBegin   *time.Time
	DateEnd     *time.Time
	UserID      string
	UserAgent   string
	IsHuman     bool

	DateAdded       time.Time
	DateInvalidated *time.Time
	ParentID        *uuid.UUID

	Systems      *datatypes.JSONSlice[string]
	Subsystems   *datatypes.JSONSlice[string]
	Cscs         *datatypes.JSONSlice[string]
	Category     *string
	TimeLostType *string

	Components                *datatypes.JSONSlice[string]
	PrimarySoftwareComponents *datatypes.JSONSlice[string]
	PrimaryHardwareComponents *datatypes.JSONSlice[string]
	ComponentsJSON            datatypes.JSONMap `gorm:"column:components_json"`
}

// IsValid reports whether the message has not been superseded or deleted.
func (r *MessageRecord) IsValid() bool {
	return r.DateInvalidated == nil
}

// Stats is a point-in-time activity summary used by the periodic reporter.
type Stats struct {
	TotalMessages int64
	ValidMessages int64
	// TimeLost is the summed time_lost (seconds) of valid messages added
	// since the reporting window start.
	TimeLost decimal.Decimal
}

// Repository is the storage contract for narrative log messages. All
// multi-statement operations run in a single transaction; a failure rolls
// back the whole operation, so a message row is never persisted without
// its taxonomy counterpart or vice versa.
type Repository interface {
	// AddMessage inserts a new message (and a jira_fields row when any
	// taxonomy field is supplied) and returns the stored joined record.
	AddMessage(ctx context.Context, params AddMessageParams) (*MessageRecord, error)

	// GetMessage returns the joined record, or (nil, nil) if absent.
	GetMessage(ctx context.Context, id uuid.UUID) (*MessageRecord, error)

	// EditMessage performs the copy-on-write edit: it locks and reads the
	// parent row, inserts a child row carrying the parent's values overlaid
	// with the supplied fields, and invalidates the parent, all in one
	// transaction. Returns (nil, nil) if the parent does not exist.
	EditMessage(ctx context.Context, id uuid.UUID, params EditMessageParams) (*MessageRecord, error)

	// DeleteMessage soft-deletes: date_invalidated is set to now only if
	// currently NULL, so repeated deletes are no-ops that keep the original
	// timestamp. Returns the number of rows matched (0 = no such id).
	DeleteMessage(ctx context.Context, id uuid.UUID) (int64, error)

	// FindMessages applies compiled predicates, ordering, and pagination.
	FindMessages(ctx context.Context, compiled *filter.Compiled) ([]MessageRecord, error)

	// MessageStats summarizes activity since the given time.
	MessageStats(ctx context.Context, since time.Time) (Stats, error)
}
