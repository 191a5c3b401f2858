package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Message is one narrative log entry. Rows are immutable once inserted:
// edits create a new row chained via ParentID and the superseded row only
// ever has DateInvalidated set. Validity is derived from DateInvalidated
// rather than stored, so the two can never disagree.
type Message struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	SiteID      string                      `gorm:"type:text;not null;index"`
	MessageText string                      `gorm:"type:text;not null"`
	Level       int                         `gorm:"not null;index"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	Urls        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`

	// Estimate of lost on-sky time, in seconds.
	TimeLost decimal.Decimal `gorm:"type:numeric(20,6);not null"`

	// Optional range over which the message is relevant. Naive timestamps
	// in the fixed time standard; no timezone offset is ever stored.
	DateBegin *time.Time `gorm:"type:timestamp"`
	DateEnd   *time.Time `gorm:"type:timestamp"`

	UserID    string `gorm:"type:text;not null;index"`
	UserAgent string `gorm:"type:text;not null"`
	IsHuman   bool   `gorm:"not null"`

	DateAdded       time.Time  `gorm:"type:timestamp;not null;index"`
	DateInvalidated *time.Time `gorm:"type:timestamp;index"`
	ParentID        *uuid.UUID `gorm:"type:uuid;index"`

	// Deprecated flat taxonomy arrays, kept during the components_json
	// migration. Nullable to distinguish "never set" from "set empty".
	Systems    *datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Subsystems *datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Cscs       *datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	Category     *string `gorm:"type:text"`
	TimeLostType *string `gorm:"type:text"`
}

func (Message) TableName() string {
	return "messages"
}

// IsValid reports whether the message has not been superseded or deleted.
func (m *Message) IsValid() bool {
	return m.DateInvalidated == nil
}
