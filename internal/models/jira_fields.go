package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JiraFields is the satellite taxonomy row for a message, one-to-one by
// MessageID. It holds the organizational classification: the deprecated
// flat component arrays and the newer nested components_json object
// (category name -> list of values). Created alongside the owning message
// and never mutated; its lifecycle tracks the message's.
type JiraFields struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	// Deprecated flat arrays.
	Components                *datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	PrimarySoftwareComponents *datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	PrimaryHardwareComponents *datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	ComponentsJSON datatypes.JSONMap `gorm:"column:components_json;type:jsonb"`
}

func (JiraFields) TableName() string {
	return "jira_fields"
}
