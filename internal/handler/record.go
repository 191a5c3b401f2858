package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lsst-ts/narrativelog/internal/repository"
	"github.com/lsst-ts/narrativelog/internal/timeutil"
)

// messageResponse is the wire form of a message: the joined record with
// is_valid derived, timestamps rendered as naive ISO strings, and
// time_lost as a number of seconds.
type messageResponse struct {
	ID          uuid.UUID   `json:"id"`
	SiteID      string      `json:"site_id"`
	MessageText string      `json:"message_text"`
	Level       int         `json:"level"`
	Tags        []string    `json:"tags"`
	Urls        []string    `json:"urls"`
	TimeLost    json.Number `json:"time_lost"`
	DateBegin   *string     `json:"date_begin"`
	UserID      string      `json:"user_id"`
	UserAgent   string      `json:"user_agent"`
	IsHuman     bool        `json:"is_human"`
	IsValid     bool        `json:"is_valid"`
	DateAdded   string      `json:"date_added"`

	DateInvalidated *string    `json:"date_invalidated"`
	ParentID        *uuid.UUID `json:"parent_id"`

	Systems    *[]string `json:"systems"`
	Subsystems *[]string `json:"subsystems"`
	Cscs       *[]string `json:"cscs"`
	DateEnd    *string   `json:"date_end"`

	Components                *[]string      `json:"components"`
	PrimarySoftwareComponents *[]string      `json:"primary_software_components"`
	PrimaryHardwareComponents *[]string      `json:"primary_hardware_components"`
	ComponentsJSON            map[string]any `json:"components_json"`

	Category     *string `json:"category"`
	TimeLostType *string `json:"time_lost_type"`
}

func newMessageResponse(rec *repository.MessageRecord) messageResponse {
	return messageResponse{
		ID:          rec.ID,
		SiteID:      rec.SiteID,
		MessageText: rec.MessageText,
		Level:       rec.Level,
		Tags:        sliceOrEmpty(rec.Tags),
		Urls:        sliceOrEmpty(rec.Urls),
		TimeLost:    json.Number(rec.TimeLost.String()),
		DateBegin:   naiveTimePtr(rec.DateBegin),
		UserID:      rec.UserID,
		UserAgent:   rec.UserAgent,
		IsHuman:     rec.IsHuman,
		IsValid:     rec.IsValid(),
		DateAdded:   timeutil.Format(rec.DateAdded),

		DateInvalidated: naiveTimePtr(rec.DateInvalidated),
		ParentID:        rec.ParentID,

		Systems:    slicePtr(rec.Systems),
		Subsystems: slicePtr(rec.Subsystems),
		Cscs:       slicePtr(rec.Cscs),
		DateEnd:    naiveTimePtr(rec.DateEnd),

		Components:                slicePtr(rec.Components),
		PrimarySoftwareComponents: slicePtr(rec.PrimarySoftwareComponents),
		PrimaryHardwareComponents: slicePtr(rec.PrimaryHardwareComponents),
		ComponentsJSON:            rec.ComponentsJSON,

		Category:     rec.Category,
		TimeLostType: rec.TimeLostType,
	}
}

func sliceOrEmpty(s datatypes.JSONSlice[string]) []string {
	if s == nil {
		return []string{}
	}
	return []string(s)
}

func slicePtr(s *datatypes.JSONSlice[string]) *[]string {
	if s == nil {
		return nil
	}
	values := []string(*s)
	if values == nil {
		values = []string{}
	}
	return &values
}

func naiveTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := timeutil.Format(*t)
	return &formatted
}
