package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/lsst-ts/narrativelog/internal/models"
)

// AddMessageParams carries the validated fields for a new message. Tags
// must already be normalized. The server (not the caller) supplies the
// site id and the creation timestamp.
type AddMessageParams struct {
	MessageText string
	Level       int
	Tags        []string
	Urls        []string
	TimeLost    decimal.Decimal
	DateBegin   *time.Time
	DateEnd     *time.Time
	UserID      string
	UserAgent   string
	IsHuman     bool

	Systems    *[]string
	Subsystems *[]string
	Cscs       *[]string

	Components                *[]string
	PrimarySoftwareComponents *[]string
	PrimaryHardwareComponents *[]string
	ComponentsJSON            map[string]any

	Category     *string
	TimeLostType *string
}

// HasJiraFields reports whether the add carries any satellite-table data.
func (p AddMessageParams) HasJiraFields() bool {
	return p.Components != nil ||
		p.PrimarySoftwareComponents != nil ||
		p.PrimaryHardwareComponents != nil ||
		p.ComponentsJSON != nil
}

// Message builds the row to insert.
func (p AddMessageParams) Message(id uuid.UUID, siteID string, now time.Time) models.Message {
	return models.Message{
		ID:           id,
		SiteID:       siteID,
		MessageText:  p.MessageText,
		Level:        p.Level,
		Tags:         jsonSlice(p.Tags),
		Urls:         jsonSlice(p.Urls),
		TimeLost:     p.TimeLost,
		DateBegin:    p.DateBegin,
		DateEnd:      p.DateEnd,
		UserID:       p.UserID,
		UserAgent:    p.UserAgent,
		IsHuman:      p.IsHuman,
		DateAdded:    now,
		Systems:      jsonSlicePtr(p.Systems),
		Subsystems:   jsonSlicePtr(p.Subsystems),
		Cscs:         jsonSlicePtr(p.Cscs),
		Category:     p.Category,
		TimeLostType: p.TimeLostType,
	}
}

// JiraFields builds the satellite row, or nil when none is needed.
func (p AddMessageParams) JiraFields(messageID uuid.UUID) *models.JiraFields {
	if !p.HasJiraFields() {
		return nil
	}
	return &models.JiraFields{
		MessageID:                 messageID,
		Components:                jsonSlicePtr(p.Components),
		PrimarySoftwareComponents: jsonSlicePtr(p.PrimarySoftwareComponents),
		PrimaryHardwareComponents: jsonSlicePtr(p.PrimaryHardwareComponents),
		ComponentsJSON:            datatypes.JSONMap(p.ComponentsJSON),
	}
}

// EditMessageParams is a partial update: nil fields inherit the parent's
// value, non-nil fields replace it. There is no way to null a field out —
// that is the central copy-on-write contract (an edit never silently wipes
// unspecified fields). Tags, if set, must already be normalized.
type EditMessageParams struct {
	MessageText *string
	Level       *int
	Tags        *[]string
	Urls        *[]string
	TimeLost    *decimal.Decimal
	DateBegin   *time.Time
	DateEnd     *time.Time
	UserID      *string
	UserAgent   *string
	IsHuman     *bool

	Systems    *[]string
	Subsystems *[]string
	Cscs       *[]string

	Components                *[]string
	PrimarySoftwareComponents *[]string
	PrimaryHardwareComponents *[]string
	ComponentsJSON            map[string]any

	Category     *string
	TimeLostType *string
}

// HasJiraFields reports whether the edit touches any satellite-table field.
func (p EditMessageParams) HasJiraFields() bool {
	return p.Components != nil ||
		p.PrimarySoftwareComponents != nil ||
		p.PrimaryHardwareComponents != nil ||
		p.ComponentsJSON != nil
}

// Apply builds the child row from the parent: every parent value is
// carried over, then the non-nil edit fields are overlaid. The child gets
// a fresh id and DateAdded, ParentID set to the parent, and a NULL
// DateInvalidated. The second return is the child's satellite row: a copy
// of the parent's (overlaid) when either exists, else nil.
func (p EditMessageParams) Apply(
	parent models.Message,
	parentJira *models.JiraFields,
	childID uuid.UUID,
	siteID string,
	now time.Time,
) (models.Message, *models.JiraFields) {
	child := parent
	child.ID = childID
	parentID := parent.ID
	child.ParentID = &parentID
	child.SiteID = siteID
	child.DateAdded = now
	child.DateInvalidated = nil

	if p.MessageText != nil {
		child.MessageText = *p.MessageText
	}
	if p.Level != nil {
		child.Level = *p.Level
	}
	if p.Tags != nil {
		child.Tags = jsonSlice(*p.Tags)
	}
	if p.Urls != nil {
		child.Urls = jsonSlice(*p.Urls)
	}
	if p.TimeLost != nil {
		child.TimeLost = *p.TimeLost
	}
	if p.DateBegin != nil {
		child.DateBegin = p.DateBegin
	}
	if p.DateEnd != nil {
		child.DateEnd = p.DateEnd
	}
	if p.UserID != nil {
		child.UserID = *p.UserID
	}
	if p.UserAgent != nil {
		child.UserAgent = *p.UserAgent
	}
	if p.IsHuman != nil {
		child.IsHuman = *p.IsHuman
	}
	if p.Systems != nil {
		child.Systems = jsonSlicePtr(p.Systems)
	}
	if p.Subsystems != nil {
		child.Subsystems = jsonSlicePtr(p.Subsystems)
	}
	if p.Cscs != nil {
		child.Cscs = jsonSlicePtr(p.Cscs)
	}
	if p.Category != nil {
		child.Category = p.Category
	}
	if p.TimeLostType != nil {
		child.TimeLostType = p.TimeLostType
	}

	var childJira *models.JiraFields
	if parentJira != nil || p.HasJiraFields() {
		childJira = &models.JiraFields{MessageID: childID}
		if parentJira != nil {
			childJira.Components = parentJira.Components
			childJira.PrimarySoftwareComponents = parentJira.PrimarySoftwareComponents
			childJira.PrimaryHardwareComponents = parentJira.PrimaryHardwareComponents
			childJira.ComponentsJSON = parentJira.ComponentsJSON
		}
		if p.Components != nil {
			childJira.Components = jsonSlicePtr(p.Components)
		}
		if p.PrimarySoftwareComponents != nil {
			childJira.PrimarySoftwareComponents = jsonSlicePtr(p.PrimarySoftwareComponents)
		}
		if p.PrimaryHardwareComponents != nil {
			childJira.PrimaryHardwareComponents = jsonSlicePtr(p.PrimaryHardwareComponents)
		}
		if p.ComponentsJSON != nil {
			childJira.ComponentsJSON = datatypes.JSONMap(p.ComponentsJSON)
		}
	}
	return child, childJira
}

func jsonSlice(values []string) datatypes.JSONSlice[string] {
	if values == nil {
		values = []string{}
	}
	return datatypes.NewJSONSlice(values)
}

func jsonSlicePtr(values *[]string) *datatypes.JSONSlice[string] {
	if values == nil {
		return nil
	}
	s := jsonSlice(*values)
	return &s
}
