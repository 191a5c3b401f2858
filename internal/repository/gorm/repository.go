// Package gormrepository is the PostgreSQL storage engine for narrative
// log messages, built on GORM.
package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lsst-ts/narrativelog/internal/filter"
	"github.com/lsst-ts/narrativelog/internal/models"
	"github.com/lsst-ts/narrativelog/internal/repository"
	"github.com/lsst-ts/narrativelog/internal/timeutil"
)

// Every read joins the taxonomy satellite row so the caller always sees
// the full record regardless of which table a taxonomy field lives in.
const (
	joinJiraFields = "LEFT JOIN jira_fields ON jira_fields.message_id = messages.id"
	joinedColumns  = "messages.*, jira_fields.components, " +
		"jira_fields.primary_software_components, " +
		"jira_fields.primary_hardware_components, jira_fields.components_json"
)

type Store struct {
	db     *gorm.DB
	siteID string
}

func New(db *gorm.DB, siteID string) *Store {
	return &Store{db: db, siteID: siteID}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) AddMessage(ctx context.Context, params repository.AddMessageParams) (*repository.MessageRecord, error) {
	id := uuid.New()
	now := timeutil.Now()
	msg := params.Message(id, s.siteID, now)

	var rec *repository.MessageRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if jira := params.JiraFields(id); jira != nil {
			if err := tx.Create(jira).Error; err != nil {
				return err
			}
		}
		joined, err := getJoined(tx, id)
		if err != nil {
			return err
		}
		rec = joined
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) GetMessage(ctx context.Context, id uuid.UUID) (*repository.MessageRecord, error) {
	return getJoined(s.db.WithContext(ctx), id)
}

func (s *Store) EditMessage(ctx context.Context, id uuid.UUID, params repository.EditMessageParams) (*repository.MessageRecord, error) {
	var rec *repository.MessageRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the parent row so concurrent edits of the same message
		// serialize: the loser blocks here until the winner commits, then
		// proceeds against the invalidated parent. Both edits yield a
		// valid child of the same parent; the last commit does not retire
		// sibling edits.
		var parent models.Message
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var parentJira *models.JiraFields
		var jira models.JiraFields
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("message_id = ?", id).
			Take(&jira).Error
		switch {
		case err == nil:
			parentJira = &jira
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No satellite row for the parent; fine.
		default:
			return err
		}

		childID := uuid.New()
		now := timeutil.Now()
		child, childJira := params.Apply(parent, parentJira, childID, s.siteID, now)
		if err := tx.Create(&child).Error; err != nil {
			return err
		}
		if childJira != nil {
			if err := tx.Create(childJira).Error; err != nil {
				return err
			}
		}

		// Invalidate the parent in the same transaction as the insert.
		err = tx.Model(&models.Message{}).
			Where("id = ?", id).
			Update("date_invalidated", now).Error
		if err != nil {
			return err
		}

		joined, err := getJoined(tx, childID)
		if err != nil {
			return err
		}
		rec = joined
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id uuid.UUID) (int64, error) {
	// COALESCE makes repeated deletes no-ops that keep the original
	// invalidation timestamp.
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("date_invalidated", gorm.Expr("COALESCE(date_invalidated, ?)", timeutil.Now()))
	return res.RowsAffected, res.Error
}

func (s *Store) FindMessages(ctx context.Context, compiled *filter.Compiled) ([]repository.MessageRecord, error) {
	query := s.db.WithContext(ctx).Model(&models.Message{}).
		Select(joinedColumns).
		Joins(joinJiraFields)
	for _, cond := range compiled.Conds {
		query = query.Where(cond.SQL, cond.Vars...)
	}
	query = query.Order(strings.Join(compiled.Order, ", ")).
		Limit(compiled.Limit).
		Offset(compiled.Offset)

	var recs []repository.MessageRecord
	if err := query.Scan(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store) MessageStats(ctx context.Context, since time.Time) (repository.Stats, error) {
	var stats repository.Stats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Message{}).Count(&stats.TotalMessages).Error; err != nil {
		return stats, err
	}
	err := db.Model(&models.Message{}).
		Where("date_invalidated IS NULL").
		Count(&stats.ValidMessages).Error
	if err != nil {
		return stats, err
	}
	var sum struct {
		TimeLost decimal.Decimal
	}
	err = db.Model(&models.Message{}).
		Select("COALESCE(SUM(time_lost), 0) AS time_lost").
		Where("date_invalidated IS NULL").
		Where("date_added >= ?", since).
		Scan(&sum).Error
	if err != nil {
		return stats, err
	}
	stats.TimeLost = sum.TimeLost
	return stats, nil
}

// getJoined reads one message joined with its taxonomy row.
// Returns (nil, nil) when no row exists.
func getJoined(tx *gorm.DB, id uuid.UUID) (*repository.MessageRecord, error) {
	var rec repository.MessageRecord
	res := tx.Model(&models.Message{}).
		Select(joinedColumns).
		Joins(joinJiraFields).
		Where("messages.id = ?", id).
		Limit(1).
		Scan(&rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &rec, nil
}
