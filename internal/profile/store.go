// Package profile serves applicant data and round outcomes, with a Redis
// read-through cache over the per-applicant outcome view the gate engine
// consumes on every booking attempt.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"admissions-coordinator/internal/audit"
	"admissions-coordinator/internal/common/config"
	apperrors "admissions-coordinator/internal/common/errors"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"
	"admissions-coordinator/internal/stagegate"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrApplicantNotFound = errors.New("APPLICANT_NOT_FOUND")

const outcomesCachePrefix = "outcomes:"

type Store struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	auditor  audit.Indexer
	logger   logger.Logger
}

func NewStore(db *sql.DB, cache *redis.Client, cfg config.RedisConfig, auditor audit.Indexer, log logger.Logger) *Store {
	return &Store{
		db:       db,
		cache:    cache,
		cacheTTL: time.Duration(cfg.CacheTTL) * time.Second,
		auditor:  auditor,
		logger:   log.WithFields(map[string]interface{}{"component": "profile"}),
	}
}

// GetApplicant returns the contact slice of an application.
func (s *Store) GetApplicant(ctx context.Context, applicantID string) (*models.Applicant, error) {
	var app models.Applicant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, stage, created_at, updated_at
		FROM applicants
		WHERE id = $1`, applicantID).
		Scan(&app.ID, &app.Name, &app.Email, &app.Phone, &app.Stage,
			&app.CreatedAt, &app.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrApplicantNotFound, applicantID)
	}
	if err != nil {
		return nil, fmt.Errorf("applicant lookup failed: %w", err)
	}
	return &app, nil
}

// GetRoundOutcomes returns the applicant's outcome view, read through the
// cache. Cache failures degrade to the database, never to an error.
func (s *Store) GetRoundOutcomes(ctx context.Context, applicantID string) (*models.RoundOutcomes, error) {
	key := outcomesCachePrefix + applicantID

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var view models.RoundOutcomes
			if err := json.Unmarshal([]byte(cached), &view); err == nil {
				return &view, nil
			}
			// Corrupt entry; fall through to the database and rewrite it.
			s.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
		} else if err != redis.Nil {
			s.logger.Warn("outcome cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	view, err := s.loadRoundOutcomes(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(view); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("outcome cache write failed", map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				})
			}
		}
	}

	return view, nil
}

func (s *Store) loadRoundOutcomes(ctx context.Context, applicantID string) (*models.RoundOutcomes, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, applicant_id, round_type, status, comments, author, created_at, updated_at
		FROM round_outcomes
		WHERE applicant_id = $1
		ORDER BY created_at`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("round outcome query failed: %w", err)
	}
	defer rows.Close()

	view := &models.RoundOutcomes{ApplicantID: applicantID}
	for rows.Next() {
		var o models.RoundOutcome
		if err := rows.Scan(&o.ID, &o.ApplicantID, &o.RoundType, &o.Status,
			&o.Comments, &o.Author, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("round outcome scan failed: %w", err)
		}
		switch o.RoundType {
		case models.RoundScreening:
			screening := o
			view.Screening = &screening
		case models.RoundLearning:
			view.Learning = append(view.Learning, o)
		case models.RoundCultural:
			view.Cultural = append(view.Cultural, o)
		}
	}
	return view, rows.Err()
}

// RecordOutcome writes a round outcome and invalidates the cached view.
// Screening keeps a single row per applicant; the interview rounds append
// one row per attempt. A round that already carries a terminal pass is
// immutable; the exam-bypass sentinel does not lock screening, so a real
// exam result can still be recorded after it.
func (s *Store) RecordOutcome(ctx context.Context, outcome *models.RoundOutcome) error {
	if !models.ValidRoundType(outcome.RoundType) {
		return apperrors.NewValidationFailed(fmt.Sprintf("unknown round type %q", outcome.RoundType))
	}
	if !models.ValidRoundStatus(outcome.RoundType, outcome.Status) {
		return apperrors.NewValidationFailed(fmt.Sprintf(
			"status %q is not valid for round %q", outcome.Status, outcome.RoundType))
	}

	current, err := s.loadRoundOutcomes(ctx, outcome.ApplicantID)
	if err != nil {
		return apperrors.NewStorageFailed("round outcome read", err)
	}
	if s.hasTerminalPass(current, outcome.RoundType) {
		return apperrors.NewGateViolation(
			fmt.Sprintf("the %s round is already passed and can no longer be edited", outcome.RoundType),
			fmt.Sprintf("applicantId: %s", outcome.ApplicantID))
	}

	if outcome.ID == "" {
		outcome.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	outcome.CreatedAt = now
	outcome.UpdatedAt = now

	if outcome.RoundType == models.RoundScreening {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO round_outcomes
				(id, applicant_id, round_type, status, comments, author, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (applicant_id, round_type) WHERE round_type = 'screening'
			DO UPDATE SET status = EXCLUDED.status, comments = EXCLUDED.comments,
			              author = EXCLUDED.author, updated_at = EXCLUDED.updated_at`,
			outcome.ID, outcome.ApplicantID, outcome.RoundType, outcome.Status,
			outcome.Comments, outcome.Author, outcome.CreatedAt, outcome.UpdatedAt)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO round_outcomes
				(id, applicant_id, round_type, status, comments, author, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			outcome.ID, outcome.ApplicantID, outcome.RoundType, outcome.Status,
			outcome.Comments, outcome.Author, outcome.CreatedAt, outcome.UpdatedAt)
	}
	if err != nil {
		return apperrors.NewStorageFailed("round outcome write", err)
	}

	s.invalidate(ctx, outcome.ApplicantID)

	s.auditor.Index(ctx, audit.Event{
		Type:        audit.EventOutcomeRecorded,
		ApplicantID: outcome.ApplicantID,
		Actor:       outcome.Author,
		Details: map[string]interface{}{
			"roundType": outcome.RoundType,
			"status":    outcome.Status,
		},
	})

	s.logger.Info("round outcome recorded", map[string]interface{}{
		"applicantId": outcome.ApplicantID,
		"roundType":   outcome.RoundType,
		"status":      outcome.Status,
	})
	return nil
}

// hasTerminalPass checks for a strict pass on the round. Unlike the gate
// engine's HasPassed, the screening bypass sentinel does not count.
func (s *Store) hasTerminalPass(view *models.RoundOutcomes, round models.RoundType) bool {
	switch round {
	case models.RoundScreening:
		return view.Screening != nil && stagegate.IsTerminalPass(round, view.Screening.Status)
	case models.RoundLearning:
		for _, o := range view.Learning {
			if stagegate.IsTerminalPass(round, o.Status) {
				return true
			}
		}
	case models.RoundCultural:
		for _, o := range view.Cultural {
			if stagegate.IsTerminalPass(round, o.Status) {
				return true
			}
		}
	}
	return false
}

func (s *Store) invalidate(ctx context.Context, applicantID string) {
	if s.cache == nil {
		return
	}
	key := outcomesCachePrefix + applicantID
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("outcome cache invalidation failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
