package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
)

// SegmentStore persists the segment timeline for a job. Each pipeline stage
// enriches the rows it owns: transcribe creates them, diarize rewrites them
// after merging, later stages update single columns.
type SegmentStore struct {
	db *DB
}

// NewSegmentStore creates a segment store.
func NewSegmentStore(db *DB) *SegmentStore {
	return &SegmentStore{db: db}
}

// Replace swaps the job's segment rows for the given timeline in one
// transaction. Used after transcription and again after speaker merging
// changes the segment boundaries.
func (s *SegmentStore) Replace(ctx context.Context, jobID uuid.UUID, segments []models.TimeSegment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}

	now := time.Now()
	insertQuery := `
		INSERT INTO segments (job_id, idx, start_ms, end_ms, duration_ms, src_text, translated_text, words_json, speaker, emotion, audio_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for _, seg := range segments {
		startMs := int(seg.Start * 1000)
		endMs := int(seg.End * 1000)

		var wordsJSON *string
		if len(seg.Words) > 0 {
			raw, err := json.Marshal(seg.Words)
			if err != nil {
				return fmt.Errorf("failed to marshal words: %w", err)
			}
			str := string(raw)
			wordsJSON = &str
		}

		if _, err := tx.ExecContext(ctx, insertQuery,
			jobID, seg.Idx, startMs, endMs, endMs-startMs,
			seg.Text, nullable(seg.TranslatedText), wordsJSON,
			nullable(seg.Speaker), nullable(seg.Emotion), nullable(seg.AudioPath),
			now, now,
		); err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", seg.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit segments: %w", err)
	}
	return nil
}

// Load returns the job's segments ordered by position.
func (s *SegmentStore) Load(ctx context.Context, jobID uuid.UUID) ([]models.TimeSegment, error) {
	query := `
		SELECT idx, start_ms, end_ms, src_text, translated_text, words_json, speaker, emotion, audio_key
		FROM segments WHERE job_id = $1 ORDER BY idx
	`
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.TimeSegment
	for rows.Next() {
		var (
			seg        models.TimeSegment
			startMs    int
			endMs      int
			translated sql.NullString
			wordsJSON  sql.NullString
			speaker    sql.NullString
			emotion    sql.NullString
			audioKey   sql.NullString
		)
		if err := rows.Scan(&seg.Idx, &startMs, &endMs, &seg.Text, &translated, &wordsJSON, &speaker, &emotion, &audioKey); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}

		seg.Start = float64(startMs) / 1000
		seg.End = float64(endMs) / 1000
		seg.TranslatedText = translated.String
		seg.Speaker = speaker.String
		seg.Emotion = emotion.String
		seg.AudioPath = audioKey.String

		if wordsJSON.Valid && wordsJSON.String != "" {
			if err := json.Unmarshal([]byte(wordsJSON.String), &seg.Words); err != nil {
				return nil, fmt.Errorf("failed to unmarshal words for segment %d: %w", seg.Idx, err)
			}
		}

		segments = append(segments, seg)
	}

	return segments, rows.Err()
}

// UpdateTranslation sets the translated text for one segment.
func (s *SegmentStore) UpdateTranslation(ctx context.Context, jobID uuid.UUID, idx int, text string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE segments SET translated_text = $1, updated_at = $2 WHERE job_id = $3 AND idx = $4`,
		text, time.Now(), jobID, idx,
	)
	return err
}

// UpdateEmotion sets the emotion label for one segment.
func (s *SegmentStore) UpdateEmotion(ctx context.Context, jobID uuid.UUID, idx int, emotion string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE segments SET emotion = $1, updated_at = $2 WHERE job_id = $3 AND idx = $4`,
		emotion, time.Now(), jobID, idx,
	)
	return err
}

// SetAudioKey records where the synthesized clip landed. A nil key marks a
// failed synthesis; the slot stays silent in the reconstructed track.
func (s *SegmentStore) SetAudioKey(ctx context.Context, jobID uuid.UUID, idx int, key *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE segments SET audio_key = $1, updated_at = $2 WHERE job_id = $3 AND idx = $4`,
		key, time.Now(), jobID, idx,
	)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
