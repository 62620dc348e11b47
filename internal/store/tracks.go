package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stillmind/api/internal/model"
)

// ErrTrackNotFound is returned when a track id does not exist.
var ErrTrackNotFound = errors.New("track not found")

const trackColumns = "id, user_id, title, script, config_json, status, edit_count, original_config_json, output_url, created_at, updated_at"

// CreateTrack inserts a new draft track.
func (s *Store) CreateTrack(ctx context.Context, userID, title, script string, cfg model.TrackConfig) (*model.Track, error) {
	id := uuid.New().String()
	now := formatTime(time.Now())

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal track config: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO tracks (
            id, user_id, title, script, config_json, status, edit_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		userID,
		title,
		script,
		string(cfgJSON),
		model.TrackStatusDraft,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	return s.GetTrack(ctx, id)
}

// GetTrack fetches a track by identifier.
func (s *Store) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// UpdateTrack persists the track's mutable fields. OriginalConfig is written
// through as-is; callers enforce the write-once rule.
func (s *Store) UpdateTrack(ctx context.Context, track *model.Track) error {
	if track == nil {
		return errors.New("track is nil")
	}
	track.UpdatedAt = time.Now().UTC()

	cfgJSON, err := json.Marshal(track.Config)
	if err != nil {
		return fmt.Errorf("marshal track config: %w", err)
	}
	var originalJSON any
	if track.OriginalConfig != nil {
		raw, err := json.Marshal(track.OriginalConfig)
		if err != nil {
			return fmt.Errorf("marshal original config: %w", err)
		}
		originalJSON = string(raw)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE tracks
         SET title = ?, script = ?, config_json = ?, status = ?, edit_count = ?,
             original_config_json = ?, output_url = ?, updated_at = ?
         WHERE id = ?`,
		track.Title,
		track.Script,
		string(cfgJSON),
		track.Status,
		track.EditCount,
		originalJSON,
		nullableString(track.OutputURL),
		formatTime(track.UpdatedAt),
		track.ID,
	)
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	return nil
}

// SetTrackStatus updates only the track's status, used by the worker when a
// render completes or fails.
func (s *Store) SetTrackStatus(ctx context.Context, id string, status model.TrackStatus) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set track status: %w", err)
	}
	return nil
}

// SetTrackOutput records the rendered artifact URL and publishes the track.
func (s *Store) SetTrackOutput(ctx context.Context, id, outputURL string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tracks SET status = ?, output_url = ?, updated_at = ? WHERE id = ?`,
		model.TrackStatusPublished,
		outputURL,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set track output: %w", err)
	}
	return nil
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*model.Track, error) {
	var (
		id          string
		userID      string
		title       string
		script      string
		cfgJSON     string
		statusStr   string
		editCount   int
		originalRaw sql.NullString
		outputURL   sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&userID,
		&title,
		&script,
		&cfgJSON,
		&statusStr,
		&editCount,
		&originalRaw,
		&outputURL,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	track := &model.Track{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Script:    script,
		Status:    model.TrackStatus(statusStr),
		EditCount: editCount,
		OutputURL: outputURL.String,
	}
	if err := json.Unmarshal([]byte(cfgJSON), &track.Config); err != nil {
		return nil, fmt.Errorf("unmarshal track config: %w", err)
	}
	if originalRaw.Valid {
		var original model.TrackConfig
		if err := json.Unmarshal([]byte(originalRaw.String), &original); err != nil {
			return nil, fmt.Errorf("unmarshal original config: %w", err)
		}
		track.OriginalConfig = &original
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		track.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		track.UpdatedAt = updated
	}
	return track, nil
}
