package relstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fenwicklabs/audiopipe/internal/model"
)

// InsertAudioRecord inserts a single AudioRecord with status=pending and
// returns the assigned ID. Called by the GPU Worker on first sight of a
// clip, before transcription begins.
func (s *Store) InsertAudioRecord(ctx context.Context, record model.AudioRecord) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO audio_files (batch_id, original_filename, opus_path, archive_source, duration_seconds, file_size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		record.BatchID, record.OriginalFilename, record.OpusPath, record.ArchiveSource,
		record.DurationSeconds, record.FileSizeBytes, string(record.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("relstore: insert audio record: %w", err)
	}
	return id, nil
}

// UpdateStatus sets an AudioRecord's status and processed_at timestamp.
func (s *Store) UpdateStatus(ctx context.Context, audioID int64, status model.ClipStatus) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE audio_files SET status = $1, processed_at = now() WHERE id = $2",
		string(status), audioID,
	)
	if err != nil {
		return fmt.Errorf("relstore: update status for %d: %w", audioID, err)
	}
	return nil
}

// UpdateOpusObjectKey persists the blob store key a clip's opus file was
// uploaded to. Must be called only after the upload succeeds (I4).
func (s *Store) UpdateOpusObjectKey(ctx context.Context, audioID int64, objectKey string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE audio_files SET opus_object_key = $1 WHERE id = $2",
		objectKey, audioID,
	)
	if err != nil {
		return fmt.Errorf("relstore: update opus object key for %d: %w", audioID, err)
	}
	return nil
}

// GetAudioRecord fetches a single AudioRecord by ID.
func (s *Store) GetAudioRecord(ctx context.Context, audioID int64) (model.AudioRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, batch_id, original_filename, opus_path, archive_source, duration_seconds,
		        file_size_bytes, status, opus_object_key, created_at, processed_at
		   FROM audio_files WHERE id = $1`,
		audioID,
	)
	return scanAudioRecord(row)
}

func scanAudioRecord(row pgx.Row) (model.AudioRecord, error) {
	var rec model.AudioRecord
	var status string
	if err := row.Scan(
		&rec.ID, &rec.BatchID, &rec.OriginalFilename, &rec.OpusPath, &rec.ArchiveSource,
		&rec.DurationSeconds, &rec.FileSizeBytes, &status, &rec.OpusObjectKey, &rec.CreatedAt, &rec.ProcessedAt,
	); err != nil {
		return model.AudioRecord{}, fmt.Errorf("relstore: scan audio record: %w", err)
	}
	rec.Status = model.ClipStatus(status)
	return rec, nil
}
