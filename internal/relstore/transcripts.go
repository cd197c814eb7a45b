package relstore

import (
	"context"
	"fmt"

	"github.com/fenwicklabs/audiopipe/internal/model"
)

// UpsertTranscript inserts or replaces the Transcript row for an audio clip.
func (s *Store) UpsertTranscript(ctx context.Context, t model.Transcript) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcripts (audio_id, text, language, confidence)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (audio_id) DO UPDATE SET text = $2, language = $3, confidence = $4`,
		t.AudioID, t.Text, t.Language, t.Confidence,
	)
	if err != nil {
		return fmt.Errorf("relstore: upsert transcript for %d: %w", t.AudioID, err)
	}
	return nil
}

// UpsertClassification inserts or replaces the Classification row for an
// audio clip.
func (s *Store) UpsertClassification(ctx context.Context, c model.Classification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO classifications (audio_id, flagged, score, category)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (audio_id) DO UPDATE SET flagged = $2, score = $3, category = $4`,
		c.AudioID, c.Flagged, c.Score, c.Category,
	)
	if err != nil {
		return fmt.Errorf("relstore: upsert classification for %d: %w", c.AudioID, err)
	}
	return nil
}
