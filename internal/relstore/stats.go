package relstore

import (
	"context"
	"fmt"
	"time"

	"github.com/fenwicklabs/audiopipe/internal/model"
)

// ProcessingStats mirrors the pipeline's rolling processing-statistics
// query: a count of clips by status plus a flagged/total-classified ratio,
// both restricted to a trailing window so long-running deployments don't
// pay for a full-table scan.
type ProcessingStats struct {
	StatusCounts    map[string]int64
	FlaggedCount    int64
	TotalClassified int64
}

// GetProcessingStats reports processing statistics over the trailing
// window, mirroring the original pipeline's get_processing_stats.
func (s *Store) GetProcessingStats(ctx context.Context, window time.Duration) (ProcessingStats, error) {
	stats := ProcessingStats{StatusCounts: make(map[string]int64)}
	seconds := window.Seconds()

	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM audio_files
		 WHERE created_at > now() - make_interval(secs => $1)
		 GROUP BY status`,
		seconds,
	)
	if err != nil {
		return stats, fmt.Errorf("relstore: query status counts: %w", err)
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("relstore: scan status count: %w", err)
		}
		stats.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("relstore: iterate status counts: %w", err)
	}
	rows.Close()

	row := s.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE c.flagged) AS flagged_count,
		    COUNT(*) AS total_classified
		  FROM classifications c
		  JOIN audio_files af ON af.id = c.audio_id
		  WHERE af.created_at > now() - make_interval(secs => $1)`,
		seconds,
	)
	if err := row.Scan(&stats.FlaggedCount, &stats.TotalClassified); err != nil {
		return stats, fmt.Errorf("relstore: scan classification totals: %w", err)
	}
	return stats, nil
}

// FlaggedClip is a single row of the pending-review query.
type FlaggedClip struct {
	AudioID          int64
	OriginalFilename string
	OpusPath         string
	TranscriptText   string
	Score            float64
	Category         *string
}

// PendingFlagged returns flagged clips awaiting review, most severe first,
// mirroring the original pipeline's get_pending_flagged.
func (s *Store) PendingFlagged(ctx context.Context, window time.Duration, limit int) ([]FlaggedClip, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT af.id, af.original_filename, af.opus_path, t.text, c.score, c.category
		 FROM audio_files af
		 JOIN transcripts t ON t.audio_id = af.id
		 JOIN classifications c ON c.audio_id = af.id
		 WHERE c.flagged AND af.status = 'flagged'
		   AND af.created_at > now() - make_interval(secs => $1)
		 ORDER BY c.score DESC
		 LIMIT $2`,
		window.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("relstore: query pending flagged: %w", err)
	}
	defer rows.Close()

	var clips []FlaggedClip
	for rows.Next() {
		var clip FlaggedClip
		if err := rows.Scan(&clip.AudioID, &clip.OriginalFilename, &clip.OpusPath, &clip.TranscriptText, &clip.Score, &clip.Category); err != nil {
			return nil, fmt.Errorf("relstore: scan pending flagged row: %w", err)
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relstore: iterate pending flagged: %w", err)
	}
	return clips, nil
}

// ClaimFlaggedForReview atomically claims up to limit flagged clips for a
// reviewer, transitioning them to in_review so a concurrent reviewer's
// claim skips them. Safe for any number of simultaneous callers: the row
// lock taken inside the transaction is held only long enough to flip each
// claimed row's status, and SKIP LOCKED means a caller never blocks behind
// another's in-flight claim.
func (s *Store) ClaimFlaggedForReview(ctx context.Context, limit int) ([]FlaggedClip, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("relstore: begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT af.id, af.original_filename, af.opus_path, t.text, c.score, c.category
		 FROM audio_files af
		 JOIN transcripts t ON t.audio_id = af.id
		 JOIN classifications c ON c.audio_id = af.id
		 WHERE af.status = $1
		 ORDER BY c.score DESC
		 LIMIT $2
		 FOR UPDATE OF af SKIP LOCKED`,
		model.ClipStatusFlagged, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("relstore: query claimable flagged clips: %w", err)
	}

	var clips []FlaggedClip
	var ids []int64
	for rows.Next() {
		var clip FlaggedClip
		if err := rows.Scan(&clip.AudioID, &clip.OriginalFilename, &clip.OpusPath, &clip.TranscriptText, &clip.Score, &clip.Category); err != nil {
			rows.Close()
			return nil, fmt.Errorf("relstore: scan claimable flagged clip: %w", err)
		}
		clips = append(clips, clip)
		ids = append(ids, clip.AudioID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("relstore: iterate claimable flagged clips: %w", err)
	}
	rows.Close()

	if len(ids) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE audio_files SET status = $1 WHERE id = ANY($2)`,
			model.ClipStatusInReview, ids,
		); err != nil {
			return nil, fmt.Errorf("relstore: mark claimed flagged clips in_review: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("relstore: commit claim tx: %w", err)
	}
	return clips, nil
}
