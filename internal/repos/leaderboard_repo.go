package repos

import (
	"context"

	"countdowntodo-sync/internal/models"
)

func (r *Repo) InsertScore(ctx context.Context, e *models.LeaderboardEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO leaderboard (owner_id, username, score, duration, played_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.OwnerID, e.Username, e.Score, e.Duration, e.PlayedAt.UTC())
	if err != nil {
		return storageErr(err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *Repo) TopScores(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	out := make([]models.LeaderboardEntry, 0, limit)
	err := r.x.SelectContext(ctx, &out, `
		SELECT id, owner_id, username, score, duration, played_at
		FROM leaderboard
		ORDER BY score DESC, duration ASC, played_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}
