package services

import (
	"context"
	"strings"

	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/repos"
)

const maxLeaderboard = 50

type SubmitScoreInput struct {
	Username string `json:"username" binding:"required"`
	Score    int64  `json:"score" binding:"gte=0"`
	Duration int64  `json:"duration" binding:"gte=0"`
}

type LeaderboardService struct {
	base
	repo *repos.Repo
}

func NewLeaderboardService(repo *repos.Repo, opts ...Option) *LeaderboardService {
	return &LeaderboardService{base: newBase(opts), repo: repo}
}

func (s *LeaderboardService) Submit(ctx context.Context, ownerID string, in SubmitScoreInput) (*models.LeaderboardEntry, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Username)
	if name == "" {
		return nil, invalid("username", "is required")
	}
	if in.Score < 0 || in.Duration < 0 {
		return nil, invalid("score", "and duration must not be negative")
	}
	e := &models.LeaderboardEntry{
		OwnerID:  ownerID,
		Username: name,
		Score:    in.Score,
		Duration: in.Duration,
		PlayedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.InsertScore(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Top returns the best scores, highest first; faster runs win ties.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboard {
		limit = maxLeaderboard
	}
	return s.repo.TopScores(ctx, limit)
}
