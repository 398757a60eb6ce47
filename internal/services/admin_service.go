package services

import (
	"context"

	"countdowntodo-sync/internal/repos"
)

// AdminService holds operator-only maintenance actions.
type AdminService struct {
	base
	repo *repos.Repo
}

func NewAdminService(repo *repos.Repo, opts ...Option) *AdminService {
	return &AdminService{base: newBase(opts), repo: repo}
}

// Reset deletes every client-owned row. Identity mappings survive.
func (s *AdminService) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warnf("database reset by operator")
	return nil
}
