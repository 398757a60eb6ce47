package services

import (
	"context"

	"countdowntodo-sync/internal/identity"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/repos"
)

type MappingService struct {
	base
	repo *repos.Repo
}

func NewMappingService(repo *repos.Repo, opts ...Option) *MappingService {
	return &MappingService{base: newBase(opts), repo: repo}
}

func (s *MappingService) PullIdentityMappings(ctx context.Context) ([]models.IdentityMapping, error) {
	return s.repo.ListMappings(ctx)
}

// ReplaceMappings is the administrative update path; the whole table is
// swapped atomically.
func (s *MappingService) ReplaceMappings(ctx context.Context, ms []models.IdentityMapping) (int, error) {
	clean, err := identity.Validate(ms)
	if err != nil {
		return 0, &ValidationError{Field: "mappings", Message: err.Error()}
	}
	if err := s.repo.ReplaceMappings(ctx, clean); err != nil {
		return 0, err
	}
	s.metrics.RecordMappingLoad()
	s.logger.Infof("identity mapping table replaced with %d entries", len(clean))
	return len(clean), nil
}

// MergeMappings adds or updates the given entries and leaves the rest of the
// table untouched.
func (s *MappingService) MergeMappings(ctx context.Context, ms []models.IdentityMapping) (int, error) {
	clean, err := identity.Validate(ms)
	if err != nil {
		return 0, &ValidationError{Field: "mappings", Message: err.Error()}
	}
	if err := s.repo.UpsertMappings(ctx, clean); err != nil {
		return 0, err
	}
	s.metrics.RecordMappingLoad()
	s.logger.Infof("merged %d identity mappings", len(clean))
	return len(clean), nil
}

// ImportFile loads a seed file and replaces the table with it, or merges it
// into the table when merge is set.
func (s *MappingService) ImportFile(ctx context.Context, path string, merge bool) (int, error) {
	ms, err := identity.LoadFile(path)
	if err != nil {
		return 0, err
	}
	if merge {
		return s.MergeMappings(ctx, ms)
	}
	return s.ReplaceMappings(ctx, ms)
}

// Watch keeps the table in sync with the seed file at path until the
// returned watcher is stopped.
func (s *MappingService) Watch(path string) (*identity.Watcher, error) {
	w, err := identity.NewWatcher(path, func(ms []models.IdentityMapping) error {
		_, err := s.ReplaceMappings(context.Background(), ms)
		return err
	}, s.logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}
