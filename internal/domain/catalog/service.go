package catalog

import (
	"context"
	"fmt"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, kind Kind) ([]*Entry, error) {
	return s.repo.List(ctx, kind)
}

func (s *Service) Get(ctx context.Context, kind Kind, id int) (*Entry, error) {
	return s.repo.GetByID(ctx, kind, id)
}

func (s *Service) Create(ctx context.Context, kind Kind, e *Entry) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(e.Name) > 255 {
		return fmt.Errorf("name must be at most 255 characters")
	}
	if e.Terminal != nil && kind != ProcessStates {
		return fmt.Errorf("terminal only applies to process states")
	}
	return s.repo.Create(ctx, kind, e)
}
