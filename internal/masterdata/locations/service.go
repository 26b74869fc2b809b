package locations

import (
	"context"
	"errors"
	"strings"

	"github.com/kardexlabs/kardex/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, errors.New("invalid location ID")
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) Create(ctx context.Context, location Location) (Location, error) {
	if err := s.validate(location); err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, location)
}

func (s *Service) Update(ctx context.Context, location Location) error {
	if location.ID <= 0 {
		return errors.New("invalid location ID")
	}
	if err := s.validate(location); err != nil {
		return err
	}
	return s.repo.Update(ctx, location)
}

func (s *Service) Deactivate(ctx context.Context, companyID, id int64) error {
	if id <= 0 {
		return errors.New("invalid location ID")
	}
	return s.repo.Deactivate(ctx, companyID, id)
}

func (s *Service) validate(l Location) error {
	if l.CompanyID <= 0 {
		return errors.New("company ID is required")
	}
	if strings.TrimSpace(l.Code) == "" {
		return errors.New("location code is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("location name is required")
	}
	if !l.Type.IsValid() {
		return errors.New("invalid location type")
	}
	return nil
}
