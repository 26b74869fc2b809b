package units

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, companyID, unitID int64) (Unit, error)
	ListByCompany(ctx context.Context, companyID int64) ([]Unit, error)
	Create(ctx context.Context, u Unit) (Unit, error)
	Update(ctx context.Context, u Unit) error
}

// Service manages the unit master and serves unit lookups, optionally through
// the Redis cache.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Get resolves a single unit, preferring the cached company set.
func (s *Service) Get(ctx context.Context, companyID, unitID int64) (Unit, error) {
	if unitID <= 0 {
		return Unit{}, ErrUnitNotFound
	}
	if s.cache != nil {
		units, err := s.cache.Fetch(ctx, companyID, func(ctx context.Context) ([]Unit, error) {
			return s.repo.ListByCompany(ctx, companyID)
		})
		if err == nil {
			for _, u := range units {
				if u.ID == unitID {
					return u, nil
				}
			}
			return Unit{}, ErrUnitNotFound
		}
	}
	return s.repo.Get(ctx, companyID, unitID)
}

// List returns the company's units.
func (s *Service) List(ctx context.Context, companyID int64) ([]Unit, error) {
	if s.cache != nil {
		units, err := s.cache.Fetch(ctx, companyID, func(ctx context.Context) ([]Unit, error) {
			return s.repo.ListByCompany(ctx, companyID)
		})
		if err == nil {
			return units, nil
		}
	}
	return s.repo.ListByCompany(ctx, companyID)
}

// Create validates and stores a new unit.
func (s *Service) Create(ctx context.Context, u Unit) (Unit, error) {
	if err := s.validate(u); err != nil {
		return Unit{}, err
	}
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return Unit{}, err
	}
	_ = s.cache.Bump(ctx)
	return created, nil
}

// Update validates and persists unit changes.
func (s *Service) Update(ctx context.Context, u Unit) error {
	if u.ID <= 0 {
		return ErrUnitNotFound
	}
	if err := s.validate(u); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}
	return s.cache.Bump(ctx)
}

func (s *Service) validate(u Unit) error {
	if strings.TrimSpace(u.Code) == "" {
		return errors.New("units: code required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("units: name required")
	}
	if !u.Type.IsValid() {
		return errors.New("units: unknown unit type")
	}
	if u.FactorToBase.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidFactor
	}
	if u.IsBase && !u.FactorToBase.Equal(decimal.NewFromInt(1)) {
		return errors.New("units: base unit factor must be 1")
	}
	return nil
}
