package products

import (
	"context"
	"errors"

	"github.com/kardexlabs/kardex/internal/masterdata/shared"
	"github.com/kardexlabs/kardex/internal/movement"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, errors.New("invalid product ID")
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, product Product) error {
	if product.ID <= 0 {
		return errors.New("invalid product ID")
	}
	if err := s.validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, product)
}

func (s *Service) Deactivate(ctx context.Context, companyID, id int64) error {
	if id <= 0 {
		return errors.New("invalid product ID")
	}
	return s.repo.Deactivate(ctx, companyID, id)
}

// Resolve implements the product lookup the movement engine and transfer
// workflow depend on. Inactive products stay resolvable so historic documents
// keep loading; only posting new stock against them is a business decision
// left to callers.
func (s *Service) Resolve(ctx context.Context, companyID, productID int64) (movement.ProductRef, error) {
	p, err := s.repo.Get(ctx, companyID, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return movement.ProductRef{}, &movement.ProductNotFoundError{ProductID: productID}
		}
		return movement.ProductRef{}, err
	}
	return movement.ProductRef{
		ID:         p.ID,
		Code:       p.Code,
		Name:       p.Name,
		BaseUnitID: p.BaseUnitID,
	}, nil
}
