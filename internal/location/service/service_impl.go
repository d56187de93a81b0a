package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/location/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/gastrack/cylinderbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[domain.Location]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("location.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Location](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateLocationRequest) (domain.Location, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Location{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Location{}, domain.ErrInvalidName
	}
	if req.TotalTaxRate < 0 || req.TotalTaxRate > 100 {
		return domain.Location{}, domain.ErrInvalidTaxRate
	}

	now := time.Now().UTC()
	location := domain.Location{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		Province:     strings.TrimSpace(req.Province),
		TotalTaxRate: req.TotalTaxRate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &location); err != nil {
		return domain.Location{}, err
	}
	return location, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Location, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.Find(ctx, &domain.Location{OrgID: orgID})
	if err != nil {
		return nil, err
	}

	locations := make([]domain.Location, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		locations = append(locations, *item)
	}
	return locations, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Location, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Location{}, domain.ErrInvalidOrganization
	}

	locationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Location{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &domain.Location{ID: locationID, OrgID: orgID})
	if err != nil {
		return domain.Location{}, err
	}
	if item == nil {
		return domain.Location{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*domain.Location, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	return s.repo.FindOne(ctx, &domain.Location{OrgID: orgID, Name: name})
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateLocationRequest) (domain.Location, error) {
	location, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Location{}, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Location{}, domain.ErrInvalidName
		}
		updates["name"] = name
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.TotalTaxRate != nil {
		if *req.TotalTaxRate < 0 || *req.TotalTaxRate > 100 {
			return domain.Location{}, domain.ErrInvalidTaxRate
		}
		updates["total_tax_rate"] = *req.TotalTaxRate
	}

	if err := s.repo.Update(ctx, location.ID.String(), updates); err != nil {
		return domain.Location{}, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	location, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, location.ID.String())
}
