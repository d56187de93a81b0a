package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/gastrack/cylinderbill/internal/organization/domain"
	"github.com/gastrack/cylinderbill/pkg/repository"
	"github.com/gosimple/slug"
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
	repo  repository.Repository[domain.Organization]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Organization](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Organization{}, domain.ErrInvalidName
	}

	orgSlug := strings.TrimSpace(req.Slug)
	if orgSlug == "" {
		orgSlug = slug.Make(name)
	}
	if orgSlug == "" {
		return domain.Organization{}, domain.ErrInvalidSlug
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:         s.genID.Generate(),
		Name:       name,
		Slug:       orgSlug,
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		Province:   strings.TrimSpace(req.Province),
		PostalCode: strings.TrimSpace(req.PostalCode),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, &org); err != nil {
		return domain.Organization{}, err
	}
	return org, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Organization, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Organization{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &domain.Organization{ID: orgID})
	if err != nil {
		return domain.Organization{}, err
	}
	if item == nil {
		return domain.Organization{}, domain.ErrNotFound
	}
	return *item, nil
}

// GetCurrent resolves the tenant from the request context.
func (s *Service) GetCurrent(ctx context.Context) (domain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Organization{}, domain.ErrInvalidID
	}
	return s.GetByID(ctx, orgID.String())
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateOrganizationRequest) (domain.Organization, error) {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Organization{}, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	applyString := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	applyString("name", req.Name)
	applyString("email", req.Email)
	applyString("phone", req.Phone)
	applyString("address", req.Address)
	applyString("city", req.City)
	applyString("province", req.Province)
	applyString("postal_code", req.PostalCode)

	if err := s.repo.Update(ctx, org.ID.String(), updates); err != nil {
		return domain.Organization{}, err
	}
	return s.GetByID(ctx, id)
}
