package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/gastrack/cylinderbill/internal/rental/domain"
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
	repo  repository.Repository[domain.Rental]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rental.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Rental](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRentalRequest) (domain.Rental, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Rental{}, domain.ErrInvalidOrganization
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil {
		return domain.Rental{}, domain.ErrInvalidCustomer
	}

	unitID := strings.TrimSpace(req.UnitID)
	if unitID == "" {
		return domain.Rental{}, domain.ErrInvalidUnit
	}

	rentalType, err := normalizeRentalType(req.RentalType)
	if err != nil {
		return domain.Rental{}, err
	}

	var leaseID *snowflake.ID
	if req.LeaseID != nil && strings.TrimSpace(*req.LeaseID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.LeaseID))
		if err != nil {
			return domain.Rental{}, domain.ErrInvalidID
		}
		leaseID = &parsed
	}

	now := time.Now().UTC()
	rental := domain.Rental{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		CustomerID:  customerID,
		UnitID:      unitID,
		ProductCode: strings.TrimSpace(req.ProductCode),
		GasType:     strings.TrimSpace(req.GasType),
		Size:        strings.TrimSpace(req.Size),
		Location:    strings.TrimSpace(req.Location),
		RentalType:  rentalType,
		LeaseID:     leaseID,
		RentalStart: req.RentalStart,
		TaxRate:     req.TaxRate,
		Status:      domain.RentalStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, &rental); err != nil {
		return domain.Rental{}, err
	}
	return rental, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRentalRequest) ([]domain.Rental, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	filter := &domain.Rental{OrgID: orgID, Status: req.Status}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
		if err != nil {
			return nil, domain.ErrInvalidCustomer
		}
		filter.CustomerID = customerID
	}

	items, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return collect(items), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Rental, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Rental{}, domain.ErrInvalidOrganization
	}

	rentalID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Rental{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindOne(ctx, &domain.Rental{ID: rentalID, OrgID: orgID})
	if err != nil {
		return domain.Rental{}, err
	}
	if item == nil {
		return domain.Rental{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ActiveForCustomer(ctx context.Context, customerID snowflake.ID) ([]domain.Rental, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.Find(ctx, &domain.Rental{
		OrgID:      orgID,
		CustomerID: customerID,
		Status:     domain.RentalStatusActive,
	})
	if err != nil {
		return nil, err
	}
	return collect(items), nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRentalRequest) (domain.Rental, error) {
	rental, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Rental{}, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.RentalType != nil {
		rentalType, err := normalizeRentalType(*req.RentalType)
		if err != nil {
			return domain.Rental{}, err
		}
		updates["rental_type"] = rentalType
	}
	if req.LeaseID != nil {
		if strings.TrimSpace(*req.LeaseID) == "" {
			updates["lease_id"] = nil
		} else {
			leaseID, err := snowflake.ParseString(strings.TrimSpace(*req.LeaseID))
			if err != nil {
				return domain.Rental{}, domain.ErrInvalidID
			}
			updates["lease_id"] = leaseID
		}
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = *req.TaxRate
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if err := s.repo.Update(ctx, rental.ID.String(), updates); err != nil {
		return domain.Rental{}, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) End(ctx context.Context, id string) error {
	rental, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, rental.ID.String(), map[string]any{
		"status":     domain.RentalStatusEnded,
		"updated_at": time.Now().UTC(),
	})
}

// normalizeRentalType keeps the stored tag a closed set; empty stays
// empty and means "classify at invoice time".
func normalizeRentalType(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "monthly":
		return "monthly", nil
	case "yearly", "annual":
		return "yearly", nil
	default:
		return "", domain.ErrInvalidRentalType
	}
}

func collect(items []*domain.Rental) []domain.Rental {
	rentals := make([]domain.Rental, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rentals = append(rentals, *item)
	}
	return rentals
}
