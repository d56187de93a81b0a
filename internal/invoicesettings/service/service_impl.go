package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/gastrack/cylinderbill/pkg/db"
	"github.com/gastrack/cylinderbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo repository.Repository[domain.InvoiceSettings]
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("invoicesettings.service"),
		repo: repository.ProvideStore[domain.InvoiceSettings](p.DB),
	}
}

func (s *Service) Get(ctx context.Context) (domain.InvoiceSettings, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.InvoiceSettings{}, domain.ErrInvalidOrganization
	}

	item, err := s.repo.FindOne(ctx, &domain.InvoiceSettings{OrgID: orgID})
	if err != nil {
		return domain.InvoiceSettings{}, err
	}
	if item != nil {
		return *item, nil
	}

	settings := defaultSettings(orgID)
	if err := s.repo.Create(ctx, &settings); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// lost the creation race; the winner's row is authoritative
			existing, ferr := s.repo.FindOne(ctx, &domain.InvoiceSettings{OrgID: orgID})
			if ferr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.InvoiceSettings{}, err
	}
	return settings, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSettingsRequest) (domain.InvoiceSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return domain.InvoiceSettings{}, err
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if req.InvoicePrefix != nil {
		prefix := strings.TrimSpace(*req.InvoicePrefix)
		if prefix == "" || len(prefix) > 8 {
			return domain.InvoiceSettings{}, domain.ErrInvalidPrefix
		}
		updates["invoice_prefix"] = prefix
	}
	if req.AgreementPrefix != nil {
		prefix := strings.TrimSpace(*req.AgreementPrefix)
		if prefix == "" || len(prefix) > 8 {
			return domain.InvoiceSettings{}, domain.ErrInvalidPrefix
		}
		updates["agreement_prefix"] = prefix
	}
	if req.DefaultTaxRate != nil {
		updates["default_tax_rate"] = *req.DefaultTaxRate
	}
	if req.EmailSubject != nil {
		updates["email_subject"] = strings.TrimSpace(*req.EmailSubject)
	}
	if req.EmailBody != nil {
		updates["email_body"] = *req.EmailBody
	}

	err = s.db.WithContext(ctx).Model(&domain.InvoiceSettings{}).
		Where("org_id = ?", settings.OrgID).
		Updates(updates).Error
	if err != nil {
		return domain.InvoiceSettings{}, err
	}
	return s.Get(ctx)
}

func (s *Service) ReserveInvoiceNumbers(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, count int) ([]string, error) {
	return s.reserve(ctx, tx, orgID, count, "invoice_prefix", "next_invoice_number")
}

func (s *Service) ReserveAgreementNumbers(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, count int) ([]string, error) {
	return s.reserve(ctx, tx, orgID, count, "agreement_prefix", "next_agreement_number")
}

type counterRow struct {
	Prefix string
	Next   int64
}

// reserve allocates count sequential numbers from one of the settings
// counters. The row is locked for the duration of tx on dialects that
// support it; SQLite serializes writers on its own.
func (s *Service) reserve(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, count int, prefixColumn, counterColumn string) ([]string, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if count < 1 {
		return nil, domain.ErrInvalidCount
	}

	if err := s.ensureRow(ctx, tx, orgID); err != nil {
		return nil, err
	}

	var row counterRow
	err := tx.WithContext(ctx).Raw(
		fmt.Sprintf(
			`SELECT %s AS prefix, %s AS next
			 FROM invoice_settings
			 WHERE org_id = ?%s`,
			prefixColumn, counterColumn, db.LockClause(tx),
		),
		orgID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}

	next := row.Next
	if next < 1 {
		next = 1
	}

	numbers := make([]string, 0, count)
	for i := 0; i < count; i++ {
		numbers = append(numbers, FormatNumber(row.Prefix, next+int64(i)))
	}

	err = tx.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE invoice_settings
			 SET %s = ?, updated_at = ?
			 WHERE org_id = ?`,
			counterColumn,
		),
		next+int64(count),
		time.Now().UTC(),
		orgID,
	).Error
	if err != nil {
		return nil, err
	}

	return numbers, nil
}

func (s *Service) ensureRow(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	settings := defaultSettings(orgID)
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&settings).Error
}

func defaultSettings(orgID snowflake.ID) domain.InvoiceSettings {
	now := time.Now().UTC()
	return domain.InvoiceSettings{
		OrgID:               orgID,
		InvoicePrefix:       "W",
		NextInvoiceNumber:   1,
		AgreementPrefix:     "LA",
		NextAgreementNumber: 1,
		EmailSubject:        "Your invoice from {{.OrganizationName}}",
		EmailBody:           "<p>Hello {{.CustomerName}},</p><p>Please find attached invoice {{.InvoiceNumber}} for {{.Total}}, due {{.DueDate}}.</p>",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// FormatNumber renders a sequence value in its display form: prefix
// plus a zero-padded 5-digit counter (W00001, LA00042).
func FormatNumber(prefix string, value int64) string {
	if prefix == "" {
		prefix = "W"
	}
	return fmt.Sprintf("%s%05d", prefix, value)
}
