package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/billing"
	"github.com/gastrack/cylinderbill/internal/clock"
	"github.com/gastrack/cylinderbill/internal/config"
	customerdomain "github.com/gastrack/cylinderbill/internal/customer/domain"
	"github.com/gastrack/cylinderbill/internal/invoice/domain"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	orgdomain "github.com/gastrack/cylinderbill/internal/organization/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/gastrack/cylinderbill/internal/providers/email"
	"github.com/gastrack/cylinderbill/internal/providers/pdf"
	rentaldomain "github.com/gastrack/cylinderbill/internal/rental/domain"
	taxdomain "github.com/gastrack/cylinderbill/internal/tax/domain"
	"github.com/gastrack/cylinderbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Orgs      orgdomain.Service
	Customers customerdomain.Service
	Rentals   rentaldomain.Service
	Leases    leasedomain.Service
	Tax       taxdomain.Resolver
	Settings  settingsdomain.Service
	Billing   *config.BillingConfigHolder
	PDF       pdf.Provider
	Email     email.Provider
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	orgs      orgdomain.Service
	customers customerdomain.Service
	rentals   rentaldomain.Service
	leases    leasedomain.Service
	tax       taxdomain.Resolver
	settings  settingsdomain.Service
	billing   *config.BillingConfigHolder
	pdf       pdf.Provider
	email     email.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		orgs:      p.Orgs,
		customers: p.Customers,
		rentals:   p.Rentals,
		leases:    p.Leases,
		tax:       p.Tax,
		settings:  p.Settings,
		billing:   p.Billing,
		pdf:       p.PDF,
		email:     p.Email,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.GenerateResult{}, domain.ErrInvalidOrganization
	}

	customerID, err := snowflake.ParseString(req.CustomerID)
	if err != nil {
		return domain.GenerateResult{}, domain.ErrInvalidCustomer
	}
	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	rentals, err := s.rentals.ActiveForCustomer(ctx, customerID)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	if len(rentals) == 0 {
		return domain.GenerateResult{}, domain.ErrNoActiveRentals
	}

	lease, err := s.leases.FindActiveForCustomer(ctx, customerID, customer.Name)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	lineItems, err := s.buildLineItems(ctx, rentals)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = s.clock.Now()
	}

	cfg := s.billing.Get()
	monthlyRate := decimal.NewFromFloat(cfg.DefaultMonthlyRate)
	if req.MonthlyRate != nil && *req.MonthlyRate > 0 {
		monthlyRate = decimal.NewFromFloat(*req.MonthlyRate)
	}

	taxResolution := s.tax.Resolve(ctx, &rentals[0])

	result, err := billing.Calculate(billing.InvoiceRequest{
		InvoiceDate: invoiceDate,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		LineItems:   lineItems,
		Lease:       lease.ToBilling(),
		MonthlyRate: monthlyRate,
		TaxRate:     decimal.NewFromFloat(taxResolution.Rate),
	})
	if err != nil {
		return domain.GenerateResult{}, err
	}
	rounded := result.Rounded()

	inv := domain.Invoice{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		CustomerID:    customerID,
		CustomerName:  customer.Name,
		InvoiceDate:   invoiceDate,
		DueDate:       invoiceDate.AddDate(0, 0, cfg.DefaultDueDays),
		PeriodStart:   result.PeriodStart,
		PeriodEnd:     result.PeriodEnd,
		IsYearly:      result.IsYearly,
		MonthsCharged: result.MonthsCharged,
		UnitCount:     len(result.Lines),
		Subtotal:      rounded.Subtotal,
		TaxRate:       result.TaxRate,
		TaxAmount:     rounded.TaxAmount,
		Total:         rounded.Total,
		Status:        domain.InvoiceStatusDraft,
	}
	if lease != nil {
		leaseID := lease.ID
		inv.LeaseID = &leaseID
		inv.AgreementNum = lease.AgreementNumber
	}

	items := make([]domain.InvoiceItem, 0, len(result.Lines))
	rentalsByUnit := make(map[string]snowflake.ID, len(rentals))
	for _, rental := range rentals {
		rentalsByUnit[rental.UnitID] = rental.ID
	}
	for _, line := range result.Lines {
		items = append(items, domain.InvoiceItem{
			ID:          s.genID.Generate(),
			InvoiceID:   inv.ID,
			RentalID:    rentalsByUnit[line.UnitID],
			UnitID:      line.UnitID,
			ProductCode: line.ProductCode,
			GasType:     line.GasType,
			Size:        line.Size,
			MonthlyRate: line.MonthlyRate.Round(2),
			Months:      result.MonthsCharged,
			LineTotal:   line.LineTotal.Round(2),
			DaysHeld:    line.DaysHeld,
		})
	}

	// Number reservation and the two inserts commit together, so a
	// failed insert never burns a number and a reserved number never
	// points at a half-written invoice.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		numbers, err := s.settings.ReserveInvoiceNumbers(ctx, tx, orgID, 1)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = numbers[0]
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		s.log.Error("invoice generation failed",
			zap.String("customer_id", req.CustomerID),
			zap.Error(err),
		)
		return domain.GenerateResult{}, err
	}
	inv.Items = items

	s.log.Info("invoice generated",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Bool("is_yearly", inv.IsYearly),
		zap.Int("months_charged", inv.MonthsCharged),
		zap.Int("unit_count", inv.UnitCount),
		zap.String("total", inv.Total.StringFixed(2)),
	)
	return domain.GenerateResult{Invoice: inv, Warnings: result.Warnings}, nil
}

// buildLineItems maps rental rows to engine inputs, resolving each
// rental's linked lease at most once.
func (s *Service) buildLineItems(ctx context.Context, rentals []rentaldomain.Rental) ([]billing.RentalLineItem, error) {
	leaseCache := make(map[snowflake.ID]*billing.LeaseAgreement)

	items := make([]billing.RentalLineItem, 0, len(rentals))
	for i := range rentals {
		rental := rentals[i]
		item := billing.RentalLineItem{
			UnitID:         rental.UnitID,
			ProductCode:    rental.ProductCode,
			GasType:        rental.GasType,
			Size:           rental.Size,
			RentalType:     billing.RentalType(rental.RentalType),
			RentalStart:    rental.RentalStart,
			DaysAtLocation: rental.DaysAtLocation,
			TaxRate:        rental.TaxRate,
		}
		if rental.LeaseID != nil {
			cached, ok := leaseCache[*rental.LeaseID]
			if !ok {
				lease, err := s.leases.GetByID(ctx, rental.LeaseID.String())
				if err != nil {
					return nil, err
				}
				cached = lease.ToBilling()
				leaseCache[*rental.LeaseID] = cached
			}
			item.Lease = cached
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	invoices, pageInfo, err := s.query(ctx, req, true)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	return domain.ListInvoiceResponse{Invoices: invoices, PageInfo: pageInfo}, nil
}

func (s *Service) query(ctx context.Context, req domain.ListInvoiceRequest, paginate bool) ([]domain.Invoice, *pagination.PageInfo, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, nil, domain.ErrInvalidOrganization
	}

	query := s.db.WithContext(ctx).Where("org_id = ?", orgID)
	if req.CustomerID != "" {
		customerID, err := snowflake.ParseString(req.CustomerID)
		if err != nil {
			return nil, nil, domain.ErrInvalidCustomer
		}
		query = query.Where("customer_id = ?", customerID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if !req.DateFrom.IsZero() {
		query = query.Where("invoice_date >= ?", req.DateFrom)
	}
	if !req.DateTo.IsZero() {
		query = query.Where("invoice_date <= ?", req.DateTo)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if paginate {
		if req.PageToken != "" {
			cursor, err := pagination.DecodeCursor(req.PageToken)
			if err == nil && cursor.CreatedAt != "" {
				query = query.Where("created_at < ?", cursor.CreatedAt)
			}
		}
		query = query.Limit(int(pageSize) + 1)
	}

	var rows []*domain.Invoice
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var pageInfo *pagination.PageInfo
	if paginate {
		pageInfo = pagination.BuildCursorPageInfo(rows, pageSize, func(inv *domain.Invoice) string {
			token, err := pagination.EncodeCursor(pagination.Cursor{
				ID:        inv.ID.String(),
				CreatedAt: inv.CreatedAt.Format(time.RFC3339),
			})
			if err != nil {
				return ""
			}
			return token
		})
		if pageInfo != nil && pageInfo.HasMore && len(rows) > int(pageSize) {
			rows = rows[:pageSize]
		}
	}

	invoices := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		invoices = append(invoices, *row)
	}
	return invoices, pageInfo, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Invoice{}, domain.ErrInvalidOrganization
	}

	invoiceID, err := snowflake.ParseString(id)
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	var inv domain.Invoice
	err = s.db.WithContext(ctx).
		Preload("Items").
		Where("org_id = ? AND id = ?", orgID, invoiceID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invoice{}, domain.ErrNotFound
		}
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) (domain.Invoice, error) {
	return s.setStatus(ctx, id, domain.InvoiceStatusPaid)
}

func (s *Service) Void(ctx context.Context, id string) (domain.Invoice, error) {
	return s.setStatus(ctx, id, domain.InvoiceStatusVoid)
}

func (s *Service) setStatus(ctx context.Context, id string, status domain.InvoiceStatus) (domain.Invoice, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.Status = status
	inv.UpdatedAt = s.clock.Now()
	if err := s.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{"status": status, "updated_at": inv.UpdatedAt}).Error; err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (s *Service) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.buildDocument(ctx, inv)
	if err != nil {
		return nil, err
	}

	reader, err := s.pdf.RenderInvoice(ctx, doc)
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, nil
	}
	return io.ReadAll(reader)
}

func (s *Service) buildDocument(ctx context.Context, inv domain.Invoice) (pdf.InvoiceDocument, error) {
	org, err := s.orgs.GetCurrent(ctx)
	if err != nil {
		return pdf.InvoiceDocument{}, err
	}
	customer, err := s.customers.GetByID(ctx, inv.CustomerID.String())
	if err != nil {
		return pdf.InvoiceDocument{}, err
	}

	doc := pdf.InvoiceDocument{
		OrgName:       org.Name,
		OrgAddress:    joinAddress(org.Address, org.City, org.Province, org.PostalCode),
		OrgEmail:      org.Email,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.InvoiceDate.Format("Jan 2, 2006"),
		DueDate:       inv.DueDate.Format("Jan 2, 2006"),
		BillingPeriod: fmt.Sprintf("%s to %s",
			inv.PeriodStart.Format("Jan 2, 2006"),
			inv.PeriodEnd.Format("Jan 2, 2006"),
		),
		BillToName:    customer.Name,
		BillToAddress: joinAddress(customer.Address, customer.City, customer.Province, customer.PostalCode),
		BillToEmail:   customer.Email,
		Subtotal:      money(inv.Subtotal),
		TaxLabel:      fmt.Sprintf("Tax (%s%%)", inv.TaxRate.Mul(decimal.NewFromInt(100)).StringFixed(2)),
		TaxAmount:     money(inv.TaxAmount),
		Total:         money(inv.Total),
	}
	if inv.IsYearly && inv.AgreementNum != "" {
		doc.AgreementNote = fmt.Sprintf("Billed under lease agreement %s", inv.AgreementNum)
	}

	for _, item := range inv.Items {
		doc.Items = append(doc.Items, pdf.InvoiceLine{
			UnitID:      item.UnitID,
			Description: describeItem(item),
			DaysHeld:    fmt.Sprintf("%d", item.DaysHeld),
			MonthlyRate: money(item.MonthlyRate),
			Months:      fmt.Sprintf("%d", item.Months),
			Amount:      money(item.LineTotal),
		})
	}
	return doc, nil
}

func (s *Service) Send(ctx context.Context, req domain.SendRequest) (domain.Invoice, error) {
	inv, err := s.GetByID(ctx, req.InvoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if inv.Status == domain.InvoiceStatusVoid {
		return domain.Invoice{}, domain.ErrNotSendable
	}

	customer, err := s.customers.GetByID(ctx, inv.CustomerID.String())
	if err != nil {
		return domain.Invoice{}, err
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = strings.TrimSpace(customer.Email)
	}
	if recipient == "" {
		return domain.Invoice{}, domain.ErrNoRecipient
	}

	attachment, err := s.RenderPDF(ctx, req.InvoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}

	subject, body, err := s.renderEmail(ctx, inv, customer)
	if err != nil {
		return domain.Invoice{}, err
	}

	err = s.email.Send(ctx, email.Message{
		To:             []string{recipient},
		Subject:        subject,
		HTMLBody:       body,
		Attachment:     attachment,
		AttachmentName: inv.InvoiceNumber + ".pdf",
	})
	if err != nil {
		s.log.Error("invoice email failed",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err),
		)
		return domain.Invoice{}, err
	}

	now := s.clock.Now()
	inv.EmailedAt = &now
	if inv.Status == domain.InvoiceStatusDraft {
		inv.Status = domain.InvoiceStatusSent
	}
	err = s.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{"emailed_at": now, "status": inv.Status, "updated_at": now}).Error
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("invoice emailed",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("recipient", recipient),
	)
	return inv, nil
}

// renderEmail executes the org's subject/body templates against the
// invoice. Missing templates fall back to a plain default.
func (s *Service) renderEmail(ctx context.Context, inv domain.Invoice, customer customerdomain.Customer) (string, string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", "", err
	}
	org, err := s.orgs.GetCurrent(ctx)
	if err != nil {
		return "", "", err
	}

	data := map[string]string{
		"OrganizationName": org.Name,
		"InvoiceNumber":    inv.InvoiceNumber,
		"CustomerName":     customer.Name,
		"Total":            money(inv.Total),
		"DueDate":          inv.DueDate.Format("Jan 2, 2006"),
		"PeriodStart":      inv.PeriodStart.Format("Jan 2, 2006"),
		"PeriodEnd":        inv.PeriodEnd.Format("Jan 2, 2006"),
	}

	subjectTmpl := settings.EmailSubject
	if subjectTmpl == "" {
		subjectTmpl = "Invoice {{.InvoiceNumber}}"
	}
	bodyTmpl := settings.EmailBody
	if bodyTmpl == "" {
		bodyTmpl = "<p>Hello {{.CustomerName}},</p>" +
			"<p>Please find attached invoice {{.InvoiceNumber}} for {{.Total}}, due {{.DueDate}}.</p>"
	}

	subject, err := renderTemplate("subject", subjectTmpl, data)
	if err != nil {
		return "", "", err
	}
	body, err := renderTemplate("body", bodyTmpl, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func renderTemplate(name, tmpl string, data map[string]string) (string, error) {
	parsed, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var csvHeader = []string{
	"Invoice Number", "Customer", "Invoice Date", "Due Date",
	"Period Start", "Period End", "Type", "Months", "Units",
	"Subtotal", "Tax Rate", "Tax Amount", "Total", "Status",
}

func (s *Service) ExportCSV(ctx context.Context, req domain.ListInvoiceRequest) ([]byte, error) {
	invoices, _, err := s.query(ctx, req, false)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	// BOM keeps Excel from misreading the encoding
	buf.WriteString("\uFEFF")

	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		invoiceType := "monthly"
		if inv.IsYearly {
			invoiceType = "yearly"
		}
		record := []string{
			inv.InvoiceNumber,
			inv.CustomerName,
			inv.InvoiceDate.Format("2006-01-02"),
			inv.DueDate.Format("2006-01-02"),
			inv.PeriodStart.Format("2006-01-02"),
			inv.PeriodEnd.Format("2006-01-02"),
			invoiceType,
			fmt.Sprintf("%d", inv.MonthsCharged),
			fmt.Sprintf("%d", inv.UnitCount),
			inv.Subtotal.StringFixed(2),
			inv.TaxRate.StringFixed(4),
			inv.TaxAmount.StringFixed(2),
			inv.Total.StringFixed(2),
			string(inv.Status),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func describeItem(item domain.InvoiceItem) string {
	parts := make([]string, 0, 3)
	if item.GasType != "" {
		parts = append(parts, item.GasType)
	}
	if item.Size != "" {
		parts = append(parts, item.Size)
	}
	if item.ProductCode != "" {
		parts = append(parts, item.ProductCode)
	}
	if len(parts) == 0 {
		return "Cylinder rental"
	}
	return strings.Join(parts, " / ")
}

func joinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, strings.TrimSpace(part))
		}
	}
	return strings.Join(kept, ", ")
}

func money(value decimal.Decimal) string {
	return "$" + value.StringFixed(2)
}
