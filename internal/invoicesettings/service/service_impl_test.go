package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.InvoiceSettings{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	svc := New(Params{DB: db, Log: zap.NewNop()})
	return svc, db, node.Generate()
}

func TestGetCreatesDefaultRowOnce(t *testing.T) {
	svc, db, orgID := setupService(t)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "W", settings.InvoicePrefix)
	assert.EqualValues(t, 1, settings.NextInvoiceNumber)
	assert.Equal(t, "LA", settings.AgreementPrefix)

	_, err = svc.Get(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&domain.InvoiceSettings{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestReserveInvoiceNumbersSequential(t *testing.T) {
	svc, db, orgID := setupService(t)
	ctx := context.Background()

	var first []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = svc.ReserveInvoiceNumbers(ctx, tx, orgID, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"W00001", "W00002"}, first)

	var second []string
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = svc.ReserveInvoiceNumbers(ctx, tx, orgID, 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"W00003"}, second)
}

func TestReserveKeepsExistingRow(t *testing.T) {
	svc, db, orgID := setupService(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ReserveInvoiceNumbers(ctx, tx, orgID, 1)
		return err
	})
	require.NoError(t, err)

	// a second reservation must reuse the row, not reset the counter
	err = db.Transaction(func(tx *gorm.DB) error {
		numbers, err := svc.ReserveAgreementNumbers(ctx, tx, orgID, 1)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"LA00001"}, numbers)
		return nil
	})
	require.NoError(t, err)

	var settings domain.InvoiceSettings
	require.NoError(t, db.First(&settings, "org_id = ?", orgID).Error)
	assert.EqualValues(t, 2, settings.NextInvoiceNumber)
	assert.EqualValues(t, 2, settings.NextAgreementNumber)
}
