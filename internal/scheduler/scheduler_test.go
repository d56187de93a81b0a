package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/clock"
	"github.com/gastrack/cylinderbill/internal/config"
	settingsdomain "github.com/gastrack/cylinderbill/internal/invoicesettings/domain"
	settingsservice "github.com/gastrack/cylinderbill/internal/invoicesettings/service"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	leaseservice "github.com/gastrack/cylinderbill/internal/lease/service"
	orgdomain "github.com/gastrack/cylinderbill/internal/organization/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	db    *gorm.DB
	sched *Scheduler
	lease leasedomain.Service
	fake  *clock.FakeClock
	node  *snowflake.Node
}

func setupScheduler(t *testing.T, now time.Time) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&settingsdomain.InvoiceSettings{},
		&leasedomain.LeaseAgreement{},
		&leasedomain.BillingRecord{},
	))

	log := zap.NewNop()
	fake := clock.NewFakeClock(now)
	node, err := snowflake.NewNode(11)
	require.NoError(t, err)
	holder, err := config.NewBillingConfigHolder(log)
	require.NoError(t, err)

	settings := settingsservice.New(settingsservice.Params{DB: db, Log: log})
	lease := leaseservice.New(leaseservice.Params{
		DB:       db,
		Log:      log,
		Clock:    fake,
		GenID:    node,
		Settings: settings,
		Billing:  holder,
	})

	sched, err := New(Params{DB: db, Log: log, Clock: fake, LeaseSvc: lease})
	require.NoError(t, err)

	return &fixture{db: db, sched: sched, lease: lease, fake: fake, node: node}
}

func (f *fixture) addOrg(t *testing.T, name string) snowflake.ID {
	t.Helper()
	org := orgdomain.Organization{ID: f.node.Generate(), Name: name, Slug: name}
	require.NoError(t, f.db.Create(&org).Error)
	return org.ID
}

func TestRunOnceSweepsEveryOrganization(t *testing.T) {
	f := setupScheduler(t, date(2025, time.February, 1))

	orgA := f.addOrg(t, "northgas")
	orgB := f.addOrg(t, "southgas")

	for _, orgID := range []snowflake.ID{orgA, orgB} {
		ctx := orgcontext.WithOrgID(context.Background(), orgID)
		_, err := f.lease.Create(ctx, leasedomain.CreateLeaseRequest{
			CustomerName:     "Harbor Industrial",
			BillingFrequency: "annual",
			StartDate:        date(2025, time.February, 1),
			EndDate:          date(2027, time.January, 31),
			AnnualAmount:     decimal.NewFromInt(1200),
		})
		require.NoError(t, err)
	}

	require.NoError(t, f.sched.RunOnce(context.Background()))

	var records []leasedomain.BillingRecord
	require.NoError(t, f.db.Find(&records).Error)
	assert.Len(t, records, 2)

	var leases []leasedomain.LeaseAgreement
	require.NoError(t, f.db.Find(&leases).Error)
	for _, l := range leases {
		require.NotNil(t, l.NextBillingDate)
		assert.True(t, l.NextBillingDate.After(f.fake.Now()))
	}
}

func TestRunOnceIsIdempotentUntilNextPeriod(t *testing.T) {
	f := setupScheduler(t, date(2025, time.February, 1))

	orgID := f.addOrg(t, "northgas")
	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	_, err := f.lease.Create(ctx, leasedomain.CreateLeaseRequest{
		CustomerName:     "Acme Welding",
		BillingFrequency: "quarterly",
		StartDate:        date(2025, time.February, 1),
		EndDate:          date(2026, time.January, 31),
		AnnualAmount:     decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	require.NoError(t, f.sched.RunOnce(context.Background()))

	var count int64
	require.NoError(t, f.db.Model(&leasedomain.BillingRecord{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Three months later the next period is due.
	f.fake.Advance(91 * 24 * time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	require.NoError(t, f.db.Model(&leasedomain.BillingRecord{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRunOnceWithNoOrganizations(t *testing.T) {
	f := setupScheduler(t, date(2025, time.February, 1))
	require.NoError(t, f.sched.RunOnce(context.Background()))
}
