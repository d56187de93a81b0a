// Package scheduler runs the periodic lease due-billing sweep. Every
// RunInterval it visits each organization and bills every active
// agreement whose next billing date has arrived.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gastrack/cylinderbill/internal/clock"
	leasedomain "github.com/gastrack/cylinderbill/internal/lease/domain"
	"github.com/gastrack/cylinderbill/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependencies")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	LeaseSvc leasedomain.Service
	Config   Config `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	leaseSvc leasedomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.LeaseSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		leaseSvc: p.LeaseSvc,
	}, nil
}

// RunOnce sweeps due lease billing for every organization. A failed
// organization is logged and does not stop the sweep; the joined error
// is returned so the caller can surface it.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	var orgIDs []snowflake.ID
	if err := s.db.WithContext(ctx).
		Table("organizations").
		Order("id ASC").
		Pluck("id", &orgIDs).Error; err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	var err error
	for _, orgID := range orgIDs {
		results, sweepErr := s.leaseSvc.ProcessDueBilling(orgcontext.WithOrgID(ctx, orgID))
		if sweepErr != nil {
			s.log.Warn("due billing sweep failed",
				zap.String("org_id", orgID.String()),
				zap.Error(sweepErr),
			)
			err = errors.Join(err, fmt.Errorf("org %s: %w", orgID, sweepErr))
			continue
		}
		billed := 0
		for _, r := range results {
			if r.Processed {
				billed++
			}
		}
		if len(results) > 0 {
			s.log.Info("due billing sweep finished",
				zap.String("org_id", orgID.String()),
				zap.Int("due", len(results)),
				zap.Int("billed", billed),
			)
		}
	}
	return err
}

// RunForever runs sweeps at the configured interval until ctx is
// canceled. The first sweep fires immediately.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
