package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/ratecell/ratecell/internal/clock"
	ratingdomain "github.com/ratecell/ratecell/internal/rating/domain"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"github.com/ratecell/ratecell/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bytesPerMB is the binary megabyte used for data pricing.
const bytesPerMB = 1 << 20

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	SubscriberSvc subscriberdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	subscribersvc subscriberdomain.Service
	ratedrepo     repository.Repository[ratingdomain.RatedEvent]
}

func New(p Params) ratingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("rating.service"),
		genID: p.GenID,
		clock: p.Clock,

		subscribersvc: p.SubscriberSvc,
		ratedrepo:     repository.ProvideStore[ratingdomain.RatedEvent](p.DB),
	}
}

func (s *Service) Rate(ctx context.Context, req ratingdomain.RateRequest) (*ratingdomain.RatedEvent, error) {
	if req.UsageRecordID == 0 {
		return nil, ratingdomain.ErrMissingUsageRecord
	}

	// Records written by older ingest paths may carry any casing; price
	// on the normalized form.
	callType := strings.ToLower(strings.TrimSpace(req.CallType))

	resolution, err := s.subscribersvc.ResolveOrCreate(ctx, req.MSISDN)
	if err != nil {
		return nil, err
	}

	charge, err := computeCharge(resolution.Plan, callType, req)
	if err != nil {
		return nil, err
	}

	event := ratingdomain.RatedEvent{
		ID:            s.genID.Generate(),
		UsageRecordID: req.UsageRecordID,
		MSISDN:        req.MSISDN,
		CallType:      callType,
		ChargeAmount:  charge,
		Currency:      ratingdomain.DefaultCurrency,
		RatedAt:       s.clock.Now(),
	}

	inserted, err := s.insertRatedEvent(ctx, &event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent or earlier rating of the same record won; return it.
		existing, err := s.ratedrepo.FindOne(ctx, &ratingdomain.RatedEvent{UsageRecordID: req.UsageRecordID})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("rated event for usage record %s vanished after conflict", req.UsageRecordID)
	}

	s.log.Debug("rated usage record",
		zap.String("usage_record_id", req.UsageRecordID.String()),
		zap.String("call_type", callType),
		zap.Float64("charge_amount", charge),
	)
	return &event, nil
}

func (s *Service) GetByUsageRecordID(ctx context.Context, usageRecordID snowflake.ID) (*ratingdomain.RatedEvent, error) {
	return s.ratedrepo.FindOne(ctx, &ratingdomain.RatedEvent{UsageRecordID: usageRecordID})
}

// computeCharge evaluates the per-unit linear tariff for one record and
// rounds to 4 decimal places, half away from zero. callType must already
// be normalized to lowercase.
func computeCharge(plan tariffdomain.TariffPlan, callType string, req ratingdomain.RateRequest) (float64, error) {
	var charge decimal.Decimal

	switch callType {
	case usagedomain.CallTypeVoice:
		// Partial minutes round up; billing convention.
		minutes := (req.DurationSecs + 59) / 60
		charge = decimal.NewFromInt(minutes).Mul(decimal.NewFromFloat(plan.VoiceRatePerMin))
	case usagedomain.CallTypeSMS:
		charge = decimal.NewFromFloat(plan.SMSRate)
	case usagedomain.CallTypeData:
		// Exact division, no ceiling.
		megabytes := decimal.NewFromInt(req.BytesUsed).Div(decimal.NewFromInt(bytesPerMB))
		charge = megabytes.Mul(decimal.NewFromFloat(plan.DataRatePerMB))
	default:
		return 0, fmt.Errorf("%w: %q", ratingdomain.ErrUnknownCallType, req.CallType)
	}

	return charge.Round(4).InexactFloat64(), nil
}

func (s *Service) insertRatedEvent(ctx context.Context, event *ratingdomain.RatedEvent) (bool, error) {
	result := s.db.WithContext(ctx).Exec(
		`INSERT INTO rated_events (id, usage_record_id, msisdn, call_type, charge_amount, currency, rated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (usage_record_id) DO NOTHING`,
		event.ID,
		event.UsageRecordID,
		event.MSISDN,
		event.CallType,
		event.ChargeAmount,
		event.Currency,
		event.RatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
