package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ratecell/ratecell/internal/clock"
	"github.com/ratecell/ratecell/internal/metrics"
	ratingdomain "github.com/ratecell/ratecell/internal/rating/domain"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"github.com/ratecell/ratecell/pkg/db/option"
	"github.com/ratecell/ratecell/pkg/db/pagination"
	"github.com/ratecell/ratecell/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	RatingSvc ratingdomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	ratingsvc ratingdomain.Service
	usagerepo repository.Repository[usagedomain.UsageRecord]
	metrics   *metrics.Metrics
}

func New(p Params) usagedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("usage.service"),
		genID: p.GenID,
		clock: p.Clock,

		ratingsvc: p.RatingSvc,
		usagerepo: repository.ProvideStore[usagedomain.UsageRecord](p.DB),
		metrics:   p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req usagedomain.IngestRequest) (*usagedomain.IngestResult, error) {
	msisdn := strings.TrimSpace(req.MSISDN)
	if msisdn == "" {
		return nil, usagedomain.ErrInvalidMSISDN
	}
	if req.DurationSecs < 0 {
		return nil, usagedomain.ErrInvalidDuration
	}
	if req.BytesUsed < 0 {
		return nil, usagedomain.ErrInvalidBytes
	}

	callType := strings.ToLower(strings.TrimSpace(req.CallType))

	now := s.clock.Now()
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	record := &usagedomain.UsageRecord{
		ID:           s.genID.Generate(),
		MSISDN:       msisdn,
		CallType:     callType,
		DurationSecs: req.DurationSecs,
		BytesUsed:    req.BytesUsed,
		OccurredAt:   occurredAt.UTC(),
		CreatedAt:    now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	// The raw record is committed before rating on purpose: CDRs are never
	// lost, even when rating rejects the call type.
	if err := s.usagerepo.Create(ctx, record); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IngestedRecords.WithLabelValues(metrics.CallTypeLabel(callType)).Inc()
	}

	rated, err := s.ratingsvc.Rate(ctx, rateRequestFor(record))
	if err != nil {
		if s.metrics != nil {
			s.metrics.RatingFailures.WithLabelValues(ratingFailureReason(err)).Inc()
		}
		s.log.Warn("rating failed after usage record commit",
			zap.String("usage_record_id", record.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RatedEvents.Inc()
	}

	return &usagedomain.IngestResult{Record: record, Rated: rated}, nil
}

func (s *Service) GetRatedEvent(ctx context.Context, id string) (*usagedomain.IngestResult, error) {
	recordID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || recordID == 0 {
		return nil, usagedomain.ErrInvalidID
	}

	record, err := s.usagerepo.FindOne(ctx, &usagedomain.UsageRecord{ID: recordID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, usagedomain.ErrNotFound
	}

	rated, err := s.ratingsvc.GetByUsageRecordID(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	if rated == nil {
		// Repair path: a prior attempt failed between record commit and
		// rating. One conditional re-invocation, not a retry loop.
		rated, err = s.ratingsvc.Rate(ctx, rateRequestFor(record))
		if err != nil {
			return nil, err
		}
	}

	return &usagedomain.IngestResult{Record: record, Rated: rated}, nil
}

type summaryRow struct {
	CallType          string
	TotalEvents       int64
	TotalDurationSecs int64
	TotalBytes        int64
	TotalCharge       float64
}

func (s *Service) Summarize(ctx context.Context, msisdn string, from, to time.Time) (usagedomain.UsageSummary, error) {
	msisdn = strings.TrimSpace(msisdn)
	if msisdn == "" {
		return usagedomain.UsageSummary{}, usagedomain.ErrInvalidMSISDN
	}
	if from.After(to) {
		return usagedomain.UsageSummary{}, usagedomain.ErrInvalidRange
	}

	var rows []summaryRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT u.call_type AS call_type,
		        COUNT(u.id) AS total_events,
		        COALESCE(SUM(u.duration_secs), 0) AS total_duration_secs,
		        COALESCE(SUM(u.bytes_used), 0) AS total_bytes,
		        COALESCE(SUM(r.charge_amount), 0) AS total_charge
		 FROM usage_records u
		 JOIN rated_events r ON r.usage_record_id = u.id
		 WHERE u.msisdn = ? AND u.occurred_at >= ? AND u.occurred_at <= ?
		 GROUP BY u.call_type
		 ORDER BY u.call_type`,
		msisdn,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return usagedomain.UsageSummary{}, err
	}

	summary := usagedomain.UsageSummary{
		MSISDN: msisdn,
		FromTS: from,
		ToTS:   to,
		Items:  make([]usagedomain.SummaryItem, 0, len(rows)),
	}
	for _, row := range rows {
		summary.Items = append(summary.Items, usagedomain.SummaryItem{
			CallType:          row.CallType,
			TotalEvents:       row.TotalEvents,
			TotalDurationSecs: row.TotalDurationSecs,
			TotalBytes:        row.TotalBytes,
			TotalCharge:       row.TotalCharge,
		})
		summary.TotalCharge += row.TotalCharge
	}

	return summary, nil
}

func (s *Service) List(ctx context.Context, req usagedomain.ListUsageRequest) (usagedomain.ListUsageResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := &usagedomain.UsageRecord{
		MSISDN:   strings.TrimSpace(req.MSISDN),
		CallType: strings.ToLower(strings.TrimSpace(req.CallType)),
	}

	items, err := s.usagerepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
	)
	if err != nil {
		return usagedomain.ListUsageResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *usagedomain.UsageRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]usagedomain.UsageRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := usagedomain.ListUsageResponse{Records: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func rateRequestFor(record *usagedomain.UsageRecord) ratingdomain.RateRequest {
	return ratingdomain.RateRequest{
		UsageRecordID: record.ID,
		MSISDN:        record.MSISDN,
		CallType:      record.CallType,
		DurationSecs:  record.DurationSecs,
		BytesUsed:     record.BytesUsed,
	}
}

func ratingFailureReason(err error) string {
	if err == nil {
		return "none"
	}
	switch {
	case errors.Is(err, ratingdomain.ErrUnknownCallType):
		return "unknown_call_type"
	case errors.Is(err, tariffdomain.ErrNoPlanConfigured):
		return "no_plan_configured"
	default:
		return "internal"
	}
}
