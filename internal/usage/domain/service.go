package domain

import (
	"context"
	"errors"
	"time"

	ratingdomain "github.com/ratecell/ratecell/internal/rating/domain"
	"github.com/ratecell/ratecell/pkg/db/pagination"
)

type IngestRequest struct {
	MSISDN       string         `json:"msisdn"`
	CallType     string         `json:"call_type"`
	DurationSecs int64          `json:"duration_secs"`
	BytesUsed    int64          `json:"bytes_used"`
	OccurredAt   time.Time      `json:"occurred_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// IngestResult pairs a usage record with its rated event.
type IngestResult struct {
	Record *UsageRecord             `json:"usage_record"`
	Rated  *ratingdomain.RatedEvent `json:"rated_event"`
}

type ListUsageRequest struct {
	MSISDN    string
	CallType  string
	PageToken string
	PageSize  int32
}

type ListUsageResponse struct {
	pagination.PageInfo
	Records []UsageRecord `json:"usage_records"`
}

// SummaryItem aggregates rated events of one call type.
type SummaryItem struct {
	CallType          string  `json:"call_type"`
	TotalEvents       int64   `json:"total_events"`
	TotalDurationSecs int64   `json:"total_duration_secs"`
	TotalBytes        int64   `json:"total_bytes"`
	TotalCharge       float64 `json:"total_charge"`
}

type UsageSummary struct {
	MSISDN      string        `json:"msisdn"`
	FromTS      time.Time     `json:"from_ts"`
	ToTS        time.Time     `json:"to_ts"`
	Items       []SummaryItem `json:"items"`
	TotalCharge float64       `json:"total_charge"`
}

type Service interface {
	// Ingest persists a raw usage record and rates it. The record is
	// committed before rating runs, so a rating failure never loses the
	// raw CDR.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// GetRatedEvent returns a usage record with its rated event, rating
	// the record once if an earlier attempt failed after the record was
	// committed.
	GetRatedEvent(ctx context.Context, id string) (*IngestResult, error)

	// Summarize groups rated events by call type over the inclusive
	// window [from, to].
	Summarize(ctx context.Context, msisdn string, from, to time.Time) (UsageSummary, error)

	List(ctx context.Context, req ListUsageRequest) (ListUsageResponse, error)
}

var (
	ErrInvalidMSISDN   = errors.New("invalid_msisdn")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrInvalidBytes    = errors.New("invalid_bytes")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidRange    = errors.New("invalid_range")
	ErrNotFound        = errors.New("not_found")
)
