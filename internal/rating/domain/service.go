package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// RateRequest carries the usage-record fields the engine prices on.
type RateRequest struct {
	UsageRecordID snowflake.ID
	MSISDN        string
	CallType      string
	DurationSecs  int64
	BytesUsed     int64
}

type Service interface {
	// Rate resolves the subscriber's plan, computes the charge and
	// persists the rated event. Invoking it again for the same usage
	// record returns the already-persisted event.
	Rate(ctx context.Context, req RateRequest) (*RatedEvent, error)

	// GetByUsageRecordID returns the rated event for a usage record, or
	// nil when the record has not been rated.
	GetByUsageRecordID(ctx context.Context, usageRecordID snowflake.ID) (*RatedEvent, error)
}

var (
	ErrUnknownCallType    = errors.New("unknown_call_type")
	ErrMissingUsageRecord = errors.New("missing_usage_record")
)
