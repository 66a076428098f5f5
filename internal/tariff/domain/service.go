package domain

import (
	"context"
	"errors"
)

type CreatePlanRequest struct {
	Name            string  `json:"name"`
	VoiceRatePerMin float64 `json:"voice_rate_per_min"`
	SMSRate         float64 `json:"sms_rate"`
	DataRatePerMB   float64 `json:"data_rate_per_mb"`
}

type Service interface {
	// EnsureDefault seeds the "Basic" plan and a demo subscriber when the
	// catalog is empty. Safe to call concurrently; a no-op otherwise.
	EnsureDefault(ctx context.Context) error

	// FirstAvailable returns the earliest-created plan, or
	// ErrNoPlanConfigured when the catalog is empty.
	FirstAvailable(ctx context.Context) (TariffPlan, error)

	Create(ctx context.Context, req CreatePlanRequest) (TariffPlan, error)
	List(ctx context.Context) ([]TariffPlan, error)
	GetByName(ctx context.Context, name string) (TariffPlan, error)
}

var (
	ErrNoPlanConfigured = errors.New("no_plan_configured")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidRate      = errors.New("invalid_rate")
	ErrPlanExists       = errors.New("plan_exists")
	ErrNotFound         = errors.New("not_found")
)
