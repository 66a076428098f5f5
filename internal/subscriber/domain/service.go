package domain

import (
	"context"
	"errors"

	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	"github.com/ratecell/ratecell/pkg/db/pagination"
)

// Resolution is a subscriber together with its bound plan.
type Resolution struct {
	Subscriber Subscriber              `json:"subscriber"`
	Plan       tariffdomain.TariffPlan `json:"plan"`
}

type ListSubscriberRequest struct {
	PageToken string
	PageSize  int32
}

type ListSubscriberResponse struct {
	pagination.PageInfo
	Subscribers []Subscriber `json:"subscribers"`
}

type Service interface {
	// ResolveOrCreate looks a subscriber up by exact MSISDN and creates one
	// bound to the first available plan when none exists. Auto-provisioned
	// subscribers all land on the default plan; per-call plan selection is
	// deliberately not supported.
	ResolveOrCreate(ctx context.Context, msisdn string) (Resolution, error)

	GetByMSISDN(ctx context.Context, msisdn string) (Resolution, error)
	List(ctx context.Context, req ListSubscriberRequest) (ListSubscriberResponse, error)
}

var (
	ErrInvalidMSISDN = errors.New("invalid_msisdn")
	ErrNotFound      = errors.New("not_found")
)
