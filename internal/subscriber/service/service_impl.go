package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ratecell/ratecell/internal/subscriber/domain"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	"github.com/ratecell/ratecell/pkg/db"
	"github.com/ratecell/ratecell/pkg/db/option"
	"github.com/ratecell/ratecell/pkg/db/pagination"
	"github.com/ratecell/ratecell/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	TariffSvc tariffdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	tariffsvc tariffdomain.Service
	subrepo   repository.Repository[domain.Subscriber]
	planrepo  repository.Repository[tariffdomain.TariffPlan]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscriber.service"),
		genID: p.GenID,

		tariffsvc: p.TariffSvc,
		subrepo:   repository.ProvideStore[domain.Subscriber](p.DB),
		planrepo:  repository.ProvideStore[tariffdomain.TariffPlan](p.DB),
	}
}

func (s *Service) ResolveOrCreate(ctx context.Context, msisdn string) (domain.Resolution, error) {
	msisdn = strings.TrimSpace(msisdn)
	if msisdn == "" {
		return domain.Resolution{}, domain.ErrInvalidMSISDN
	}

	existing, err := s.subrepo.FindOne(ctx, &domain.Subscriber{MSISDN: msisdn})
	if err != nil {
		return domain.Resolution{}, err
	}
	if existing != nil {
		return s.withPlan(ctx, *existing)
	}

	plan, err := s.tariffsvc.FirstAvailable(ctx)
	if errors.Is(err, tariffdomain.ErrNoPlanConfigured) {
		if err := s.tariffsvc.EnsureDefault(ctx); err != nil {
			return domain.Resolution{}, err
		}
		plan, err = s.tariffsvc.FirstAvailable(ctx)
		if err != nil {
			return domain.Resolution{}, err
		}
	} else if err != nil {
		return domain.Resolution{}, err
	}

	sub := domain.Subscriber{
		ID:        s.genID.Generate(),
		MSISDN:    msisdn,
		PlanID:    plan.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.subrepo.Create(ctx, &sub); err != nil {
		// Concurrent first contact for the same MSISDN: the unique index
		// keeps one row, losers re-read the winner.
		if !db.IsDuplicateKeyErr(err) {
			return domain.Resolution{}, err
		}
		winner, findErr := s.subrepo.FindOne(ctx, &domain.Subscriber{MSISDN: msisdn})
		if findErr != nil {
			return domain.Resolution{}, findErr
		}
		if winner == nil {
			return domain.Resolution{}, err
		}
		return s.withPlan(ctx, *winner)
	}

	s.log.Info("auto-provisioned subscriber",
		zap.String("msisdn", msisdn),
		zap.String("plan", plan.Name),
	)
	return domain.Resolution{Subscriber: sub, Plan: plan}, nil
}

func (s *Service) GetByMSISDN(ctx context.Context, msisdn string) (domain.Resolution, error) {
	msisdn = strings.TrimSpace(msisdn)
	if msisdn == "" {
		return domain.Resolution{}, domain.ErrInvalidMSISDN
	}

	sub, err := s.subrepo.FindOne(ctx, &domain.Subscriber{MSISDN: msisdn})
	if err != nil {
		return domain.Resolution{}, err
	}
	if sub == nil {
		return domain.Resolution{}, domain.ErrNotFound
	}
	return s.withPlan(ctx, *sub)
}

func (s *Service) List(ctx context.Context, req domain.ListSubscriberRequest) (domain.ListSubscriberResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.subrepo.Find(ctx, &domain.Subscriber{},
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
	)
	if err != nil {
		return domain.ListSubscriberResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(sub *domain.Subscriber) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        sub.ID.String(),
			CreatedAt: sub.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	subscribers := make([]domain.Subscriber, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		subscribers = append(subscribers, *item)
	}

	resp := domain.ListSubscriberResponse{Subscribers: subscribers}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) withPlan(ctx context.Context, sub domain.Subscriber) (domain.Resolution, error) {
	plan, err := s.planrepo.FindOne(ctx, &tariffdomain.TariffPlan{ID: sub.PlanID})
	if err != nil {
		return domain.Resolution{}, err
	}
	if plan == nil {
		return domain.Resolution{}, tariffdomain.ErrNoPlanConfigured
	}
	return domain.Resolution{Subscriber: sub, Plan: *plan}, nil
}
