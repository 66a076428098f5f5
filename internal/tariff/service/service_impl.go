package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ratecell/ratecell/internal/tariff/domain"
	"github.com/ratecell/ratecell/pkg/db"
	"github.com/ratecell/ratecell/pkg/db/option"
	"github.com/ratecell/ratecell/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPlanName      = "Basic"
	defaultVoiceRate     = 0.5
	defaultSMSRate       = 0.1
	defaultDataRate      = 0.05
	demoSubscriberMSISDN = "9999999999"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	planrepo repository.Repository[domain.TariffPlan]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tariff.service"),
		genID: p.GenID,

		planrepo: repository.ProvideStore[domain.TariffPlan](p.DB),
	}
}

func (s *Service) EnsureDefault(ctx context.Context) error {
	count, err := s.planrepo.Count(ctx, &domain.TariffPlan{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()

	// Concurrent cold starts may race here; the unique index on name
	// decides the winner and losers fall through to the re-read below.
	err = s.db.WithContext(ctx).Exec(
		`INSERT INTO tariff_plans (id, name, voice_rate_per_min, sms_rate, data_rate_per_mb, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		s.genID.Generate(),
		defaultPlanName,
		defaultVoiceRate,
		defaultSMSRate,
		defaultDataRate,
		now,
	).Error
	if err != nil {
		return err
	}

	plan, err := s.planrepo.FindOne(ctx, &domain.TariffPlan{Name: defaultPlanName})
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrNoPlanConfigured
	}

	err = s.db.WithContext(ctx).Exec(
		`INSERT INTO subscribers (id, msisdn, plan_id, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (msisdn) DO NOTHING`,
		s.genID.Generate(),
		demoSubscriberMSISDN,
		plan.ID,
		now,
	).Error
	if err != nil {
		return err
	}

	s.log.Info("seeded default tariff plan",
		zap.String("plan", defaultPlanName),
		zap.String("demo_msisdn", demoSubscriberMSISDN),
	)
	return nil
}

func (s *Service) FirstAvailable(ctx context.Context) (domain.TariffPlan, error) {
	var plan domain.TariffPlan
	err := s.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TariffPlan{}, domain.ErrNoPlanConfigured
		}
		return domain.TariffPlan{}, err
	}
	return plan, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (domain.TariffPlan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.TariffPlan{}, domain.ErrInvalidName
	}
	if req.VoiceRatePerMin < 0 || req.SMSRate < 0 || req.DataRatePerMB < 0 {
		return domain.TariffPlan{}, domain.ErrInvalidRate
	}

	existing, err := s.planrepo.FindOne(ctx, &domain.TariffPlan{Name: name})
	if err != nil {
		return domain.TariffPlan{}, err
	}
	if existing != nil {
		return domain.TariffPlan{}, domain.ErrPlanExists
	}

	plan := domain.TariffPlan{
		ID:              s.genID.Generate(),
		Name:            name,
		VoiceRatePerMin: req.VoiceRatePerMin,
		SMSRate:         req.SMSRate,
		DataRatePerMB:   req.DataRatePerMB,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.planrepo.Create(ctx, &plan); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.TariffPlan{}, domain.ErrPlanExists
		}
		return domain.TariffPlan{}, err
	}

	return plan, nil
}

func (s *Service) List(ctx context.Context) ([]domain.TariffPlan, error) {
	items, err := s.planrepo.Find(ctx, &domain.TariffPlan{}, option.WithOrder("created_at ASC, id ASC"))
	if err != nil {
		return nil, err
	}

	plans := make([]domain.TariffPlan, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		plans = append(plans, *item)
	}
	return plans, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (domain.TariffPlan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.TariffPlan{}, domain.ErrInvalidName
	}

	plan, err := s.planrepo.FindOne(ctx, &domain.TariffPlan{Name: name})
	if err != nil {
		return domain.TariffPlan{}, err
	}
	if plan == nil {
		return domain.TariffPlan{}, domain.ErrNotFound
	}
	return *plan, nil
}
