package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/ratecell/ratecell/internal/clock"
	"github.com/ratecell/ratecell/internal/rating/domain"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
	subscriberservice "github.com/ratecell/ratecell/internal/subscriber/service"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	tariffservice "github.com/ratecell/ratecell/internal/tariff/service"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	err = conn.AutoMigrate(
		&tariffdomain.TariffPlan{},
		&subscriberdomain.Subscriber{},
		&usagedomain.UsageRecord{},
		&domain.RatedEvent{},
	)
	if err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	logger := zap.NewNop()

	tariffsvc := tariffservice.New(tariffservice.Params{
		DB:    conn,
		Log:   logger,
		GenID: node,
	})
	subscribersvc := subscriberservice.New(subscriberservice.Params{
		DB:        conn,
		Log:       logger,
		GenID:     node,
		TariffSvc: tariffsvc,
	})
	svc := New(Params{
		DB:            conn,
		Log:           logger,
		GenID:         node,
		Clock:         clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		SubscriberSvc: subscribersvc,
	})
	return svc, conn
}

func TestRate_ChargeComputation(t *testing.T) {
	// Default plan: voice 0.5/min, sms 0.1 flat, data 0.05/MB.
	tests := []struct {
		name   string
		req    domain.RateRequest
		charge float64
	}{
		{
			name:   "voice partial minute rounds up",
			req:    domain.RateRequest{CallType: "voice", DurationSecs: 125},
			charge: 1.5,
		},
		{
			name:   "voice exact minutes",
			req:    domain.RateRequest{CallType: "voice", DurationSecs: 120},
			charge: 1.0,
		},
		{
			name:   "voice zero duration",
			req:    domain.RateRequest{CallType: "voice", DurationSecs: 0},
			charge: 0,
		},
		{
			name:   "sms flat rate ignores duration",
			req:    domain.RateRequest{CallType: "sms", DurationSecs: 999},
			charge: 0.1,
		},
		{
			name:   "data one megabyte",
			req:    domain.RateRequest{CallType: "data", BytesUsed: 1048576},
			charge: 0.05,
		},
		{
			name:   "data fractional megabyte is not rounded up",
			req:    domain.RateRequest{CallType: "data", BytesUsed: 524288},
			charge: 0.025,
		},
		{
			name:   "data zero bytes",
			req:    domain.RateRequest{CallType: "data", BytesUsed: 0},
			charge: 0,
		},
	}

	svc, _ := newTestService(t)
	node, _ := snowflake.NewNode(3)
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.UsageRecordID = node.Generate()
			req.MSISDN = "14155550200"

			event, err := svc.Rate(ctx, req)
			assert.NoError(t, err)
			assert.Equal(t, tt.charge, event.ChargeAmount)
			assert.Equal(t, "USD", event.Currency)
		})
	}
}

func TestRate_NormalizesCallType(t *testing.T) {
	svc, _ := newTestService(t)
	node, _ := snowflake.NewNode(3)

	// Records persisted with legacy casing still price correctly.
	event, err := svc.Rate(context.Background(), domain.RateRequest{
		UsageRecordID: node.Generate(),
		MSISDN:        "14155550210",
		CallType:      " SMS ",
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.1, event.ChargeAmount)
	assert.Equal(t, "sms", event.CallType)
}

func TestRate_UnknownCallType(t *testing.T) {
	svc, conn := newTestService(t)
	node, _ := snowflake.NewNode(3)

	_, err := svc.Rate(context.Background(), domain.RateRequest{
		UsageRecordID: node.Generate(),
		MSISDN:        "14155550201",
		CallType:      "fax",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownCallType)

	var count int64
	conn.Model(&domain.RatedEvent{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRate_MissingUsageRecordID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Rate(context.Background(), domain.RateRequest{
		MSISDN:   "14155550202",
		CallType: "sms",
	})
	assert.ErrorIs(t, err, domain.ErrMissingUsageRecord)
}

func TestRate_IdempotentPerUsageRecord(t *testing.T) {
	svc, conn := newTestService(t)
	node, _ := snowflake.NewNode(3)
	ctx := context.Background()

	req := domain.RateRequest{
		UsageRecordID: node.Generate(),
		MSISDN:        "14155550203",
		CallType:      "voice",
		DurationSecs:  61,
	}

	first, err := svc.Rate(ctx, req)
	assert.NoError(t, err)

	second, err := svc.Rate(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ChargeAmount, second.ChargeAmount)

	var count int64
	conn.Model(&domain.RatedEvent{}).Where("usage_record_id = ?", req.UsageRecordID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetByUsageRecordID_NilWhenUnrated(t *testing.T) {
	svc, _ := newTestService(t)
	node, _ := snowflake.NewNode(3)

	event, err := svc.GetByUsageRecordID(context.Background(), node.Generate())
	assert.NoError(t, err)
	assert.Nil(t, event)
}
