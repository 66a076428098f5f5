package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/ratecell/ratecell/internal/clock"
	"github.com/ratecell/ratecell/internal/config"
	ratingdomain "github.com/ratecell/ratecell/internal/rating/domain"
	ratingservice "github.com/ratecell/ratecell/internal/rating/service"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
	subscriberservice "github.com/ratecell/ratecell/internal/subscriber/service"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	tariffservice "github.com/ratecell/ratecell/internal/tariff/service"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	usageservice "github.com/ratecell/ratecell/internal/usage/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) (*gin.Engine, *clock.FakeClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	err = conn.AutoMigrate(
		&tariffdomain.TariffPlan{},
		&subscriberdomain.Subscriber{},
		&usagedomain.UsageRecord{},
		&ratingdomain.RatedEvent{},
	)
	if err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	logger := zap.NewNop()
	cfg := config.Config{Environment: "test", HTTPAddr: ":0"}
	fake := clock.NewFakeClock(time.Date(2035, 1, 1, 12, 0, 0, 0, time.UTC))

	tariffsvc := tariffservice.New(tariffservice.Params{DB: conn, Log: logger, GenID: node})
	subscribersvc := subscriberservice.New(subscriberservice.Params{DB: conn, Log: logger, GenID: node, TariffSvc: tariffsvc})
	ratingsvc := ratingservice.New(ratingservice.Params{
		DB:            conn,
		Log:           logger,
		GenID:         node,
		Clock:         fake,
		SubscriberSvc: subscribersvc,
	})
	usagesvc := usageservice.New(usageservice.Params{
		DB:        conn,
		Log:       logger,
		GenID:     node,
		Clock:     fake,
		RatingSvc: ratingsvc,
	})

	engine := NewEngine(cfg, logger)
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           cfg,
		Clock:         fake,
		TariffSvc:     tariffsvc,
		SubscriberSvc: subscribersvc,
		UsageSvc:      usagesvc,
	})
	return engine, fake
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestIngestCDR_EndToEnd(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/cdrs/ingest", map[string]any{
		"msisdn":        "14155550400",
		"call_type":     "voice",
		"duration_secs": 125,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var result usagedomain.IngestResult
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotNil(t, result.Record)
	assert.NotNil(t, result.Rated)
	assert.Equal(t, 1.5, result.Rated.ChargeAmount)
	assert.Equal(t, "USD", result.Rated.Currency)
}

func TestIngestCDR_UnknownCallType(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/cdrs/ingest", map[string]any{
		"msisdn":    "14155550401",
		"call_type": "fax",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error.Type)
	if assert.Len(t, resp.Error.Errors, 1) {
		assert.Equal(t, "unknown_call_type", resp.Error.Errors[0].Code)
		assert.Equal(t, "call_type", resp.Error.Errors[0].Field)
	}
}

func TestGetRatedEvent_NotFoundStatus(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doJSON(t, engine, http.MethodGet, "/api/cdrs/123456789", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePlan_ConflictStatus(t *testing.T) {
	engine, _ := newTestEngine(t)

	body := map[string]any{
		"name":               "Gold",
		"voice_rate_per_min": 1.0,
		"sms_rate":           0.2,
		"data_rate_per_mb":   0.1,
	}
	rec := doJSON(t, engine, http.MethodPost, "/api/plans", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, engine, http.MethodPost, "/api/plans", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUsageSummaryEndpoint(t *testing.T) {
	engine, fake := newTestEngine(t)
	msisdn := "14155550402"

	for _, body := range []map[string]any{
		{"msisdn": msisdn, "call_type": "voice", "duration_secs": 60},
		{"msisdn": msisdn, "call_type": "sms"},
	} {
		rec := doJSON(t, engine, http.MethodPost, "/api/cdrs/ingest", body)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	from := fake.Now().Add(-time.Hour).Format(time.RFC3339)
	to := fake.Now().Add(time.Hour).Format(time.RFC3339)
	rec := doJSON(t, engine, http.MethodGet,
		fmt.Sprintf("/api/subscribers/%s/usage?from_ts=%s&to_ts=%s", msisdn, from, to), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary usagedomain.UsageSummary
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, msisdn, summary.MSISDN)
	assert.Len(t, summary.Items, 2)
	assert.InDelta(t, 0.6, summary.TotalCharge, 1e-9)
}

func TestUsageSummaryEndpoint_OpenWindowUsesClock(t *testing.T) {
	engine, _ := newTestEngine(t)
	msisdn := "14155550404"

	rec := doJSON(t, engine, http.MethodPost, "/api/cdrs/ingest", map[string]any{
		"msisdn":    msisdn,
		"call_type": "sms",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// No from_ts/to_ts: the end of the window comes from the injected
	// clock, so a record stamped by that clock is always inside it.
	rec = doJSON(t, engine, http.MethodGet, "/api/subscribers/"+msisdn+"/usage", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var summary usagedomain.UsageSummary
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Len(t, summary.Items, 1)
	assert.InDelta(t, 0.1, summary.TotalCharge, 1e-9)
}

func TestSubscriberAutoProvisionedOnIngest(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/cdrs/ingest", map[string]any{
		"msisdn":    "14155550403",
		"call_type": "sms",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/subscribers/14155550403", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resolution subscriberdomain.Resolution
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolution))
	assert.Equal(t, "Basic", resolution.Plan.Name)
}
