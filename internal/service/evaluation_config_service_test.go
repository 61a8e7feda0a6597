package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/platform"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeConfigGateway struct {
	mu         sync.Mutex
	patch      evaluation.ConfigPatch
	fetchErr   error
	saveErr    error
	fetchCalls int
	saved      []evaluation.WeightConfig
	onSave     func()
}

func (f *fakeConfigGateway) FetchConfig(ctx context.Context) (evaluation.ConfigPatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	return f.patch, f.fetchErr
}

func (f *fakeConfigGateway) SaveConfig(ctx context.Context, cfg evaluation.WeightConfig) error {
	if f.onSave != nil {
		f.onSave()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, cfg.Rounded())
	return f.saveErr
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestEvaluationConfigServiceStartsFromDefaults(t *testing.T) {
	svc := NewEvaluationConfigService(&fakeConfigGateway{}, nil, 0, nil, "", testLogger())

	current := svc.Current()
	require.Equal(t, evaluation.DefaultWeightConfig(), current.Config)
	require.Equal(t, SourceDefaults, current.Source)
	require.False(t, current.Loaded)
	require.InDelta(t, 1.0, current.WeightsSum, 1e-9)
}

func TestEvaluationConfigServiceLoadMergesAndCaches(t *testing.T) {
	server, client := newRedis(t)
	gateway := &fakeConfigGateway{patch: evaluation.ConfigPatch{
		Alpha:  evaluation.NumberOf(0.5),
		LowMin: evaluation.NumberOf(0.25),
	}}
	svc := NewEvaluationConfigService(gateway, client, time.Minute, nil, "", testLogger())

	loaded := svc.Load(context.Background(), false)
	require.Equal(t, SourceRemote, loaded.Source)
	require.True(t, loaded.Loaded)
	require.Equal(t, 0.5, loaded.Config.Alpha)
	require.Equal(t, 0.25, loaded.Config.LowMin)
	require.Equal(t, 0.7, loaded.Config.LowMax)
	require.True(t, server.Exists(configCacheKey))

	gateway.patch = evaluation.ConfigPatch{Alpha: evaluation.NumberOf(0.9)}
	cached := svc.Load(context.Background(), false)
	require.Equal(t, SourceCache, cached.Source)
	require.Equal(t, 0.5, cached.Config.Alpha)
	require.Equal(t, 1, gateway.fetchCalls)

	forced := svc.Load(context.Background(), true)
	require.Equal(t, SourceRemote, forced.Source)
	require.Equal(t, 0.9, forced.Config.Alpha)
	require.Equal(t, 2, gateway.fetchCalls)
}

func TestEvaluationConfigServiceLoadFailureKeepsCurrentValues(t *testing.T) {
	gateway := &fakeConfigGateway{fetchErr: &platform.NetworkError{Op: "fetch_config", Err: errors.New("connection refused")}}
	svc := NewEvaluationConfigService(gateway, nil, 0, nil, "", testLogger())

	_, err := svc.SetWeight(evaluation.KeyAccuracy, 0.5)
	require.NoError(t, err)
	before := svc.Current()

	after := svc.Load(context.Background(), true)
	require.Equal(t, before.Config, after.Config)
	require.Equal(t, SourceDefaults, after.Source)
	require.False(t, after.Loaded)
}

func TestEvaluationConfigServiceIgnoresCorruptCacheEntry(t *testing.T) {
	server, client := newRedis(t)
	require.NoError(t, server.Set(configCacheKey, "{not json"))

	gateway := &fakeConfigGateway{patch: evaluation.ConfigPatch{Alpha: evaluation.NumberOf(0.4)}}
	svc := NewEvaluationConfigService(gateway, client, time.Minute, nil, "", testLogger())

	loaded := svc.Load(context.Background(), false)
	require.Equal(t, SourceRemote, loaded.Source)
	require.Equal(t, 0.4, loaded.Config.Alpha)
	require.Equal(t, 1, gateway.fetchCalls)
}

func TestEvaluationConfigServiceEdits(t *testing.T) {
	svc := NewEvaluationConfigService(&fakeConfigGateway{}, nil, 0, nil, "", testLogger())

	resp, err := svc.SetWeight(evaluation.KeyTime, 0.6)
	require.NoError(t, err)
	require.Equal(t, 0.6, resp.Config.WeightTime)
	require.InDelta(t, 1.0, resp.WeightsSum, 1e-6)

	_, err = svc.SetWeight(evaluation.WeightKey("speed"), 0.1)
	require.ErrorIs(t, err, evaluation.ErrUnknownWeight)

	resp, err = svc.SetBand(evaluation.BandMedium, 0.9, 0.2)
	require.NoError(t, err)
	require.Equal(t, 0.2, resp.Config.MedMin)
	require.Equal(t, 0.9, resp.Config.MedMax)

	_, err = svc.SetBand(evaluation.Band("high"), 0.1, 0.2)
	require.ErrorIs(t, err, evaluation.ErrUnknownBand)

	resp = svc.SetAlpha(1.4)
	require.Equal(t, 1.0, resp.Config.Alpha)

	resp = svc.SetPeriodDays(14)
	require.Equal(t, 14, resp.Config.PeriodDays)
}

func TestEvaluationConfigServiceSaveSuccess(t *testing.T) {
	server, client := newRedis(t)
	require.NoError(t, server.Set(configCacheKey, `{"engagement_weight_alpha":0.1}`))

	gateway := &fakeConfigGateway{}
	publisher := &fakePublisher{}
	svc := NewEvaluationConfigService(gateway, client, time.Minute, publisher, "gema", testLogger())

	_, err := svc.SetWeight(evaluation.KeyAccuracy, 1.0/3.0)
	require.NoError(t, err)

	resp, err := svc.Save(context.Background())
	require.NoError(t, err)
	require.True(t, resp.Saved)
	require.Equal(t, dto.NoticeSuccess, resp.Notice.Level)
	require.Equal(t, msgSaved, resp.Notice.Message)
	require.InDelta(t, 1.0, resp.Config.Sum(), 0.005)
	require.Equal(t, 0.33, resp.Config.WeightAccuracy)

	require.False(t, server.Exists(configCacheKey))
	require.Len(t, gateway.saved, 1)
	require.Equal(t, []string{"gema.evaluation.config.saved"}, publisher.subjects)

	var event ConfigSavedEvent
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &event))
	require.Equal(t, resp.Config, event.Config)
}

func TestEvaluationConfigServiceSaveUsesSubmitTimeSnapshot(t *testing.T) {
	gateway := &fakeConfigGateway{}
	svc := NewEvaluationConfigService(gateway, nil, 0, nil, "", testLogger())
	gateway.onSave = func() {
		svc.SetAlpha(0.1)
	}

	resp, err := svc.Save(context.Background())
	require.NoError(t, err)
	require.True(t, resp.Saved)
	require.Equal(t, 0.67, gateway.saved[0].Alpha)
	require.Equal(t, 0.67, resp.Config.Alpha)
	require.Equal(t, 0.1, svc.Current().Config.Alpha)
}

func TestEvaluationConfigServiceSaveFailures(t *testing.T) {
	serverErr := &platform.ServerError{Op: "save_config", Status: 403}
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{name: "server error", err: serverErr, message: serverErr.Message()},
		{name: "network error", err: &platform.NetworkError{Op: "save_config", Err: errors.New("connection reset")}, message: msgNetwork},
		{name: "unexpected", err: errors.New("boom"), message: msgUnexpected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			gateway := &fakeConfigGateway{saveErr: tc.err}
			svc := NewEvaluationConfigService(gateway, nil, 0, publisher, "gema", testLogger())

			resp, err := svc.Save(context.Background())
			assert.ErrorIs(t, err, tc.err)
			assert.False(t, resp.Saved)
			assert.Equal(t, dto.NoticeError, resp.Notice.Level)
			assert.Equal(t, tc.message, resp.Notice.Message)
			assert.Empty(t, publisher.subjects)
			assert.Len(t, gateway.saved, 1)
		})
	}
}

func TestEvaluationConfigServiceSaveIgnoresPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("nats: connection closed")}
	svc := NewEvaluationConfigService(&fakeConfigGateway{}, nil, 0, publisher, "gema", testLogger())

	resp, err := svc.Save(context.Background())
	require.NoError(t, err)
	require.True(t, resp.Saved)
	require.Len(t, publisher.subjects, 1)
}
