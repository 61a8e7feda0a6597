package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/observability"
)

const (
	configCacheKey = "evaluation:config"

	SourceDefaults = "defaults"
	SourceRemote   = "remote"
	SourceCache    = "cache"
)

// ConfigGateway reads and writes the stored evaluation configuration.
type ConfigGateway interface {
	FetchConfig(ctx context.Context) (evaluation.ConfigPatch, error)
	SaveConfig(ctx context.Context, cfg evaluation.WeightConfig) error
}

// EventPublisher emits fire-and-forget events. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// EvaluationConfigService owns the console's copy of the evaluation parameters.
type EvaluationConfigService interface {
	Current() dto.EvaluationConfigResponse
	Load(ctx context.Context, force bool) dto.EvaluationConfigResponse
	SetWeight(key evaluation.WeightKey, value float64) (dto.EvaluationConfigResponse, error)
	SetAlpha(value float64) dto.EvaluationConfigResponse
	SetBand(band evaluation.Band, minValue, maxValue float64) (dto.EvaluationConfigResponse, error)
	SetPeriodDays(days int) dto.EvaluationConfigResponse
	// Save returns the response to render and, on failure, the cause.
	Save(ctx context.Context) (dto.SaveResponse, error)
}

// ConfigSavedEvent is published after a successful save.
type ConfigSavedEvent struct {
	Config  evaluation.WeightConfig `json:"config"`
	SavedAt time.Time               `json:"saved_at"`
}

type evaluationConfigService struct {
	gateway   ConfigGateway
	cache     *redis.Client
	cacheTTL  time.Duration
	publisher EventPublisher
	subject   string
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu     sync.Mutex
	config evaluation.WeightConfig
	source string
	loaded bool
}

// NewEvaluationConfigService constructs the config service starting from the defaults.
// cache and publisher may be nil.
func NewEvaluationConfigService(gateway ConfigGateway, cache *redis.Client, ttl time.Duration, publisher EventPublisher, subjectBase string, logger zerolog.Logger) EvaluationConfigService {
	subject := ""
	if subjectBase != "" {
		subject = subjectBase + ".evaluation.config.saved"
	}

	return &evaluationConfigService{
		gateway:   gateway,
		cache:     cache,
		cacheTTL:  ttl,
		publisher: publisher,
		subject:   subject,
		logger:    logger.With().Str("component", "evaluation_config_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-eval-console/internal/service/evaluation_config"),
		now:       time.Now,
		config:    evaluation.DefaultWeightConfig(),
		source:    SourceDefaults,
	}
}

func (s *evaluationConfigService) Current() dto.EvaluationConfigResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Load merges the stored configuration into the current values. Any failure keeps the
// current values and is only logged.
func (s *evaluationConfigService) Load(ctx context.Context, force bool) dto.EvaluationConfigResponse {
	ctx, span := s.tracer.Start(ctx, "evaluation_config.load")
	span.SetAttributes(attribute.Bool("evaluation_config.force", force))
	defer span.End()

	if !force {
		if patch, ok := s.readCache(ctx, span); ok {
			observability.ConfigChanges().WithLabelValues("load", "cache").Inc()
			return s.apply(patch, SourceCache)
		}
	}

	patch, err := s.gateway.FetchConfig(ctx)
	if err != nil {
		observability.ConfigChanges().WithLabelValues("load", outcomeOf(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch_config_failed")
		s.logger.Warn().Err(err).Msg("failed to load evaluation config, keeping current values")
		return s.Current()
	}

	s.writeCache(ctx, span, patch)
	observability.ConfigChanges().WithLabelValues("load", "ok").Inc()
	return s.apply(patch, SourceRemote)
}

func (s *evaluationConfigService) SetWeight(key evaluation.WeightKey, value float64) (dto.EvaluationConfigResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.config.SetWeight(key, value)
	if err != nil {
		observability.ConfigChanges().WithLabelValues("set_weight", "invalid").Inc()
		return dto.EvaluationConfigResponse{}, err
	}
	s.config = next
	observability.ConfigChanges().WithLabelValues("set_weight", "ok").Inc()
	return s.snapshotLocked(), nil
}

func (s *evaluationConfigService) SetAlpha(value float64) dto.EvaluationConfigResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = s.config.SetAlpha(value)
	observability.ConfigChanges().WithLabelValues("set_alpha", "ok").Inc()
	return s.snapshotLocked()
}

func (s *evaluationConfigService) SetBand(band evaluation.Band, minValue, maxValue float64) (dto.EvaluationConfigResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.config.SetBand(band, minValue, maxValue)
	if err != nil {
		observability.ConfigChanges().WithLabelValues("set_band", "invalid").Inc()
		return dto.EvaluationConfigResponse{}, err
	}
	s.config = next
	observability.ConfigChanges().WithLabelValues("set_band", "ok").Inc()
	return s.snapshotLocked(), nil
}

func (s *evaluationConfigService) SetPeriodDays(days int) dto.EvaluationConfigResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = s.config.SetPeriodDays(days)
	observability.ConfigChanges().WithLabelValues("set_period", "ok").Inc()
	return s.snapshotLocked()
}

// Save submits the configuration as it is when Save is called. Edits made while the
// request is in flight are kept locally but are not part of this save.
func (s *evaluationConfigService) Save(ctx context.Context) (dto.SaveResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation_config.save")
	defer span.End()

	s.mu.Lock()
	snapshot := s.config
	s.mu.Unlock()

	submitted := snapshot.Rounded()
	if err := s.gateway.SaveConfig(ctx, snapshot); err != nil {
		observability.ConfigChanges().WithLabelValues("save", outcomeOf(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "save_config_failed")
		s.logger.Error().Err(err).Msg("failed to save evaluation config")
		return dto.SaveResponse{Saved: false, Config: submitted, Notice: noticeFromError(err)}, err
	}

	observability.ConfigChanges().WithLabelValues("save", "ok").Inc()
	s.invalidateCache(ctx, span)
	s.publishSaved(span, submitted)
	s.logger.Info().Float64("weights_sum", submitted.Sum()).Msg("evaluation config saved")

	return dto.SaveResponse{
		Saved:  true,
		Config: submitted,
		Notice: dto.Notice{Level: dto.NoticeSuccess, Message: msgSaved},
	}, nil
}

func (s *evaluationConfigService) apply(patch evaluation.ConfigPatch, source string) dto.EvaluationConfigResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = s.config.Merge(patch)
	s.source = source
	s.loaded = true
	return s.snapshotLocked()
}

func (s *evaluationConfigService) snapshotLocked() dto.EvaluationConfigResponse {
	return dto.EvaluationConfigResponse{
		Config:     s.config,
		WeightsSum: s.config.Sum(),
		Source:     s.source,
		Loaded:     s.loaded,
	}
}

func (s *evaluationConfigService) readCache(ctx context.Context, span trace.Span) (evaluation.ConfigPatch, bool) {
	if s.cache == nil {
		return evaluation.ConfigPatch{}, false
	}

	cached, err := s.cache.Get(ctx, configCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read evaluation config cache")
			span.RecordError(err)
		}
		return evaluation.ConfigPatch{}, false
	}

	var patch evaluation.ConfigPatch
	if err := json.Unmarshal(cached, &patch); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable evaluation config cache entry")
		return evaluation.ConfigPatch{}, false
	}
	span.SetAttributes(attribute.Bool("evaluation_config.cache_hit", true))
	return patch, true
}

func (s *evaluationConfigService) writeCache(ctx context.Context, span trace.Span, patch evaluation.ConfigPatch) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, configCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store evaluation config cache")
		span.RecordError(err)
	}
}

func (s *evaluationConfigService) invalidateCache(ctx context.Context, span trace.Span) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, configCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate evaluation config cache")
		span.RecordError(err)
	}
}

func (s *evaluationConfigService) publishSaved(span trace.Span, cfg evaluation.WeightConfig) {
	if s.publisher == nil || s.subject == "" {
		return
	}

	payload, err := json.Marshal(ConfigSavedEvent{Config: cfg, SavedAt: s.now().UTC()})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(s.subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.subject).Msg("failed to publish config saved event")
		span.RecordError(err)
	}
}
