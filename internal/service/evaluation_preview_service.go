package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/observability"
	"github.com/noah-isme/gema-eval-console/internal/platform"
)

// PreviewGateway runs evaluation previews on the platform.
type PreviewGateway interface {
	Preview(ctx context.Context, req evaluation.PreviewRequest) (platform.PreviewResult, error)
}

// EvaluationPreviewService validates, submits and shapes evaluation previews.
type EvaluationPreviewService interface {
	// Preview always returns a renderable response. The error is non-nil when the
	// action failed; the response notice then carries the user-facing text.
	Preview(ctx context.Context, input dto.PreviewInput) (dto.PreviewResponse, error)
}

type evaluationPreviewService struct {
	gateway PreviewGateway
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewEvaluationPreviewService constructs the preview service.
func NewEvaluationPreviewService(gateway PreviewGateway, logger zerolog.Logger) EvaluationPreviewService {
	return &evaluationPreviewService{
		gateway: gateway,
		logger:  logger.With().Str("component", "evaluation_preview_service").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/gema-eval-console/internal/service/evaluation_preview"),
	}
}

func (s *evaluationPreviewService) Preview(ctx context.Context, input dto.PreviewInput) (dto.PreviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation_preview.run")
	defer span.End()

	if err := evaluation.Validate(input.UserIDs, input.TopicID); err != nil {
		observability.PreviewOutcomes().WithLabelValues(outcomeOf(err)).Inc()
		notice := noticeFromError(err)
		return emptyPreview(nil, &notice), err
	}

	req := evaluation.Build(input.UserIDs, input.TopicID, input.Week)
	span.SetAttributes(
		attribute.Int("preview.user_count", len(req.UserIDs)),
		attribute.Bool("preview.has_period", req.HasPeriod()),
	)

	result, err := s.gateway.Preview(ctx, req)
	if err != nil {
		observability.PreviewOutcomes().WithLabelValues(outcomeOf(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "preview_failed")
		s.logger.Warn().Err(err).Int("user_count", len(req.UserIDs)).Msg("evaluation preview failed")
		notice := noticeFromError(err)
		return emptyPreview(&req, &notice), err
	}

	rows := evaluation.DecodeRows(result.Rows)
	if len(rows) == 0 {
		outcome := "empty"
		if result.Malformed {
			outcome = "malformed"
		}
		observability.PreviewOutcomes().WithLabelValues(outcome).Inc()
		resp := emptyPreview(&req, &dto.Notice{Level: dto.NoticeInfo, Message: msgNoData})
		resp.Malformed = result.Malformed
		return resp, nil
	}

	observability.PreviewOutcomes().WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("preview.row_count", len(rows)))

	return dto.PreviewResponse{
		Request: &req,
		Rows:    rows,
		Charts: dto.PreviewCharts{
			Labels: evaluation.ChartLabels,
			Series: evaluation.BuildChartSeries(rows, input.Names),
		},
		Heatmaps: evaluation.BuildHeatmaps(rows),
	}, nil
}

func emptyPreview(req *evaluation.PreviewRequest, notice *dto.Notice) dto.PreviewResponse {
	return dto.PreviewResponse{
		Request:  req,
		Rows:     []evaluation.PreviewRow{},
		Charts:   dto.PreviewCharts{Labels: evaluation.ChartLabels, Series: []evaluation.ChartSeries{}},
		Heatmaps: []evaluation.Heatmap{},
		Notice:   notice,
	}
}
