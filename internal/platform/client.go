package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/observability"
)

const (
	configPath  = "/admin/api/evaluation_config"
	previewPath = "/admin/evaluation/preview"

	opFetchConfig = "fetch_config"
	opSaveConfig  = "save_config"
	opPreview     = "preview"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// Config describes how to reach the platform admin API.
type Config struct {
	BaseURL   string
	CSRFToken string
	Timeout   time.Duration
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// PreviewResult carries the raw result rows of a successful preview.
type PreviewResult struct {
	Rows []json.RawMessage
	// Malformed is set when the body could not be read as the expected document
	// and the rows were therefore treated as empty.
	Malformed bool
}

// Client talks to the learning platform's evaluation admin endpoints.
type Client struct {
	baseURL   string
	csrfToken string
	http      *http.Client
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// New constructs a platform client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("platform base url must not be empty")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   base,
		csrfToken: strings.TrimSpace(cfg.CSRFToken),
		http:      httpClient,
		logger:    logger.With().Str("component", "platform_client").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-eval-console/internal/platform"),
	}, nil
}

type configEnvelope struct {
	OK   bool                    `json:"ok"`
	Data *evaluation.ConfigPatch `json:"data"`
}

// FetchConfig reads the stored evaluation configuration.
// A successful response without data yields an empty patch.
func (c *Client) FetchConfig(ctx context.Context) (evaluation.ConfigPatch, error) {
	ctx, span := c.tracer.Start(ctx, "platform.fetch_config")
	defer span.End()

	resp, err := c.do(ctx, opFetchConfig, http.MethodGet, configPath, nil, nil)
	if err != nil {
		return evaluation.ConfigPatch{}, c.fail(span, opFetchConfig, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.status))

	doc, docErr := resp.document()
	if !resp.success() {
		return evaluation.ConfigPatch{}, c.fail(span, opFetchConfig, resp.serverError(opFetchConfig, doc))
	}
	if docErr != nil {
		return evaluation.ConfigPatch{}, c.fail(span, opFetchConfig, &MalformedResponseError{Op: opFetchConfig, Err: docErr})
	}
	if err := configSchema.Validate(doc); err != nil {
		return evaluation.ConfigPatch{}, c.fail(span, opFetchConfig, &MalformedResponseError{Op: opFetchConfig, Err: err})
	}

	var envelope configEnvelope
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return evaluation.ConfigPatch{}, c.fail(span, opFetchConfig, &MalformedResponseError{Op: opFetchConfig, Err: err})
	}
	if !envelope.OK {
		return evaluation.ConfigPatch{}, c.fail(span, opFetchConfig, resp.serverError(opFetchConfig, doc))
	}

	c.succeed(opFetchConfig)
	if envelope.Data == nil {
		return evaluation.ConfigPatch{}, nil
	}
	return *envelope.Data, nil
}

// SaveConfig submits the configuration rounded to 2 decimals. It does not retry.
func (c *Client) SaveConfig(ctx context.Context, cfg evaluation.WeightConfig) error {
	ctx, span := c.tracer.Start(ctx, "platform.save_config")
	defer span.End()

	payload, err := json.Marshal(cfg.Rounded())
	if err != nil {
		return c.fail(span, opSaveConfig, err)
	}

	resp, err := c.do(ctx, opSaveConfig, http.MethodPost, configPath, payload, nil)
	if err != nil {
		return c.fail(span, opSaveConfig, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.status))

	// an unreadable body counts as a failed save, not as a malformed response
	doc, _ := resp.document()
	var envelope struct {
		OK bool `json:"ok"`
	}
	if doc != nil && saveSchema.Validate(doc) == nil {
		_ = json.Unmarshal(resp.body, &envelope)
	}
	if !resp.success() || !envelope.OK {
		return c.fail(span, opSaveConfig, resp.serverError(opSaveConfig, doc))
	}

	c.succeed(opSaveConfig)
	return nil
}

type previewEnvelope struct {
	OK      *bool             `json:"ok"`
	Results []json.RawMessage `json:"results"`
	Errors  []json.RawMessage `json:"errors"`
}

// Preview runs an evaluation preview. Non-2xx statuses and ok:false become a ServerError;
// a successful but unreadable body yields no rows.
func (c *Client) Preview(ctx context.Context, req evaluation.PreviewRequest) (PreviewResult, error) {
	ctx, span := c.tracer.Start(ctx, "platform.preview")
	span.SetAttributes(
		attribute.Int("preview.user_count", len(req.UserIDs)),
		attribute.Bool("preview.has_period", req.HasPeriod()),
	)
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return PreviewResult{}, c.fail(span, opPreview, err)
	}

	resp, err := c.do(ctx, opPreview, http.MethodPost, previewPath, payload, map[string]string{
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		return PreviewResult{}, c.fail(span, opPreview, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.status))

	var doc interface{}
	if resp.isJSON() {
		doc, _ = resp.document()
	}

	var envelope previewEnvelope
	malformed := doc == nil
	if doc != nil {
		if err := previewSchema.Validate(doc); err != nil {
			malformed = true
		} else if err := json.Unmarshal(resp.body, &envelope); err != nil {
			malformed = true
		}
	}

	if !resp.success() || (envelope.OK != nil && !*envelope.OK) {
		return PreviewResult{}, c.fail(span, opPreview, resp.serverError(opPreview, doc))
	}

	if malformed {
		c.logger.Warn().Int("status", resp.status).Msg("preview response malformed, treating as empty")
		observability.UpstreamRequests().WithLabelValues(opPreview, "malformed").Inc()
		return PreviewResult{Rows: []json.RawMessage{}, Malformed: true}, nil
	}

	c.succeed(opPreview)
	rows := envelope.Results
	if rows == nil {
		rows = []json.RawMessage{}
	}
	span.SetAttributes(attribute.Int("preview.row_count", len(rows)))
	return PreviewResult{Rows: rows}, nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (r response) success() bool {
	return r.status >= 200 && r.status < 300
}

func (r response) isJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.contentType)
	if err != nil {
		return strings.Contains(r.contentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func (r response) document() (interface{}, error) {
	if len(bytes.TrimSpace(r.body)) == 0 {
		return nil, errors.New("empty body")
	}
	var doc interface{}
	if err := json.Unmarshal(r.body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r response) serverError(op string, doc interface{}) *ServerError {
	serr := &ServerError{Op: op, Status: r.status}

	if obj, ok := doc.(map[string]interface{}); ok {
		if list, ok := obj["errors"].([]interface{}); ok {
			for _, item := range list {
				text := ""
				switch v := item.(type) {
				case string:
					text = v
				default:
					encoded, _ := json.Marshal(v)
					text = string(encoded)
				}
				if clean := sanitize(text); clean != "" {
					serr.Errors = append(serr.Errors, clean)
				}
			}
		}
	}
	if doc == nil {
		serr.Body = sanitize(string(r.body))
	}
	return serr
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, headers map[string]string) (response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return response{}, fmt.Errorf("%s: build request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	meta := MetaFromContext(ctx)
	if token := firstNonEmpty(meta.CSRFToken, c.csrfToken); token != "" && method != http.MethodGet {
		req.Header.Set("X-CSRFToken", token)
	}
	if meta.CorrelationID != "" {
		req.Header.Set("X-Correlation-ID", meta.CorrelationID)
	}
	if meta.Cookie != "" {
		req.Header.Set("Cookie", meta.Cookie)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.UpstreamLatency().WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return response{}, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, &NetworkError{Op: op, Err: err}
	}

	return response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        payload,
	}, nil
}

func (c *Client) fail(span trace.Span, op string, err error) error {
	outcome := "error"
	var (
		netErr    *NetworkError
		serverErr *ServerError
		malformed *MalformedResponseError
	)
	switch {
	case errors.As(err, &netErr):
		outcome = "network_error"
	case errors.As(err, &serverErr):
		outcome = "server_error"
	case errors.As(err, &malformed):
		outcome = "malformed"
	}

	observability.UpstreamRequests().WithLabelValues(op, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op+"_"+outcome)
	c.logger.Debug().Err(err).Str("op", op).Str("outcome", outcome).Msg("platform call failed")
	return err
}

func (c *Client) succeed(op string) {
	observability.UpstreamRequests().WithLabelValues(op, "ok").Inc()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
