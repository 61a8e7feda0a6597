package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/platform"
	"github.com/noah-isme/gema-eval-console/internal/service"
)

type contractGateway struct {
	patch evaluation.ConfigPatch
	rows  []json.RawMessage
	err   error
}

func (g contractGateway) FetchConfig(context.Context) (evaluation.ConfigPatch, error) {
	return g.patch, nil
}

func (g contractGateway) SaveConfig(context.Context, evaluation.WeightConfig) error {
	return nil
}

func (g contractGateway) Preview(context.Context, evaluation.PreviewRequest) (platform.PreviewResult, error) {
	return platform.PreviewResult{Rows: g.rows}, g.err
}

func compileContract(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func newContractApp(gateway contractGateway) *fiber.App {
	configService := service.NewEvaluationConfigService(gateway, nil, 0, nil, "", zerolog.Nop())
	previewService := service.NewEvaluationPreviewService(gateway, zerolog.Nop())
	h := NewEvaluationHandler(configService, previewService, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	app := fiber.New()
	h.Register(app.Group("/api/v1/evaluation"))
	return app
}

func decodeBody(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestEvaluationConfigContract(t *testing.T) {
	schema := compileContract(t, "evaluation_config.schema.json")
	app := newContractApp(contractGateway{patch: evaluation.ConfigPatch{
		WeightAccuracy:   evaluation.NumberOf(0.4),
		WeightTime:       evaluation.NumberOf(0.4),
		WeightProgress:   evaluation.NumberOf(0.4),
		WeightMotivation: evaluation.NumberOf(0.4),
		MedMin:           evaluation.NumberOf(0.9),
		MedMax:           evaluation.NumberOf(0.1),
	}})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/evaluation/config", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/evaluation/config/reload", nil),
	} {
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, schema.Validate(decodeBody(t, resp)))
	}
}

func TestEvaluationPreviewContract(t *testing.T) {
	schema := compileContract(t, "evaluation_preview.schema.json")

	cases := []struct {
		name    string
		gateway contractGateway
		body    string
		status  int
	}{
		{
			name: "rows",
			gateway: contractGateway{rows: []json.RawMessage{
				json.RawMessage(`{"user_id": 1, "accuracy": 0.9, "solved_by_weekday": {"mon": 1, "tue": 0, "wed": 2, "thu": 0, "fri": 0, "sat": 0, "sun": 1}}`),
			}},
			body:   `{"user_ids": [1], "topic_id": 5, "week": "2024-W01"}`,
			status: http.StatusOK,
		},
		{
			name:    "empty",
			gateway: contractGateway{rows: []json.RawMessage{}},
			body:    `{"user_ids": [1], "topic_id": 5}`,
			status:  http.StatusOK,
		},
		{
			name:    "validation",
			gateway: contractGateway{},
			body:    `{"user_ids": []}`,
			status:  http.StatusUnprocessableEntity,
		},
		{
			name:    "server error",
			gateway: contractGateway{err: &platform.ServerError{Op: "preview", Status: 400, Errors: []string{"period end is before start"}}},
			body:    `{"user_ids": [1], "topic_id": 5}`,
			status:  http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newContractApp(tc.gateway)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluation/preview", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.NoError(t, schema.Validate(decodeBody(t, resp)))
		})
	}
}
