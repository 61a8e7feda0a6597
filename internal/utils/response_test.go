package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-console/internal/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

func TestResponseEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		handler fiber.Handler
		status  int
		check   func(t *testing.T, body envelope)
	}{
		{
			name: "ok carries data and meta",
			handler: func(c *fiber.Ctx) error {
				return utils.OK(c, map[string]string{"week": "2024-W10"}, "", map[string]int{"days": 7})
			},
			status: fiber.StatusOK,
			check: func(t *testing.T, body envelope) {
				require.True(t, body.Success)
				require.Equal(t, "success", body.Message)
				require.Equal(t, "2024-W10", body.Data["week"])
				require.Equal(t, float64(7), body.Meta["days"])
			},
		},
		{
			name: "send success defaults message",
			handler: func(c *fiber.Ctx) error {
				return utils.SendSuccess(c, "", map[string]float64{"weights_sum": 1})
			},
			status: fiber.StatusOK,
			check: func(t *testing.T, body envelope) {
				require.True(t, body.Success)
				require.Equal(t, "success", body.Message)
				require.Equal(t, 1.0, body.Data["weights_sum"])
				require.Nil(t, body.Meta)
			},
		},
		{
			name: "fail lists invalid fields",
			handler: func(c *fiber.Ctx) error {
				return utils.Fail(c, fiber.StatusUnprocessableEntity, "Select at least one student.", map[string][]string{"fields": {"students"}})
			},
			status: fiber.StatusUnprocessableEntity,
			check: func(t *testing.T, body envelope) {
				require.False(t, body.Success)
				require.Equal(t, "Select at least one student.", body.Message)
				require.Equal(t, []interface{}{"students"}, body.Details["fields"])
				require.Nil(t, body.Data)
			},
		},
		{
			name: "send error without status falls back to 500",
			handler: func(c *fiber.Ctx) error {
				return utils.SendError(c, 0, "")
			},
			status: fiber.StatusInternalServerError,
			check: func(t *testing.T, body envelope) {
				require.False(t, body.Success)
				require.Equal(t, "error", body.Message)
				require.Nil(t, body.Details)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", tc.handler)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			tc.check(t, body)
		})
	}
}
