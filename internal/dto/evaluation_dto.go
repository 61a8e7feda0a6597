package dto

import "github.com/noah-isme/gema-eval-console/internal/evaluation"

// Notice levels shown by the console.
const (
	NoticeInfo    = "info"
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Notice is a user-facing message produced at an action boundary.
type Notice struct {
	Level   string             `json:"level"`
	Message string             `json:"message"`
	Fields  []evaluation.Field `json:"fields,omitempty"`
}

// WeightUpdateRequest sets a single weight or alpha.
type WeightUpdateRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

// BandUpdateRequest sets the bounds of a threshold band.
type BandUpdateRequest struct {
	Min *float64 `json:"min" validate:"required"`
	Max *float64 `json:"max" validate:"required"`
}

// PeriodUpdateRequest sets the evaluation period length.
type PeriodUpdateRequest struct {
	Days *int `json:"days" validate:"required"`
}

// PreviewInput is the body of a preview action.
type PreviewInput struct {
	UserIDs []int          `json:"user_ids"`
	TopicID *int           `json:"topic_id"`
	Week    string         `json:"week" validate:"omitempty,max=16"`
	Names   map[int]string `json:"names" validate:"omitempty,dive,max=120"`
}

// EvaluationConfigResponse describes the console's current configuration.
type EvaluationConfigResponse struct {
	Config     evaluation.WeightConfig `json:"config"`
	WeightsSum float64                 `json:"weights_sum"`
	// Source is "defaults", "remote" or "cache" depending on where the values last came from.
	Source string  `json:"source"`
	Loaded bool    `json:"loaded"`
	Notice *Notice `json:"notice,omitempty"`
}

// SaveResponse reports the outcome of a save.
type SaveResponse struct {
	Saved  bool                    `json:"saved"`
	Config evaluation.WeightConfig `json:"config"`
	Notice Notice                  `json:"notice"`
}

// RangeResponse is a resolved date range.
type RangeResponse struct {
	Preset string `json:"preset,omitempty"`
	Week   string `json:"week,omitempty"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Days   int    `json:"days"`
}

// PreviewCharts groups the chart series of a preview.
type PreviewCharts struct {
	Labels []string                 `json:"labels"`
	Series []evaluation.ChartSeries `json:"series"`
}

// PreviewResponse is the outcome of a preview action.
type PreviewResponse struct {
	Request   *evaluation.PreviewRequest `json:"request,omitempty"`
	Rows      []evaluation.PreviewRow    `json:"rows"`
	Charts    PreviewCharts              `json:"charts"`
	Heatmaps  []evaluation.Heatmap       `json:"heatmaps"`
	Notice    *Notice                    `json:"notice,omitempty"`
	Malformed bool                       `json:"malformed"`
}

// NewRangeResponse flattens a range for transport.
func NewRangeResponse(r evaluation.DateRange) RangeResponse {
	start, end := r.Format()
	return RangeResponse{Start: start, End: end, Days: r.Days()}
}
