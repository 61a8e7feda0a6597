package evaluation

import (
	"encoding/json"
	"math"
	"strconv"
)

var (
	weekdayKeysLower = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	weekdayKeysTitle = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

// ChartLabels are the metric axes shared by the grouped bar and radar charts.
var ChartLabels = []string{"accuracy", "time", "progress", "motivation", "total"}

// PreviewRow is one student's evaluation result as returned by the platform.
type PreviewRow struct {
	UserID          int       `json:"user_id"`
	LevelBefore     string    `json:"level_before,omitempty"`
	LevelAfter      string    `json:"level_after,omitempty"`
	LevelChange     string    `json:"level_change"`
	Accuracy        *float64  `json:"accuracy"`
	TimeScore       *float64  `json:"time_score"`
	ProgressScore   *float64  `json:"progress_score"`
	MotivationScore *float64  `json:"motivation_score"`
	TotalScore      *float64  `json:"total_score"`
	A1              *float64  `json:"a1"`
	A2              *float64  `json:"a2"`
	A3              *float64  `json:"a3"`
	AttemptsTotal   *float64  `json:"attempts_total"`
	TasksSolved     *float64  `json:"tasks_solved"`
	TasksTotal      *float64  `json:"tasks_total"`
	AvgTime         *float64  `json:"avg_time"`
	Activity        []float64 `json:"activity_by_weekday,omitempty"`
	Solved          []float64 `json:"solved_by_weekday,omitempty"`
}

type rawPreviewRow struct {
	UserID          Number          `json:"user_id"`
	LevelBefore     json.RawMessage `json:"level_before"`
	LevelAfter      json.RawMessage `json:"level_after"`
	LevelChange     json.RawMessage `json:"level_change"`
	Accuracy        Number          `json:"accuracy"`
	TimeScore       Number          `json:"time_score"`
	ProgressScore   Number          `json:"progress_score"`
	MotivationScore Number          `json:"motivation_score"`
	TotalScore      Number          `json:"total_score"`
	A1              Number          `json:"a1"`
	A2              Number          `json:"a2"`
	A3              Number          `json:"a3"`
	AttemptsTotal   Number          `json:"attempts_total"`
	TasksSolved     Number          `json:"tasks_solved"`
	TasksTotal      Number          `json:"tasks_total"`
	AvgTime         Number          `json:"avg_time"`
	ActivityA       json.RawMessage `json:"activity_by_weekday"`
	ActivityB       json.RawMessage `json:"activity_weekdays"`
	ActivityC       json.RawMessage `json:"daily_activity"`
	Solved          json.RawMessage `json:"solved_by_weekday"`
}

// DecodeRows converts raw result rows leniently. Rows that are not objects or carry no
// user id are skipped; unreadable values are treated as absent.
func DecodeRows(raw []json.RawMessage) []PreviewRow {
	rows := make([]PreviewRow, 0, len(raw))
	for _, item := range raw {
		var r rawPreviewRow
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		id, ok := r.UserID.Float()
		if !ok {
			continue
		}

		row := PreviewRow{
			UserID:          int(id),
			LevelBefore:     rawString(r.LevelBefore),
			LevelAfter:      rawString(r.LevelAfter),
			LevelChange:     rawString(r.LevelChange),
			Accuracy:        optional(r.Accuracy),
			TimeScore:       optional(r.TimeScore),
			ProgressScore:   optional(r.ProgressScore),
			MotivationScore: optional(r.MotivationScore),
			TotalScore:      optional(r.TotalScore),
			A1:              optional(r.A1),
			A2:              optional(r.A2),
			A3:              optional(r.A3),
			AttemptsTotal:   optional(r.AttemptsTotal),
			TasksSolved:     optional(r.TasksSolved),
			TasksTotal:      optional(r.TasksTotal),
			AvgTime:         optional(r.AvgTime),
		}
		if row.LevelChange == "" {
			row.LevelChange = "stay"
		}

		for _, candidate := range []json.RawMessage{r.ActivityA, r.ActivityB, r.ActivityC} {
			if days, ok := NormalizeWeekdays(candidate); ok {
				row.Activity = days
				break
			}
		}
		if days, ok := NormalizeWeekdays(r.Solved); ok {
			row.Solved = days
		}

		rows = append(rows, row)
	}
	return rows
}

// NormalizeWeekdays reads a Monday-first weekday series.
//
// Accepted shapes are a seven element array, an object keyed mon..sun or Mon..Sun,
// and an object with numeric keys 0..6. Non-numeric entries count as zero.
func NormalizeWeekdays(raw json.RawMessage) ([]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}

	var list []Number
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) != 7 {
			return nil, false
		}
		out := make([]float64, 7)
		for i, n := range list {
			out[i], _ = n.Float()
		}
		return out, true
	}

	var obj map[string]Number
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}

	for _, keys := range [][]string{weekdayKeysLower, weekdayKeysTitle} {
		if hasAllKeys(obj, keys) {
			out := make([]float64, 7)
			for i, key := range keys {
				out[i], _ = obj[key].Float()
			}
			return out, true
		}
	}

	out := make([]float64, 7)
	found := false
	for key, n := range obj {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx > 6 {
			continue
		}
		out[idx], _ = n.Float()
		found = true
	}
	if !found {
		return nil, false
	}
	return out, true
}

// ChartSeries holds one student's metric percentages in ChartLabels order.
type ChartSeries struct {
	UserID int    `json:"user_id"`
	Label  string `json:"label"`
	Values []int  `json:"values"`
}

// BuildChartSeries converts ratio metrics to rounded percentages. Missing metrics are 0.
// names maps user ids to display labels; unknown ids fall back to the id.
func BuildChartSeries(rows []PreviewRow, names map[int]string) []ChartSeries {
	series := make([]ChartSeries, 0, len(rows))
	for _, row := range rows {
		label := names[row.UserID]
		if label == "" {
			label = strconv.Itoa(row.UserID)
		}
		series = append(series, ChartSeries{
			UserID: row.UserID,
			Label:  label,
			Values: []int{
				percent(row.Accuracy),
				percent(row.TimeScore),
				percent(row.ProgressScore),
				percent(row.MotivationScore),
				percent(row.TotalScore),
			},
		})
	}
	return series
}

// Heatmap summarises a student's weekday activity.
type Heatmap struct {
	UserID        int       `json:"user_id"`
	Attempts      []float64 `json:"attempts,omitempty"`
	Solved        []float64 `json:"solved,omitempty"`
	TotalAttempts float64   `json:"total_attempts"`
	TotalSolved   float64   `json:"total_solved"`
	Max           float64   `json:"max"`
}

// BuildHeatmaps returns a heatmap for every row that carries weekday data.
func BuildHeatmaps(rows []PreviewRow) []Heatmap {
	maps := make([]Heatmap, 0, len(rows))
	for _, row := range rows {
		if row.Activity == nil && row.Solved == nil {
			continue
		}
		h := Heatmap{UserID: row.UserID, Attempts: row.Activity, Solved: row.Solved}
		for _, v := range row.Activity {
			h.TotalAttempts += v
			h.Max = math.Max(h.Max, v)
		}
		for _, v := range row.Solved {
			h.TotalSolved += v
			h.Max = math.Max(h.Max, v)
		}
		maps = append(maps, h)
	}
	return maps
}

func percent(v *float64) int {
	if v == nil {
		return 0
	}
	return int(math.Round(*v * 100))
}

func optional(n Number) *float64 {
	v, ok := n.Float()
	if !ok {
		return nil
	}
	return &v
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func hasAllKeys(obj map[string]Number, keys []string) bool {
	for _, key := range keys {
		if _, ok := obj[key]; !ok {
			return false
		}
	}
	return true
}
