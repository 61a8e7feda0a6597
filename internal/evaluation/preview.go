package evaluation

import (
	"strings"
)

// Field identifies a preview filter the UI can highlight.
type Field string

const (
	FieldStudents Field = "students"
	FieldTopic    Field = "topic"
	FieldPeriod   Field = "period"
)

// ValidationError marks a required selection that is missing or invalid.
type ValidationError struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return string(e.Field) + ": " + e.Message
}

// ValidationErrors collects every invalid field of a single request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, item := range e {
		parts = append(parts, item.Error())
	}
	return strings.Join(parts, "; ")
}

// Fields returns the invalid fields in report order.
func (e ValidationErrors) Fields() []Field {
	fields := make([]Field, 0, len(e))
	for _, item := range e {
		fields = append(fields, item.Field)
	}
	return fields
}

// Has reports whether field is among the errors.
func (e ValidationErrors) Has(field Field) bool {
	for _, item := range e {
		if item.Field == field {
			return true
		}
	}
	return false
}

// PreviewRequest is the payload sent to the evaluation preview endpoint.
type PreviewRequest struct {
	UserIDs     []int `json:"user_ids"`
	TopicID     *int  `json:"topic_id"`
	TopicIDs    []int `json:"topic_ids"`
	PeriodStart *Date `json:"period_start"`
	PeriodEnd   *Date `json:"period_end"`
}

// HasPeriod reports whether both period bounds are set.
func (r PreviewRequest) HasPeriod() bool {
	return r.PeriodStart != nil && r.PeriodEnd != nil
}

// Validate checks the required preview filters. Every failing field is reported.
func Validate(userIDs []int, topicID *int) error {
	var errs ValidationErrors
	if len(userIDs) == 0 {
		errs = append(errs, ValidationError{Field: FieldStudents, Message: "select at least one student"})
	}
	if topicID == nil {
		errs = append(errs, ValidationError{Field: FieldTopic, Message: "select a topic"})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Build assembles a preview request. The period is set only when isoWeek is a valid
// YYYY-Www designator; otherwise both bounds stay nil. Inputs are not modified.
func Build(userIDs []int, topicID *int, isoWeek string) PreviewRequest {
	req := PreviewRequest{
		UserIDs:  uniqueIDs(userIDs),
		TopicIDs: []int{},
	}

	if topicID != nil {
		id := *topicID
		req.TopicID = &id
		req.TopicIDs = []int{id}
	}

	if r, ok := ResolveISOWeek(strings.TrimSpace(isoWeek)); ok {
		start, end := Date{Time: r.Start}, Date{Time: r.End}
		req.PeriodStart = &start
		req.PeriodEnd = &end
	}

	return req
}

func uniqueIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
