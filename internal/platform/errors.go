package platform

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/gema-eval-console/internal/evaluation"
)

const rawTextLimit = 400

var sanitizer = bluemonday.StrictPolicy()

// NetworkError reports a request that never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request was abandoned by the client timeout.
func (e *NetworkError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ServerError reports a non-2xx status or an ok:false envelope.
type ServerError struct {
	Op     string
	Status int
	// Errors holds the sanitised entries of the structured errors array.
	Errors []string
	// Body holds the sanitised raw text of a non-JSON response.
	Body string
}

func (e *ServerError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.Status, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
}

// Message returns the user-facing text for the failure.
// Structured errors win over the fixed per-status texts, raw text is the last resort.
func (e *ServerError) Message() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("Request failed (%d): %s", e.Status, strings.Join(e.Errors, "; "))
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return "401: sign-in required."
	case e.Status == http.StatusForbidden:
		return "403: insufficient permissions (administrator role required)."
	case e.Status == http.StatusBadRequest:
		return "400: invalid parameters. Check the selected students, topic and date range."
	case e.Status >= http.StatusInternalServerError:
		return fmt.Sprintf("%d: internal server error. Try again later.", e.Status)
	}
	if e.Body != "" {
		return fmt.Sprintf("Request failed (%d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("Request failed (%d).", e.Status)
}

// Fields maps recognisable keywords of the structured errors onto preview filters.
func (e *ServerError) Fields() []evaluation.Field {
	if len(e.Errors) == 0 {
		return nil
	}
	text := strings.ToLower(strings.Join(e.Errors, " "))

	var fields []evaluation.Field
	if strings.Contains(text, "студент") || strings.Contains(text, "student") {
		fields = append(fields, evaluation.FieldStudents)
	}
	if strings.Contains(text, "тема") || strings.Contains(text, "topic") {
		fields = append(fields, evaluation.FieldTopic)
	}
	if strings.Contains(text, "конец периода") || strings.Contains(text, "period") {
		fields = append(fields, evaluation.FieldPeriod)
	}
	return fields
}

// MalformedResponseError reports a body that is not JSON or misses expected keys.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func sanitize(text string) string {
	clean := strings.TrimSpace(sanitizer.Sanitize(text))
	runes := []rune(clean)
	if len(runes) > rawTextLimit {
		clean = string(runes[:rawTextLimit])
	}
	return clean
}
