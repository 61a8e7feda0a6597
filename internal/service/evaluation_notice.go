package service

import (
	"errors"

	"github.com/noah-isme/gema-eval-console/internal/dto"
	"github.com/noah-isme/gema-eval-console/internal/evaluation"
	"github.com/noah-isme/gema-eval-console/internal/platform"
)

const (
	msgNetwork        = "Could not reach the platform. Check the connection and try again."
	msgTimeout        = "The platform did not respond in time. Try again."
	msgUnexpected     = "Unexpected error. Try again."
	msgSaved          = "Evaluation settings saved."
	msgSelectStudents = "Select at least one student."
	msgSelectTopic    = "Select a topic."
	msgNoData         = "No data for the selected period."
)

// noticeFromError converts a failed action into the notice shown to the user.
func noticeFromError(err error) dto.Notice {
	var (
		validationErrs evaluation.ValidationErrors
		serverErr      *platform.ServerError
		netErr         *platform.NetworkError
	)

	switch {
	case errors.As(err, &validationErrs):
		return dto.Notice{Level: dto.NoticeError, Message: validationMessage(validationErrs), Fields: validationErrs.Fields()}
	case errors.As(err, &serverErr):
		return dto.Notice{Level: dto.NoticeError, Message: serverErr.Message(), Fields: serverErr.Fields()}
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return dto.Notice{Level: dto.NoticeError, Message: msgTimeout}
		}
		return dto.Notice{Level: dto.NoticeError, Message: msgNetwork}
	default:
		return dto.Notice{Level: dto.NoticeError, Message: msgUnexpected}
	}
}

func validationMessage(errs evaluation.ValidationErrors) string {
	switch {
	case errs.Has(evaluation.FieldStudents) && errs.Has(evaluation.FieldTopic):
		return msgSelectStudents + " " + msgSelectTopic
	case errs.Has(evaluation.FieldStudents):
		return msgSelectStudents
	case errs.Has(evaluation.FieldTopic):
		return msgSelectTopic
	}
	return errs.Error()
}

// outcomeOf labels an error for metrics.
func outcomeOf(err error) string {
	var (
		validationErrs evaluation.ValidationErrors
		serverErr      *platform.ServerError
		netErr         *platform.NetworkError
		malformed      *platform.MalformedResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &validationErrs):
		return "validation_error"
	case errors.As(err, &serverErr):
		return "server_error"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &malformed):
		return "malformed"
	}
	return "error"
}
