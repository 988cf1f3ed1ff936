package corpus

import (
	"context"
	"errors"
	"strings"

	"simscan/internal/util"
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorCanceled  ErrorType = "canceled"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCanceled
	case errors.Is(err, util.ErrQuotaExhausted):
		return ErrorQuota
	case errors.Is(err, util.ErrRateLimited):
		return ErrorRate
	case errors.Is(err, util.ErrTransient):
		return ErrorTransient
	case errors.Is(err, util.ErrPermanent):
		return ErrorPermanent
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"), strings.Contains(e, "connection reset"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
