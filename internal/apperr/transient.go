package apperr

import (
	"context"
	"errors"
	"strings"
)

var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"deadlock detected",
	"could not serialize access",
	"database is locked",
	"too many connections",
	"i/o timeout",
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
