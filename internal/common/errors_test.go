package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{
		ErrorNotFound, ErrorInternal, ErrBusy,
		ErrInvalidToken, ErrTokenExpired, ErrInvalidPhoneFormat,
		ErrNoActiveCredential, ErrCredentialExpired,
		ErrCodeInvalid, ErrCodeExpired, ErrPasswordInvalid,
		ErrRetryCeilingExceeded, ErrNoPendingSession,
		ErrTimeoutExceeded, ErrTransportFailure, ErrQuotaExhausted,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
			}
		}
	}
}

func TestSentinels_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("batch 3: %w", ErrTransportFailure)
	assert.ErrorIs(t, err, ErrTransportFailure)
	assert.NotErrorIs(t, err, ErrTimeoutExceeded)
}
