package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateIdle, "idle"},
		{StateAwaitingPhone, "awaiting_phone"},
		{StateAwaitingCode, "awaiting_code"},
		{StateAwaitingPassword, "awaiting_password"},
		{StateAuthenticated, "authenticated"},
		{StateAborted, "aborted"},
		{SessionState(42), "unknown"},
		{SessionState(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestParseSessionState(t *testing.T) {
	for s := StateIdle; s <= StateAborted; s++ {
		assert.Equal(t, s, ParseSessionState(s.String()))
	}
	assert.Equal(t, StateIdle, ParseSessionState("nonsense"))
}

func TestQuotaStatus_PercentLeft(t *testing.T) {
	assert.Equal(t, 100, QuotaStatus{Limit: 120, Remaining: 120}.PercentLeft())
	assert.Equal(t, 50, QuotaStatus{ChecksDone: 60, Limit: 120, Remaining: 60}.PercentLeft())
	assert.Equal(t, 0, QuotaStatus{ChecksDone: 120, Limit: 120}.PercentLeft())
	assert.Equal(t, 1, QuotaStatus{ChecksDone: 119, Limit: 120, Remaining: 1}.PercentLeft())
	assert.Equal(t, 92, QuotaStatus{ChecksDone: 10, Limit: 120, Remaining: 110}.PercentLeft())
	assert.Equal(t, 0, QuotaStatus{}.PercentLeft())
}

func TestInvalidFormat(t *testing.T) {
	assert.Equal(t, "notanumber (Invalid Format)", InvalidFormat("notanumber"))
}
