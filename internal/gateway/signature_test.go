package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
)

const testSecret = "whsec_test_0123456789abcdef"

func signedBody(t *testing.T, secret string, at time.Time) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      "evt_123",
		"type":    EventChargeSucceeded,
		"created": at.Unix(),
		"data": map[string]any{
			"id":       "ch_123",
			"amount":   12345,
			"currency": "USD",
			"status":   "succeeded",
			"metadata": map[string]string{MetadataPaymentID: "pay-1"},
		},
	})
	require.NoError(t, err)
	return body, Sign(body, secret, at)
}

func TestVerifyEvent_ValidSignature(t *testing.T) {
	now := time.Now()
	body, header := signedBody(t, testSecret, now)

	ev, err := VerifyEventWithTolerance(body, header, testSecret, DefaultTolerance, now)
	require.NoError(t, err)

	assert.Equal(t, "evt_123", ev.ID)
	assert.Equal(t, EventChargeSucceeded, ev.Type)
	assert.Equal(t, "ch_123", ev.Data.ID)
	assert.Equal(t, int64(12345), ev.Data.AmountMinor)
	assert.Equal(t, "USD", ev.Data.Currency)
}

func TestVerifyEvent_Failures(t *testing.T) {
	now := time.Now()
	body, header := signedBody(t, testSecret, now)

	tests := []struct {
		name     string
		body     []byte
		header   string
		secret   string
		now      time.Time
		wantCode string
	}{
		{
			name:     "missing header",
			body:     body,
			header:   "",
			secret:   testSecret,
			now:      now,
			wantCode: "missing_signature",
		},
		{
			name:     "malformed header",
			body:     body,
			header:   "not-a-signature",
			secret:   testSecret,
			now:      now,
			wantCode: "malformed_signature",
		},
		{
			name:     "non-numeric timestamp",
			body:     body,
			header:   "t=soon,v1=deadbeef",
			secret:   testSecret,
			now:      now,
			wantCode: "malformed_signature",
		},
		{
			name:     "non-hex signature",
			body:     body,
			header:   fmt.Sprintf("t=%d,v1=zzzz", now.Unix()),
			secret:   testSecret,
			now:      now,
			wantCode: "malformed_signature",
		},
		{
			name:     "wrong secret",
			body:     body,
			header:   header,
			secret:   "whsec_other",
			now:      now,
			wantCode: "bad_signature",
		},
		{
			name:     "tampered body",
			body:     append([]byte(nil), append(body, ' ')...),
			header:   header,
			secret:   testSecret,
			now:      now,
			wantCode: "bad_signature",
		},
		{
			name:     "stale timestamp",
			body:     body,
			header:   header,
			secret:   testSecret,
			now:      now.Add(DefaultTolerance + time.Second),
			wantCode: "stale_signature",
		},
		{
			name:     "timestamp from the future",
			body:     body,
			header:   header,
			secret:   testSecret,
			now:      now.Add(-DefaultTolerance - time.Second),
			wantCode: "stale_signature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := VerifyEventWithTolerance(tt.body, tt.header, tt.secret, DefaultTolerance, tt.now)
			require.Error(t, err)
			assert.Nil(t, ev)
			assert.True(t, errors.Is(err, domainErrors.ErrSignatureVerification))

			var derr *domainErrors.DomainError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.wantCode, derr.Code)
		})
	}
}

func TestVerifyEvent_ToleranceBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body, header := signedBody(t, testSecret, now)

	// Exactly at the tolerance edge is still accepted.
	_, err := VerifyEventWithTolerance(body, header, testSecret, DefaultTolerance, now.Add(DefaultTolerance))
	assert.NoError(t, err)

	// Zero tolerance disables the replay check entirely.
	_, err = VerifyEventWithTolerance(body, header, testSecret, 0, now.Add(48*time.Hour))
	assert.NoError(t, err)
}

func TestVerifyEvent_BodyNotParsedOnBadSignature(t *testing.T) {
	// Garbage that would fail JSON decoding must be rejected by the signature
	// check first, so decode errors never leak for unauthenticated payloads.
	body := []byte(`{"broken`)
	_, err := VerifyEventWithTolerance(body, "t=1,v1=00", testSecret, 0, time.Now())
	require.Error(t, err)

	var derr *domainErrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "bad_signature", derr.Code)
}

func TestVerifyEvent_MalformedJSONWithValidSignature(t *testing.T) {
	now := time.Now()
	body := []byte(`{"broken`)
	header := Sign(body, testSecret, now)

	_, err := VerifyEventWithTolerance(body, header, testSecret, DefaultTolerance, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode event")
}

func TestParseSignatureHeader_IgnoresUnknownComponents(t *testing.T) {
	now := time.Now()
	body, header := signedBody(t, testSecret, now)

	// Extra components and whitespace are tolerated.
	_, err := VerifyEventWithTolerance(body, "v0=legacy, "+header, testSecret, DefaultTolerance, now)
	assert.NoError(t, err)
}
