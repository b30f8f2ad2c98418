package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
)

// SignatureHeader is the provider-specific header carrying the raw-body
// signature.
const SignatureHeader = "X-Gateway-Signature"

// DefaultTolerance bounds how stale a signed timestamp may be before the
// event is rejected as a replay.
const DefaultTolerance = 5 * time.Minute

// VerifyEvent checks the signature header against the exact raw body and, only
// on success, parses the body into an Event. The header format is
// "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">". Comparison is constant
// time. On any verification failure the body is never parsed.
func VerifyEvent(rawBody []byte, sigHeader, secret string) (*Event, error) {
	return VerifyEventWithTolerance(rawBody, sigHeader, secret, DefaultTolerance, time.Now())
}

// VerifyEventWithTolerance is VerifyEvent with an explicit replay tolerance
// and clock, for tests.
func VerifyEventWithTolerance(rawBody []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) (*Event, error) {
	if sigHeader == "" {
		return nil, domainErrors.NewDomainError("missing_signature", "missing signature header", domainErrors.ErrSignatureVerification)
	}

	ts, sig, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, domainErrors.NewDomainError("malformed_signature", err.Error(), domainErrors.ErrSignatureVerification)
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return nil, domainErrors.NewDomainError("stale_signature", "signed timestamp outside tolerance", domainErrors.ErrSignatureVerification)
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, sig) {
		return nil, domainErrors.NewDomainError("bad_signature", "signature mismatch", domainErrors.ErrSignatureVerification)
	}

	return parseEvent(rawBody)
}

// Sign produces a signature header for the given body. Used by the mock
// provider and tests.
func Sign(rawBody []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(rawBody)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func parseSignatureHeader(header string) (ts int64, sig []byte, err error) {
	var tsStr, sigStr string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			tsStr = v
		case "v1":
			sigStr = v
		}
	}
	if tsStr == "" || sigStr == "" {
		return 0, nil, fmt.Errorf("header missing t or v1 component")
	}
	ts, err = strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid timestamp: %v", err)
	}
	sig, err = hex.DecodeString(sigStr)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid hex signature: %v", err)
	}
	return ts, sig, nil
}
