package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
)

// MockClient simulates the external provider for tests and local runs.
type MockClient struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
}

type MockClientOption func(*MockClient)

func WithFailureRate(rate float64) MockClientOption {
	return func(c *MockClient) { c.failureRate = rate }
}

func WithLatency(d time.Duration) MockClientOption {
	return func(c *MockClient) { c.latency = d }
}

func NewMockClient(name string, opts ...MockClientOption) *MockClient {
	c := &MockClient{
		name:        name,
		failureRate: 0.0,
		latency:     100 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *MockClient) Name() string { return c.name }

func (c *MockClient) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	// Simulate latency
	select {
	case <-time.After(c.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < c.failureRate {
		return nil, fmt.Errorf("%s: simulated charge rejection for payment %s: %w",
			c.name, req.PaymentID, domainErrors.ErrChargeRejected)
	}

	return &Charge{
		ID:          fmt.Sprintf("%s_ch_%s", c.name, uuid.New().String()[:8]),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Status:      "pending",
		PayerEmail:  req.PayerEmail,
		Metadata: map[string]string{
			MetadataPaymentID: req.PaymentID,
		},
	}, nil
}
