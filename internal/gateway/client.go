package gateway

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ChargeRequest describes a charge to create with the provider. PaymentID is
// embedded into the charge metadata under MetadataPaymentID so the webhook can
// correlate the eventual charge event back to the internal payment.
type ChargeRequest struct {
	PaymentID   string
	AmountMinor int64
	Currency    string
	PayerEmail  string
	Description string
}

// Client creates charges with the external payment provider.
type Client interface {
	// Name returns the provider name.
	Name() string
	// CreateCharge initiates a charge and returns the provider-side record.
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// BreakerClient wraps a Client with a circuit breaker so a degraded provider
// fails fast instead of holding request handlers until timeout.
type BreakerClient struct {
	client  Client
	breaker *gobreaker.CircuitBreaker[*Charge]
}

// NewBreakerClient wraps the given client.
func NewBreakerClient(client Client) *BreakerClient {
	return &BreakerClient{
		client: client,
		breaker: gobreaker.NewCircuitBreaker[*Charge](gobreaker.Settings{
			Name:        client.Name(),
			MaxRequests: 10,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
		}),
	}
}

func (c *BreakerClient) Name() string { return c.client.Name() }

func (c *BreakerClient) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	return c.breaker.Execute(func() (*Charge, error) {
		return c.client.CreateCharge(ctx, req)
	})
}
