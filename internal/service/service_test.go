package service

import (
	"context"
	"sync"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		APIURL: "https://shop.example.com",
		Features: config.FeatureFlags{
			EnableOrderCaching:       true,
			EnableOrderEvents:        true,
			EnableWebhookDedup:       true,
			VerifyWebhookSignature:   true,
			EnableEmailNotifications: true,
		},
	}
}

type publishedEvent struct {
	kind      string
	orderID   string
	previous  models.OrderStatus
	reference string
	payload   []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) record(e publishedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, order *models.Order) error {
	return p.record(publishedEvent{kind: "created", orderID: order.ID})
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, order *models.Order, previous models.OrderStatus) error {
	return p.record(publishedEvent{kind: "status_changed", orderID: order.ID, previous: previous})
}

func (p *recordingPublisher) PublishOrderDeleted(_ context.Context, order *models.Order) error {
	return p.record(publishedEvent{kind: "deleted", orderID: order.ID})
}

func (p *recordingPublisher) PublishWebhookRetry(_ context.Context, reference string, payload []byte) error {
	return p.record(publishedEvent{kind: "retry", reference: reference, payload: payload})
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.kind)
	}
	return out
}

type fakeGateway struct {
	req       *models.InitializeTransactionRequest
	resp      *models.InitializeTransactionResponse
	err       error
	signature bool
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, req *models.InitializeTransactionRequest) (*models.InitializeTransactionResponse, error) {
	g.req = req
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func (g *fakeGateway) VerifySignature([]byte, string) bool {
	return g.signature
}

type recordingNotifier struct {
	mu         sync.Mutex
	recipients []string
}

func (n *recordingNotifier) SendOrderConfirmation(_ context.Context, recipient string, _ *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, recipient)
	return nil
}
