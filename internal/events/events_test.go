package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

var testKafkaConfig = config.KafkaConfig{
	OrdersTopic:       "orders",
	WebhookRetryTopic: "webhook-retry",
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_PublishOrderStatusChanged(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, testKafkaConfig, logging.NewLoggerV2("publisher-test"))

	ctx := logging.ContextWithRequestID(context.Background(), "req-9")
	order := &models.Order{ID: "o1", User: "u1", OrderStatus: models.OrderStatusShipped}
	require.NoError(t, p.PublishOrderStatusChanged(ctx, order, models.OrderStatusProcessing))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "orders", msg.Topic)
	assert.Equal(t, "o1", string(msg.Key))
	assert.Equal(t, string(EventTypeOrderStatusChanged), header(msg, "event_type"))

	var event OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, "req-9", event.CorrelationID)
	assert.NotEmpty(t, event.ID)

	var data struct {
		PreviousStatus string `json:"previous_status"`
		NewStatus      string `json:"new_status"`
	}
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, "Processing", data.PreviousStatus)
	assert.Equal(t, "Shipped", data.NewStatus)
}

func TestKafkaPublisher_CreatedAndDeletedUseOrdersTopic(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, testKafkaConfig, logging.NewLoggerV2("publisher-test"))
	order := &models.Order{ID: "o2", User: "u1"}

	require.NoError(t, p.PublishOrderCreated(context.Background(), order))
	require.NoError(t, p.PublishOrderDeleted(context.Background(), order))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, string(EventTypeOrderCreated), header(w.msgs[0], "event_type"))
	assert.Equal(t, string(EventTypeOrderDeleted), header(w.msgs[1], "event_type"))
	assert.Equal(t, "orders", w.msgs[1].Topic)
}

func TestKafkaPublisher_PublishWebhookRetry(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, testKafkaConfig, logging.NewLoggerV2("publisher-test"))

	payload := []byte(`{"event":"charge.success"}`)
	require.NoError(t, p.PublishWebhookRetry(context.Background(), "ref_1", payload))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "webhook-retry", w.msgs[0].Topic)
	assert.Equal(t, "ref_1", string(w.msgs[0].Key))
	assert.Equal(t, payload, w.msgs[0].Value)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: stderrors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, testKafkaConfig, logging.NewLoggerV2("publisher-test"))

	err := p.PublishOrderCreated(context.Background(), &models.Order{ID: "o1"})
	assert.EqualError(t, err, "broker down")
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    chan struct{}
	once      sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{msgs: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, stderrors.New("reader closed")
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeProcessor struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	events []*models.WebhookEvent
}

func (p *fakeProcessor) ProcessChargeEvent(_ context.Context, event *models.WebhookEvent) (models.WebhookResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.events = append(p.events, event)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return models.WebhookOrderCreated, nil
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func runConsumer(t *testing.T, reader *fakeReader, processor *fakeProcessor, wantCommits int) {
	c := NewWebhookRetryConsumerWithReader(reader, processor, logging.NewLoggerV2("consumer-test"))
	c.backoff = time.Millisecond

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	require.Eventually(t, func() bool { return reader.committedCount() == wantCommits }, 2*time.Second, 5*time.Millisecond)

	c.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestWebhookRetryConsumer_ProcessesAndCommits(t *testing.T) {
	payload := []byte(`{"event":"charge.success","data":{"reference":"ref_1","amount":1000}}`)
	reader := newFakeReader(kafka.Message{Key: []byte("ref_1"), Value: payload})
	processor := &fakeProcessor{}

	runConsumer(t, reader, processor, 1)

	assert.Equal(t, 1, processor.callCount())
	assert.Equal(t, "ref_1", processor.events[0].Data.Reference)
}

func TestWebhookRetryConsumer_RetriesTransientErrors(t *testing.T) {
	payload := []byte(`{"event":"charge.success","data":{"reference":"ref_2"}}`)
	reader := newFakeReader(kafka.Message{Value: payload})
	processor := &fakeProcessor{errs: []error{stderrors.New("db down"), nil}}

	runConsumer(t, reader, processor, 1)

	assert.Equal(t, 2, processor.callCount())
}

func TestWebhookRetryConsumer_DropsInvalidPayloads(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Value: []byte("{garbage")},
		kafka.Message{Value: []byte(`{"event":"charge.success","data":{}}`)},
	)
	processor := &fakeProcessor{errs: []error{errors.NewValidationError("reference", "required")}}

	runConsumer(t, reader, processor, 2)

	assert.Equal(t, 1, processor.callCount())
}
