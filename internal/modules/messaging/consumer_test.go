package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type fakeRepublisher struct {
	err error

	published bool
	exchange  string
	key       string
	msg       amqp.Publishing
}

func (f *fakeRepublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.published = true
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

func TestHandleMalformedRoutingKey(t *testing.T) {
	c := NewConsumer(Config{}, []string{"migros"}, 5)
	ack := &fakeAcknowledger{}
	handlerCalled := false

	// A poison routing key is acknowledged without the handler ever running.
	c.handle(context.Background(), nil, amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   "malformed",
		Body:         []byte(`{}`),
	}, func(ctx context.Context, market, topic string, body []byte) error {
		handlerCalled = true
		return nil
	})

	assert.False(t, handlerCalled)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestHandleSuccessAcksAfterHandler(t *testing.T) {
	c := NewConsumer(Config{}, []string{"migros"}, 5)
	ack := &fakeAcknowledger{}

	var gotMarket, gotTopic string
	var gotBody []byte

	c.handle(context.Background(), nil, amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   "migros.product",
		Body:         []byte(`{"product_name":"Milk 1L"}`),
	}, func(ctx context.Context, market, topic string, body []byte) error {
		// Must run before the ack: ordering is what makes delivery at-least-once.
		assert.False(t, ack.acked)
		gotMarket, gotTopic, gotBody = market, topic, body
		return nil
	})

	assert.Equal(t, "migros", gotMarket)
	assert.Equal(t, "product", gotTopic)
	assert.JSONEq(t, `{"product_name":"Milk 1L"}`, string(gotBody))
	assert.True(t, ack.acked)
}

func TestHandleFailureRetryBudget(t *testing.T) {
	failing := func(ctx context.Context, market, topic string, body []byte) error {
		return errors.New("store unavailable")
	}

	testCases := []struct {
		name         string
		headers      amqp.Table
		publishErr   error
		wantExchange string
		wantRetries  int
		wantAck      bool
		wantRequeue  bool
	}{
		{
			name:         "first failure starts the count",
			headers:      nil,
			wantExchange: ExchangeName,
			wantRetries:  1,
			wantAck:      true,
		},
		{
			name:         "below budget republished with bumped header",
			headers:      amqp.Table{retryHeader: 2},
			wantExchange: ExchangeName,
			wantRetries:  3,
			wantAck:      true,
		},
		{
			name:         "budget spent goes to the dead-letter exchange",
			headers:      amqp.Table{retryHeader: 5},
			wantExchange: DeadLetterExchange,
			wantRetries:  5,
			wantAck:      true,
		},
		{
			name:        "republish failure requeues the original",
			headers:     amqp.Table{retryHeader: 2},
			publishErr:  errors.New("channel gone"),
			wantAck:     false,
			wantRequeue: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConsumer(Config{}, []string{"migros"}, 5)
			ack := &fakeAcknowledger{}
			pub := &fakeRepublisher{err: tc.publishErr}

			c.handle(context.Background(), pub, amqp.Delivery{
				Acknowledger: ack,
				RoutingKey:   "migros.price",
				Headers:      tc.headers,
				Body:         []byte(`{}`),
			}, failing)

			require.True(t, pub.published)
			if tc.publishErr != nil {
				assert.False(t, ack.acked)
				assert.True(t, ack.nacked)
				assert.True(t, ack.requeue)
				return
			}

			assert.Equal(t, tc.wantExchange, pub.exchange)
			assert.Equal(t, "migros.price", pub.key)
			assert.Equal(t, tc.wantRetries, retryCount(pub.msg.Headers))
			assert.True(t, ack.acked)
			assert.False(t, ack.nacked)
		})
	}
}

func TestForwardStopsWhenDone(t *testing.T) {
	msgs := make(chan amqp.Delivery, 1)
	out := make(chan amqp.Delivery)
	done := make(chan struct{})

	returned := make(chan struct{})
	go func() {
		forward(msgs, out, done)
		close(returned)
	}()

	// Nobody is draining out, so the forwarder is parked on the send.
	msgs <- amqp.Delivery{RoutingKey: "migros.product"}
	close(done)

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after done was closed")
	}
}

func TestForwardDelivers(t *testing.T) {
	msgs := make(chan amqp.Delivery, 1)
	out := make(chan amqp.Delivery, 1)

	msgs <- amqp.Delivery{RoutingKey: "migros.product"}
	close(msgs)
	forward(msgs, out, make(chan struct{}))

	d := <-out
	assert.Equal(t, "migros.product", d.RoutingKey)
}

func TestRetryCount(t *testing.T) {
	testCases := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{name: "missing header", headers: amqp.Table{}, want: 0},
		{name: "nil table", headers: nil, want: 0},
		{name: "int", headers: amqp.Table{retryHeader: 3}, want: 3},
		{name: "int32 off the wire", headers: amqp.Table{retryHeader: int32(4)}, want: 4},
		{name: "int64 off the wire", headers: amqp.Table{retryHeader: int64(7)}, want: 7},
		{name: "unexpected type", headers: amqp.Table{retryHeader: "3"}, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, retryCount(tc.headers))
		})
	}
}
