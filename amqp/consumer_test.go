package amqp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConsumeOrdering is scenario 2 from the channel-layer's testable
// properties: a basic.deliver injected before consume-ok must not invoke the
// consumer callback until consume-ok has been processed.
func TestConsumeOrdering(t *testing.T) {
	ch, conn := openChannel(t)

	var consumeOkObservedAt, callbackRanAt time.Time
	callback := make(chan struct{})

	tagCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		tag, err := ch.BasicConsume(context.Background(), "q", "", false, false, false, false, nil,
			func(_ *Channel, body []byte, env DeliveryEnvelope, _ Properties) {
				callbackRanAt = time.Now()
				close(callback)
			})
		tagCh <- tag
		errCh <- err
	}()

	waitForMethodType(t, conn, BasicConsume{})
	ctag := conn.lastMethod().(BasicConsume).ConsumerTag

	// inject the delivery before consume-ok: the callback must wait.
	conn.push(MethodFrame{ChannelID: 1, Method: BasicDeliver{
		ConsumerTag: ctag,
		DeliveryTag: 1,
		Exchange:    "",
		RoutingKey:  "q",
	}})
	conn.push(HeaderFrame{ChannelID: 1, ClassID: classBasic, BodySize: 3})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte("abc")})

	select {
	case <-callback:
		t.Fatal("consumer callback ran before consume-ok was processed")
	case <-time.After(50 * time.Millisecond):
	}

	consumeOkObservedAt = time.Now()
	conn.push(MethodFrame{ChannelID: 1, Method: BasicConsumeOk{ConsumerTag: ctag}})

	tag := <-tagCh
	require.NoError(t, <-errCh)
	assert.Equal(t, ctag, tag)

	select {
	case <-callback:
	case <-time.After(time.Second):
		t.Fatal("consumer callback never ran")
	}
	assert.True(t, !callbackRanAt.Before(consumeOkObservedAt))
}

func TestBasicConsumeNoWait(t *testing.T) {
	ch, conn := openChannel(t)

	received := make(chan struct{})
	tag, err := ch.BasicConsume(context.Background(), "q", "fixed-tag", false, false, false, true, nil,
		func(_ *Channel, _ []byte, _ DeliveryEnvelope, _ Properties) { close(received) })
	require.NoError(t, err)
	assert.Equal(t, "fixed-tag", tag)

	// no consume-ok will ever arrive; a concurrent delivery must not block.
	conn.push(MethodFrame{ChannelID: 1, Method: BasicDeliver{ConsumerTag: "fixed-tag", DeliveryTag: 1}})
	conn.push(HeaderFrame{ChannelID: 1, ClassID: classBasic, BodySize: 0})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("delivery under no_wait consume should not block on a gate")
	}
}

func TestBasicConsumeSynthesizesTag(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan string, 1)
	go func() {
		tag, err := ch.BasicConsume(context.Background(), "q", "", false, false, false, false, nil,
			func(*Channel, []byte, DeliveryEnvelope, Properties) {})
		require.NoError(t, err)
		done <- tag
	}()
	waitForMethodType(t, conn, BasicConsume{})
	m := conn.lastMethod().(BasicConsume)
	require.NotEmpty(t, m.ConsumerTag)
	conn.push(MethodFrame{ChannelID: 1, Method: BasicConsumeOk{ConsumerTag: m.ConsumerTag}})

	tag := <-done
	assert.Equal(t, m.ConsumerTag, tag)
}

func TestBasicCancelClientInitiated(t *testing.T) {
	ch, conn := openChannel(t)

	_, err := ch.BasicConsume(context.Background(), "q", "tag1", false, false, false, true, nil,
		func(*Channel, []byte, DeliveryEnvelope, Properties) {})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ch.BasicCancel(context.Background(), "tag1", false)
		done <- err
	}()
	waitForMethodType(t, conn, BasicCancel{})
	conn.push(MethodFrame{ChannelID: 1, Method: BasicCancelOk{ConsumerTag: "tag1"}})
	require.NoError(t, <-done)

	ch.mu.Lock()
	_, stillRegistered := ch.consumers["tag1"]
	ch.mu.Unlock()
	assert.False(t, stillRegistered)
}

func TestServerCancelRemovesCallbackAndNotifiesObservers(t *testing.T) {
	ch, conn := openChannel(t)

	_, err := ch.BasicConsume(context.Background(), "q", "tag1", false, false, false, true, nil,
		func(*Channel, []byte, DeliveryEnvelope, Properties) {})
	require.NoError(t, err)

	var observedTag string
	observed := make(chan struct{})
	ch.AddCancellationCallback(func(_ *Channel, tag string) {
		observedTag = tag
		close(observed)
	})

	conn.push(MethodFrame{ChannelID: 1, Method: BasicCancel{ConsumerTag: "tag1"}})

	select {
	case <-observed:
	case <-time.After(time.Second):
		t.Fatal("cancellation observer never ran")
	}
	assert.Equal(t, "tag1", observedTag)

	ch.mu.Lock()
	_, stillRegistered := ch.consumers["tag1"]
	_, cancelled := ch.cancelled["tag1"]
	ch.mu.Unlock()
	assert.False(t, stillRegistered)
	assert.True(t, cancelled)
}

func TestBasicGet(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan *Delivery, 1)
	errCh := make(chan error, 1)
	go func() {
		d, err := ch.BasicGet(context.Background(), "q", false)
		done <- d
		errCh <- err
	}()

	waitForMethodType(t, conn, BasicGet{})
	conn.push(MethodFrame{ChannelID: 1, Method: BasicGetOk{
		DeliveryTag:  7,
		Exchange:     "ex",
		RoutingKey:   "rk",
		MessageCount: 4,
	}})
	conn.push(HeaderFrame{ChannelID: 1, ClassID: classBasic, BodySize: 5, Properties: Properties{ContentType: "text/plain"}})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte("hello")})

	require.NoError(t, <-errCh)
	d := <-done
	require.NotNil(t, d)
	assert.Equal(t, []byte("hello"), d.Body)
	assert.Equal(t, uint64(7), d.Envelope.DeliveryTag)
	assert.Equal(t, uint32(4), d.MessageCount)
	assert.Equal(t, "text/plain", d.Properties.ContentType)
}

func TestBasicGetEmpty(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan error, 1)
	go func() {
		_, err := ch.BasicGet(context.Background(), "q", false)
		done <- err
	}()

	waitForMethodType(t, conn, BasicGet{})
	conn.push(MethodFrame{ChannelID: 1, Method: BasicGetEmpty{}})

	err := <-done
	require.Error(t, err)
	assert.True(t, IsEmptyQueue(err))
}

// TestConsumeDeliveriesSerializedInOrder guards against two back-to-back
// basic.deliver frames for the same tag racing each other into the
// callback: the first callback invocation blocks until released, and the
// second delivery's callback must not start (let alone finish) until it
// does, preserving both exclusivity and server-send order.
func TestConsumeDeliveriesSerializedInOrder(t *testing.T) {
	ch, conn := openChannel(t)

	release := make(chan struct{})
	var order []int
	var mu sync.Mutex
	firstStarted := make(chan struct{})
	done := make(chan struct{})

	_, err := ch.BasicConsume(context.Background(), "q", "tag1", false, false, false, true, nil,
		func(_ *Channel, body []byte, _ DeliveryEnvelope, _ Properties) {
			n := int(body[0])
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			if n == 1 {
				close(firstStarted)
				<-release
			}
			if n == 2 {
				close(done)
			}
		})
	require.NoError(t, err)

	conn.push(MethodFrame{ChannelID: 1, Method: BasicDeliver{ConsumerTag: "tag1", DeliveryTag: 1}})
	conn.push(HeaderFrame{ChannelID: 1, ClassID: classBasic, BodySize: 1})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte{1}})

	conn.push(MethodFrame{ChannelID: 1, Method: BasicDeliver{ConsumerTag: "tag1", DeliveryTag: 2}})
	conn.push(HeaderFrame{ChannelID: 1, ClassID: classBasic, BodySize: 1})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte{2}})

	select {
	case <-firstStarted:
	case <-time.After(time.Second):
		t.Fatal("first delivery's callback never started")
	}

	mu.Lock()
	started := append([]int(nil), order...)
	mu.Unlock()
	assert.Equal(t, []int{1}, started, "second delivery's callback must not start before the first finishes")

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second delivery's callback never ran")
	}
	assert.Equal(t, []int{1, 2}, order)
}

func TestMultiFrameContentAssembly(t *testing.T) {
	ch, conn := openChannel(t)

	received := make(chan []byte, 1)
	_, err := ch.BasicConsume(context.Background(), "q", "tag1", false, false, false, true, nil,
		func(_ *Channel, body []byte, _ DeliveryEnvelope, _ Properties) { received <- body })
	require.NoError(t, err)

	conn.push(MethodFrame{ChannelID: 1, Method: BasicDeliver{ConsumerTag: "tag1", DeliveryTag: 1}})
	conn.push(HeaderFrame{ChannelID: 1, ClassID: classBasic, BodySize: 10})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte("0123")})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte("4567")})
	conn.push(BodyFrame{ChannelID: 1, Body: []byte("89")})

	select {
	case body := <-received:
		assert.Equal(t, []byte("0123456789"), body)
	case <-time.After(time.Second):
		t.Fatal("delivery callback never ran")
	}
}
