package amqp

import (
	"context"
	"sync"
)

// Delivery is the assembled result of a basic.get-ok response: a message
// body plus its envelope, properties, and (queue-state) message count.
// basic.deliver does not produce a Delivery value; it invokes the
// consumer's ConsumerFunc directly instead.
type Delivery struct {
	Body         []byte
	Envelope     DeliveryEnvelope
	Properties   Properties
	MessageCount uint32
}

// pendingDelivery is one basic.deliver's assembled content, queued for
// serial hand-off to a consumer's callback.
type pendingDelivery struct {
	body  []byte
	env   DeliveryEnvelope
	props Properties
}

// consumerQueue is a per-consumer-tag FIFO of pending deliveries, drained by
// exactly one worker goroutine so that callback invocations for a given tag
// never run concurrently with one another and always run in server-send
// order (spec.md §9: "confine the channel to a single task/actor" /
// "serialize operations through a command queue"). It has no fixed capacity:
// push never blocks the dispatch path, matching assembleContent's
// requirement to never stall waiting on a slow consumer callback.
type consumerQueue struct {
	mu     sync.Mutex
	items  []pendingDelivery
	wake   chan struct{}
	closed bool
}

func newConsumerQueue() *consumerQueue {
	return &consumerQueue{wake: make(chan struct{}, 1)}
}

// push appends item to the queue and wakes the worker if it is idle. A push
// after stop is silently dropped: the consumer is gone, so there is nothing
// left to deliver to.
func (q *consumerQueue) push(item pendingDelivery) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// stop halts the worker, dropping any items still queued. Safe to call more
// than once.
func (q *consumerQueue) stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.wake)
}

// runConsumerQueue waits for gate (consume-ok, or already-closed for a
// no_wait consume) and then drains q, invoking cb once per item, strictly in
// order, until q is stopped.
func (c *Channel) runConsumerQueue(cb ConsumerFunc, gate chan struct{}, q *consumerQueue) {
	defer c.wg.Done()
	<-gate
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			if _, ok := <-q.wake; !ok {
				return
			}
			continue
		}
		item := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		cb(c, item.body, item.env, item.props)
	}
}

// BasicConsume registers callback under tag (synthesizing one of the form
// ctag<channel_id>.<hex> if tag is empty) and issues basic.consume. The
// callback is registered, and its ready gate created, before the method is
// written, so a fast server cannot deliver to an unknown tag (spec.md §4.5).
// When noWait is true the server omits consume-ok: the gate is created
// already-ready so a concurrently arriving delivery never blocks on it
// (closing the race spec.md §9 flags for this case). Deliveries for tag are
// handed off to a single dedicated worker goroutine (consumerQueue) so that
// callback invocations stay serialized and in order.
func (c *Channel) BasicConsume(
	ctx context.Context,
	queue, tag string,
	noLocal, noAck, exclusive, noWait bool,
	args Table,
	callback ConsumerFunc,
) (string, error) {
	if tag == "" {
		tag = newConsumerTag(c.id)
	}

	gate := make(chan struct{})
	if noWait {
		close(gate)
	}
	q := newConsumerQueue()
	c.mu.Lock()
	c.consumers[tag] = callback
	c.consumerReady[tag] = gate
	c.consumerQueues[tag] = q
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runConsumerQueue(callback, gate, q)

	rollback := func() {
		c.mu.Lock()
		delete(c.consumers, tag)
		delete(c.consumerReady, tag)
		delete(c.consumerQueues, tag)
		c.mu.Unlock()
		// the worker goroutine may still be blocked awaiting consume-ok;
		// release it along with the queue so it does not leak.
		closeGateOnce(gate)
		q.stop()
	}

	method := BasicConsume{
		Queue:       queue,
		ConsumerTag: tag,
		NoLocal:     noLocal,
		NoAck:       noAck,
		Exclusive:   exclusive,
		NoWait:      noWait,
		Arguments:   args,
	}

	if noWait {
		if err := c.writeMethod(false, method); err != nil {
			rollback()
			return "", err
		}
		return tag, nil
	}

	if _, err := c.writeAwaitingResponse(ctx, "basic.consume", method, false); err != nil {
		rollback()
		return "", err
	}
	return tag, nil
}

// handleConsumeOk marks tag's ready gate as ready and resolves the pending
// BasicConsume call.
func (c *Channel) handleConsumeOk(v BasicConsumeOk) error {
	c.mu.Lock()
	gate, ok := c.consumerReady[v.ConsumerTag]
	c.mu.Unlock()
	if ok {
		closeGateOnce(gate)
	}
	return c.resolveOrFail("basic.consume", v.ConsumerTag, nil)
}

func closeGateOnce(gate chan struct{}) {
	select {
	case <-gate:
		// already closed (e.g. a no_wait consume whose tag got reused)
	default:
		close(gate)
	}
}

// BasicCancel issues basic.cancel for tag. On success (or immediately, if
// noWait) the consumer's callback and ready gate are removed.
func (c *Channel) BasicCancel(ctx context.Context, tag string, noWait bool) (string, error) {
	method := BasicCancel{ConsumerTag: tag, NoWait: noWait}
	if noWait {
		if err := c.writeMethod(false, method); err != nil {
			return "", err
		}
		c.removeConsumer(tag)
		return tag, nil
	}
	if _, err := c.writeAwaitingResponse(ctx, "basic.cancel", method, false); err != nil {
		return "", err
	}
	return tag, nil
}

func (c *Channel) handleCancelOk(v BasicCancelOk) error {
	c.removeConsumer(v.ConsumerTag)
	return c.resolveOrFail("basic.cancel", v.ConsumerTag, nil)
}

func (c *Channel) removeConsumer(tag string) {
	c.mu.Lock()
	delete(c.consumers, tag)
	gate, ok := c.consumerReady[tag]
	delete(c.consumerReady, tag)
	q, hasQueue := c.consumerQueues[tag]
	delete(c.consumerQueues, tag)
	c.mu.Unlock()
	if ok {
		closeGateOnce(gate)
	}
	if hasQueue {
		q.stop()
	}
}

// handleServerCancel processes a broker-initiated basic.cancel: tag is added
// to the cancelled set, its callback is removed (resolving the "stale
// callback" gap left open in spec.md §9), and every cancellation observer is
// invoked in registration order. A panicking observer is caught and logged;
// it does not stop the remaining observers.
func (c *Channel) handleServerCancel(v BasicCancel) {
	c.mu.Lock()
	c.cancelled[v.ConsumerTag] = struct{}{}
	delete(c.consumers, v.ConsumerTag)
	gate, hadGate := c.consumerReady[v.ConsumerTag]
	delete(c.consumerReady, v.ConsumerTag)
	q, hasQueue := c.consumerQueues[v.ConsumerTag]
	delete(c.consumerQueues, v.ConsumerTag)
	observers := make([]CancelFunc, len(c.cancellationObservers))
	copy(observers, c.cancellationObservers)
	c.mu.Unlock()

	if hadGate {
		closeGateOnce(gate)
	}
	if hasQueue {
		q.stop()
	}

	for _, observer := range observers {
		c.invokeCancellationObserver(observer, v.ConsumerTag)
	}
}

func (c *Channel) invokeCancellationObserver(observer CancelFunc, tag string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warningf("cancellation observer for tag %q panicked: %v", tag, r)
		}
	}()
	observer(c, tag)
}

// BasicGet issues basic.get and returns the fetched Delivery, or an
// EmptyQueue error if the queue had nothing to deliver.
func (c *Channel) BasicGet(ctx context.Context, queue string, noAck bool) (*Delivery, error) {
	v, err := c.writeAwaitingResponse(ctx, "basic.get", BasicGet{Queue: queue, NoAck: noAck}, false)
	if err != nil {
		return nil, err
	}
	return v.(*Delivery), nil
}

func (c *Channel) handleGetOk(v BasicGetOk) error {
	props, body, err := c.assembleContent()
	if err != nil {
		c.protocolError(err)
		return err
	}
	d := &Delivery{
		Body: body,
		Envelope: DeliveryEnvelope{
			DeliveryTag: v.DeliveryTag,
			Exchange:    v.Exchange,
			RoutingKey:  v.RoutingKey,
			Redelivered: v.Redelivered,
		},
		Properties:   props,
		MessageCount: v.MessageCount,
	}
	return c.resolveOrFail("basic.get", d, nil)
}

// handleDeliver assembles a basic.deliver's content and hands it off to the
// registered consumer's queue. Content assembly happens synchronously, in
// order, as spec.md §5 requires (dispatch must not yield between a method
// frame and its trailing content frames). The hand-off itself is a
// non-blocking push onto tag's consumerQueue: a single dedicated worker
// goroutine per tag (started in BasicConsume) drains that queue and invokes
// the callback, so consecutive deliveries to the same tag always run the
// callback one at a time and in server-send order, even though dispatch
// itself never blocks waiting for a callback to finish. A callback panic
// inside the worker goroutine is unrecoverable from the caller of Dispatch
// (Go cannot forward a goroutine panic across goroutines); this is the
// closest equivalent Go offers to spec.md §7's "propagate to the dispatch
// loop" policy for consumer callbacks.
func (c *Channel) handleDeliver(v BasicDeliver) error {
	props, body, err := c.assembleContent()
	if err != nil {
		c.protocolError(err)
		return err
	}
	env := DeliveryEnvelope{
		ConsumerTag: v.ConsumerTag,
		DeliveryTag: v.DeliveryTag,
		Exchange:    v.Exchange,
		RoutingKey:  v.RoutingKey,
		Redelivered: v.Redelivered,
	}

	c.mu.Lock()
	_, known := c.consumers[v.ConsumerTag]
	q, hasQueue := c.consumerQueues[v.ConsumerTag]
	c.mu.Unlock()
	if !known || !hasQueue {
		c.log.Warningf("delivery for unknown consumer tag %q dropped", v.ConsumerTag)
		return nil
	}

	q.push(pendingDelivery{body: body, env: env, props: props})
	return nil
}

// assembleContent pulls the content-header frame and then content-body
// frames directly off the connection (bypassing Dispatch), concatenating
// body payloads until the accumulated length reaches the header's
// body_size, per spec.md §4.5.
func (c *Channel) assembleContent() (Properties, []byte, error) {
	frame, err := c.conn.NextFrame()
	if err != nil {
		return Properties{}, nil, err
	}
	header, ok := frame.(HeaderFrame)
	if !ok {
		return Properties{}, nil, errSynchronization("expected content-header frame, got %T", frame)
	}

	body := make([]byte, 0, header.BodySize)
	for uint64(len(body)) < header.BodySize {
		frame, err := c.conn.NextFrame()
		if err != nil {
			return Properties{}, nil, err
		}
		bf, ok := frame.(BodyFrame)
		if !ok {
			return Properties{}, nil, errSynchronization("expected content-body frame, got %T", frame)
		}
		body = append(body, bf.Body...)
	}
	return header.Properties, body, nil
}
