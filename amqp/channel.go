package amqp

import (
	"context"
	"sync"

	"go.bryk.io/amqp-channel/log"
)

// state is the lifecycle state of a Channel (spec.md §3, invariant 1):
// opening -> open -> closing -> closed, except a direct opening -> closed
// transition on failure, and closing -> open when a client-initiated Close
// fails before close-ok arrives (see Close).
type state int32

const (
	stateOpening state = iota
	stateOpen
	stateClosing
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateOpening:
		return "opening"
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConsumerFunc handles a single delivered message.
type ConsumerFunc func(ch *Channel, body []byte, env DeliveryEnvelope, props Properties)

// ReturnFunc handles a single undeliverable mandatory/immediate publish.
type ReturnFunc func(ch *Channel, body []byte, env ReturnEnvelope, props Properties)

// CancelFunc observes a server-initiated consumer cancellation.
type CancelFunc func(ch *Channel, consumerTag string)

// DeliveryEnvelope carries the routing metadata of a basic.deliver or
// basic.get-ok frame.
type DeliveryEnvelope struct {
	ConsumerTag string
	DeliveryTag uint64
	Exchange    string
	RoutingKey  string
	Redelivered bool
}

// ReturnEnvelope carries the routing metadata of a basic.return frame.
type ReturnEnvelope struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

// Option adjusts a Channel's behavior at construction time.
type Option func(*Channel)

// WithLogger attaches a structured logger; log.Discard() is used if none is
// provided.
func WithLogger(l log.Logger) Option {
	return func(c *Channel) { c.log = l }
}

// WithReturnCallback registers the single callback invoked for undeliverable
// mandatory/immediate publishes.
func WithReturnCallback(fn ReturnFunc) Option {
	return func(c *Channel) { c.returnCallback = fn }
}

// Channel is a single multiplexed conversation over a Connection: it encodes
// outbound method/content frames, correlates synchronous request/response
// exchanges, and dispatches asynchronous deliveries to consumer callbacks.
// A Channel is safe for concurrent use.
type Channel struct {
	id   uint16
	conn Connection
	log  log.Logger
	rpc  *correlator

	mu                    sync.Mutex
	st                    state
	consumers             map[string]ConsumerFunc
	consumerReady         map[string]chan struct{}
	consumerQueues        map[string]*consumerQueue
	cancelled             map[string]struct{}
	cancellationObservers []CancelFunc
	returnCallback        ReturnFunc
	publisherConfirms     bool
	nextDeliveryTag       uint64

	closed     chan struct{}
	closedOnce sync.Once

	wg sync.WaitGroup
}

// New constructs a Channel bound to id over conn. The channel starts in the
// `opening` state; callers must call Open before using it for anything other
// than Open itself.
func New(id uint16, conn Connection, opts ...Option) *Channel {
	c := &Channel{
		id:             id,
		conn:           conn,
		log:            log.Discard(),
		rpc:            newCorrelator(),
		consumers:      make(map[string]ConsumerFunc),
		consumerReady:  make(map[string]chan struct{}),
		consumerQueues: make(map[string]*consumerQueue),
		cancelled:      make(map[string]struct{}),
		st:             stateOpening,
		closed:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the channel's connection-scoped identifier.
func (c *Channel) ID() uint16 { return c.id }

// IsOpen reports whether the channel is currently in the `open` state.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateOpen
}

func (c *Channel) state() state {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

func (c *Channel) setState(s state) {
	c.mu.Lock()
	c.st = s
	c.mu.Unlock()
}

// Done returns a channel closed once this Channel has reached the `closed`
// state, by any path (client close, server close, or connection teardown).
func (c *Channel) Done() <-chan struct{} { return c.closed }

func (c *Channel) signalClosed() {
	c.closedOnce.Do(func() { close(c.closed) })
}

// Open issues channel.open and awaits channel.open-ok. It is the one
// operation permitted to bypass the "channel must be open" precheck other
// writes apply.
func (c *Channel) Open(ctx context.Context) error {
	_, err := c.writeAwaitingResponse(ctx, "channel.open", ChannelOpen{}, true)
	if err != nil {
		c.setState(stateClosed)
		return err
	}
	c.setState(stateOpen)
	return nil
}

// Close transitions the channel through closing -> closed, only valid from
// `open`. It fails with ChannelClosed if the channel is already closing or
// closed, preventing a double close.
//
// A write/drain failure or context cancellation while awaiting close-ok does
// not by itself close the channel (spec.md §7): writeAwaitingResponse has
// already rolled back the RPC registration in that case, so the channel is
// reverted to `open` and the error is returned to the caller untouched. Only
// an actual close-ok finalizes the close, matching the broker's own view of
// the channel; the connection layer is responsible for resolving a channel
// left in limbo by a failed close, e.g. via connectionClosed.
func (c *Channel) Close(ctx context.Context, code uint16, text string) error {
	if c.state() != stateOpen {
		return errChannelClosedf("close called while channel is %s", c.state())
	}
	c.setState(stateClosing)
	_, err := c.writeAwaitingResponse(ctx, "channel.close", ChannelClose{
		ReplyCode: code,
		ReplyText: text,
	}, true)
	if err != nil {
		c.setState(stateOpen)
		return err
	}
	c.finalizeClose(errChannelClosed(code, text))
	return nil
}

// serverChannelClose handles a broker-initiated channel.close: it emits
// channel.close-ok first, then fails every outstanding RPC with
// ChannelClosed carrying the server's code and reason, releases the channel
// id, and signals closed.
func (c *Channel) serverChannelClose(m ChannelClose) {
	// best effort: a write failure here does not change the outcome, the
	// channel is going away either way.
	_ = c.conn.WriteMethod(c.id, ChannelCloseOk{})
	_ = c.conn.Drain()
	c.finalizeClose(errChannelClosed(m.ReplyCode, m.ReplyText))
}

// connectionClosed is invoked by the connection on global teardown; it fails
// every unresolved completion with err (synthesizing a generic ChannelClosed
// if err is nil).
func (c *Channel) connectionClosed(err error) {
	if err == nil {
		err = errChannelClosedf("connection closed")
	}
	c.finalizeClose(err)
}

func (c *Channel) finalizeClose(err error) {
	c.setState(stateClosed)
	c.rpc.failAll(err)
	c.releaseConsumerGates()
	c.conn.ReleaseChannelID(c.id)
	c.signalClosed()
}

// releaseConsumerGates closes every outstanding consumer-ready gate and stops
// every per-tag delivery queue, so that a worker goroutine blocked awaiting
// consume-ok, or blocked awaiting its next delivery, unblocks instead of
// leaking; spec.md's cooperative single-task model has no equivalent because
// an abandoned coroutine is simply never resumed, but a blocked Go goroutine
// must be released explicitly.
func (c *Channel) releaseConsumerGates() {
	c.mu.Lock()
	gates := c.consumerReady
	c.consumerReady = make(map[string]chan struct{})
	queues := c.consumerQueues
	c.consumerQueues = make(map[string]*consumerQueue)
	c.mu.Unlock()
	for _, g := range gates {
		select {
		case <-g:
		default:
			close(g)
		}
	}
	for _, q := range queues {
		q.stop()
	}
}

// Flow toggles the peer's readiness to receive via channel.flow/flow-ok.
// Flow control is reported to the caller; it does not gate local writes and
// never touches channel close/open state (an intentional simplification of
// the source, where flow incidentally also cleared the close signal).
func (c *Channel) Flow(ctx context.Context, active bool) (bool, error) {
	v, err := c.writeAwaitingResponse(ctx, "channel.flow", ChannelFlow{Active: active}, false)
	if err != nil {
		return false, err
	}
	return v.(ChannelFlowOk).Active, nil
}

// AddCancellationCallback registers fn to be invoked, in registration order,
// whenever the broker unilaterally cancels a consumer on this channel.
func (c *Channel) AddCancellationCallback(fn CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancellationObservers = append(c.cancellationObservers, fn)
}

// Wait blocks until every per-consumer delivery worker goroutine this
// channel has spawned has returned (cancellation observers run inline, not
// in goroutines); useful in tests asserting no goroutine leak survives a
// closed channel.
func (c *Channel) Wait() { c.wg.Wait() }
