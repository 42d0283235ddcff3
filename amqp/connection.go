package amqp

// Connection is the narrow contract a Channel requires from its host
// connection. The TCP/TLS transport, protocol handshake, heartbeats, frame
// reader loop and wire codec that implement it live outside this package.
type Connection interface {
	// WriteMethod serializes and sends a single method frame on channelID.
	WriteMethod(channelID uint16, method Method) error

	// WriteContent sends a content-header frame followed by one body frame
	// per entry in fragments, all on channelID. Callers are responsible for
	// fragment sizing (see fragment in writer.go); WriteContent itself does
	// not re-split fragments.
	WriteContent(channelID uint16, header ContentHeader, fragments [][]byte) error

	// Drain flushes any frames buffered by prior WriteMethod/WriteContent
	// calls to the network.
	Drain() error

	// NextFrame blocks until the next frame addressed to the calling
	// channel is available and returns it. The connection's demultiplexer
	// guarantees frames for a given channel are delivered in send order.
	NextFrame() (Frame, error)

	// EnsureOpen asserts the underlying connection is still usable,
	// returning an error if not. Channels must call this before any write.
	EnsureOpen() error

	// ReleaseChannelID returns a channel id to the connection's allocator;
	// called exactly once, on channel teardown.
	ReleaseChannelID(id uint16)

	// ServerFrameMax is the frame_max negotiated with the broker at
	// connection time. Zero means unlimited (a single body frame).
	ServerFrameMax() uint32
}

// Frame is any of the four frame kinds a connection may hand to a channel's
// dispatcher: a method frame, a content-header frame, a content-body
// fragment, or (in principle) a heartbeat, which a channel never observes
// directly since heartbeats are connection-scoped.
type Frame interface {
	frameMarker()
}

// MethodFrame carries one decoded AMQP method addressed to a channel.
type MethodFrame struct {
	ChannelID uint16
	Method    Method
}

func (MethodFrame) frameMarker() {}

// HeaderFrame is the content-header frame that always follows a
// content-carrying method (basic.publish, basic.deliver, basic.get-ok,
// basic.return).
type HeaderFrame struct {
	ChannelID  uint16
	ClassID    uint16
	BodySize   uint64
	Properties Properties
}

func (HeaderFrame) frameMarker() {}

// ContentHeader is the subset of HeaderFrame a writer needs to emit one. It
// carries no body size: WriteContent receives the body fragments alongside
// it, and the body size is their total length.
type ContentHeader struct {
	ClassID    uint16
	Properties Properties
}

// BodyFrame is one fragment of a content body.
type BodyFrame struct {
	ChannelID uint16
	Body      []byte
}

func (BodyFrame) frameMarker() {}

// Method is implemented by every concrete AMQP method struct this package
// knows how to dispatch. Inbound methods the connection could decode but
// this package has no handler for arrive as UnknownMethod, so NotImplemented
// can be raised without needing the wire codec to be in scope here.
type Method interface {
	ClassID() uint16
	MethodID() uint16
}

// UnknownMethod represents any decoded method outside this package's
// dispatch table.
type UnknownMethod struct {
	Class  uint16
	Method uint16
}

func (u UnknownMethod) ClassID() uint16  { return u.Class }
func (u UnknownMethod) MethodID() uint16 { return u.Method }
