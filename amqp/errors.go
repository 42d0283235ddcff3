package amqp

import (
	"fmt"

	"go.bryk.io/amqp-channel/errors"
)

// Error kind tags, set as the "kind" tag on every constructed error and
// checked by the Is<Kind> helpers below.
const (
	kindChannelClosed       = "channel_closed"
	kindSynchronizationErr  = "synchronization_error"
	kindEmptyQueue          = "empty_queue"
	kindPublishFailed       = "publish_failed"
	kindNotImplemented      = "not_implemented"
	kindInvalidState        = "invalid_state"
)

// kindOf reports the "kind" tag of err, if it was produced by one of the
// constructors in this file.
func kindOf(err error) string {
	var e *errors.Error
	if !errors.As(err, &e) {
		return ""
	}
	if v, ok := e.Tag("kind"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsChannelClosed reports whether err signals an operation attempted on a
// channel that is not open, or RPCs outstanding at closure.
func IsChannelClosed(err error) bool { return kindOf(err) == kindChannelClosed }

// IsSynchronizationError reports whether err is an RPC key collision or a
// missing waiter: a programming or protocol-ordering defect.
func IsSynchronizationError(err error) bool { return kindOf(err) == kindSynchronizationErr }

// IsEmptyQueue reports whether err is a basic.get-empty response.
func IsEmptyQueue(err error) bool { return kindOf(err) == kindEmptyQueue }

// IsPublishFailed reports whether err is a server nack for a confirmed
// publish.
func IsPublishFailed(err error) bool { return kindOf(err) == kindPublishFailed }

// IsNotImplemented reports whether err is an inbound frame outside the
// dispatch table.
func IsNotImplemented(err error) bool { return kindOf(err) == kindNotImplemented }

// IsInvalidState reports whether err is an operation invalid for the
// channel's current state (e.g. enabling confirms twice).
func IsInvalidState(err error) bool { return kindOf(err) == kindInvalidState }

func errChannelClosed(code uint16, reason string) error {
	e := errors.New(fmt.Sprintf("channel closed: %d %s", code, reason))
	tag(e, kindChannelClosed, func(ae *errors.Error) {
		ae.SetTag("reply_code", code)
		ae.SetTag("reply_text", reason)
	})
	return e
}

func errChannelClosedf(format string, args ...any) error {
	e := errors.New(fmt.Sprintf(format, args...))
	tag(e, kindChannelClosed, nil)
	return e
}

func errSynchronization(format string, args ...any) error {
	e := errors.New(fmt.Sprintf(format, args...))
	tag(e, kindSynchronizationErr, nil)
	return e
}

func errEmptyQueue(queue string) error {
	e := errors.New(fmt.Sprintf("queue %q is empty", queue))
	tag(e, kindEmptyQueue, func(ae *errors.Error) {
		ae.SetTag("queue", queue)
	})
	return e
}

func errPublishFailed(deliveryTag uint64) error {
	e := errors.New(fmt.Sprintf("publish with delivery tag %d was not accepted", deliveryTag))
	tag(e, kindPublishFailed, func(ae *errors.Error) {
		ae.SetTag("delivery_tag", deliveryTag)
	})
	return e
}

func errNotImplemented(classID, methodID uint16) error {
	e := errors.New(fmt.Sprintf("method (class %d, method %d) is not implemented", classID, methodID))
	tag(e, kindNotImplemented, func(ae *errors.Error) {
		ae.SetTag("class_id", classID)
		ae.SetTag("method_id", methodID)
	})
	return e
}

func errInvalidState(format string, args ...any) error {
	e := errors.New(fmt.Sprintf(format, args...))
	tag(e, kindInvalidState, nil)
	return e
}

// tag sets the "kind" tag on e, plus whatever additional tags fn sets, if e
// is an *errors.Error (always true for values returned by errors.New).
func tag(err error, kind string, fn func(*errors.Error)) {
	var e *errors.Error
	if !errors.As(err, &e) {
		return
	}
	e.SetTag("kind", kind)
	if fn != nil {
		fn(e)
	}
}

// PublishDeliveryTag extracts the delivery tag from a PublishFailed error,
// if err carries one.
func PublishDeliveryTag(err error) (uint64, bool) {
	var e *errors.Error
	if !errors.As(err, &e) {
		return 0, false
	}
	v, ok := e.Tag("delivery_tag")
	if !ok {
		return 0, false
	}
	tag, ok := v.(uint64)
	return tag, ok
}
