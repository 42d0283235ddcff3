package amqp

// Dispatch routes a single inbound method frame addressed to this channel.
// It is the one entry point the connection calls per method frame; content
// header/body frames are never pushed here; they are pulled directly off
// the connection by whichever handler needs them (assembleContent),
// following spec.md §4.5's ordering guarantee.
//
// Per spec.md §9, dispatch is a Go type switch over the tagged Method
// variant rather than a hash table keyed by (class_id, method_id) pairs.
func (c *Channel) Dispatch(m Method) error {
	switch v := m.(type) {
	case ChannelOpenOk:
		return c.resolveOrFail("channel.open", v, nil)
	case ChannelFlowOk:
		return c.resolveOrFail("channel.flow", v, nil)
	case ChannelClose:
		c.serverChannelClose(v)
		return nil
	case ChannelCloseOk:
		return c.resolveOrFail("channel.close", v, nil)

	case ExchangeDeclareOk:
		return c.resolveOrFail("exchange.declare", v, nil)
	case ExchangeDeleteOk:
		return c.resolveOrFail("exchange.delete", v, nil)
	case ExchangeBindOk:
		return c.resolveOrFail("exchange.bind", v, nil)
	case ExchangeUnbindOk:
		return c.resolveOrFail("exchange.unbind", v, nil)

	case QueueDeclareOk:
		return c.resolveOrFail("queue.declare", v, nil)
	case QueueBindOk:
		return c.resolveOrFail("queue.bind", v, nil)
	case QueueUnbindOk:
		return c.resolveOrFail("queue.unbind", v, nil)
	case QueuePurgeOk:
		return c.resolveOrFail("queue.purge", v, nil)
	case QueueDeleteOk:
		return c.resolveOrFail("queue.delete", v, nil)

	case BasicQosOk:
		return c.resolveOrFail("basic.qos", v, nil)
	case BasicConsumeOk:
		return c.handleConsumeOk(v)
	case BasicCancelOk:
		return c.handleCancelOk(v)
	case BasicCancel:
		c.handleServerCancel(v)
		return nil
	case BasicGetOk:
		return c.handleGetOk(v)
	case BasicGetEmpty:
		return c.resolveOrFail("basic.get", nil, errEmptyQueue(""))
	case BasicDeliver:
		return c.handleDeliver(v)
	case BasicReturn:
		return c.handleReturn(v)
	case BasicAck:
		c.handleServerAck(v)
		return nil
	case BasicNack:
		c.handleServerNack(v)
		return nil
	case BasicRecoverOk:
		return c.resolveOrFail("basic.recover", v, nil)

	case ConfirmSelectOk:
		return c.resolveOrFail("confirm.select", v, nil)

	default:
		err := errNotImplemented(m.ClassID(), m.MethodID())
		c.protocolError(err)
		return err
	}
}

// resolveOrFail resolves key with value, or with failWith if non-nil
// (basic.get-empty failing a pending basic.get). A missing key is a
// synchronization error that terminates the channel, per spec.md §7's
// propagation policy for inbound dispatch failures.
func (c *Channel) resolveOrFail(key string, value any, failWith error) error {
	var err error
	if failWith != nil {
		err = c.rpc.fail(key, failWith)
	} else {
		err = c.rpc.resolve(key, value)
	}
	if err != nil {
		c.protocolError(err)
		return err
	}
	return nil
}

// protocolError terminates the channel following an inbound decode or
// dispatch failure: transition to closed and fail every pending RPC, without
// emitting channel.close-ok (there was no peer-initiated close to answer).
func (c *Channel) protocolError(err error) {
	c.finalizeClose(err)
}
