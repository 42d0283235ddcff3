package amqp

import "context"

// ExchangeDeclare declares an exchange and awaits exchange.declare-ok unless
// noWait is set.
func (c *Channel) ExchangeDeclare(ctx context.Context, name, kind string, passive, durable, autoDelete, internal, noWait bool, args Table) error {
	m := ExchangeDeclare{
		Exchange:   name,
		Kind:       kind,
		Passive:    passive,
		Durable:    durable,
		AutoDelete: autoDelete,
		Internal:   internal,
		NoWait:     noWait,
		Arguments:  args,
	}
	return c.call(ctx, "exchange.declare", m, noWait)
}

// Exchange is an alias for ExchangeDeclare (spec.md §6).
func (c *Channel) Exchange(ctx context.Context, name, kind string, passive, durable, autoDelete, internal, noWait bool, args Table) error {
	return c.ExchangeDeclare(ctx, name, kind, passive, durable, autoDelete, internal, noWait, args)
}

// ExchangeDelete deletes an exchange.
func (c *Channel) ExchangeDelete(ctx context.Context, name string, ifUnused, noWait bool) error {
	m := ExchangeDelete{Exchange: name, IfUnused: ifUnused, NoWait: noWait}
	return c.call(ctx, "exchange.delete", m, noWait)
}

// ExchangeBind binds source to destination via routingKey.
func (c *Channel) ExchangeBind(ctx context.Context, destination, source, routingKey string, noWait bool, args Table) error {
	m := ExchangeBind{Destination: destination, Source: source, RoutingKey: routingKey, NoWait: noWait, Arguments: args}
	return c.call(ctx, "exchange.bind", m, noWait)
}

// ExchangeUnbind removes a binding created by ExchangeBind.
func (c *Channel) ExchangeUnbind(ctx context.Context, destination, source, routingKey string, noWait bool, args Table) error {
	m := ExchangeUnbind{Destination: destination, Source: source, RoutingKey: routingKey, NoWait: noWait, Arguments: args}
	return c.call(ctx, "exchange.unbind", m, noWait)
}

// QueueDeclare declares a queue and returns its server-confirmed name,
// message count, and consumer count. Under noWait the latter two are zero
// (the server omits queue.declare-ok).
func (c *Channel) QueueDeclare(ctx context.Context, name string, passive, durable, exclusive, autoDelete, noWait bool, args Table) (queue string, messageCount, consumerCount uint32, err error) {
	m := QueueDeclare{
		Queue:      name,
		Passive:    passive,
		Durable:    durable,
		Exclusive:  exclusive,
		AutoDelete: autoDelete,
		NoWait:     noWait,
		Arguments:  args,
	}
	if noWait {
		if err = c.writeMethod(false, m); err != nil {
			return "", 0, 0, err
		}
		return name, 0, 0, nil
	}
	v, err := c.writeAwaitingResponse(ctx, "queue.declare", m, false)
	if err != nil {
		return "", 0, 0, err
	}
	ok := v.(QueueDeclareOk)
	return ok.Queue, ok.MessageCount, ok.ConsumerCount, nil
}

// Queue is an alias for QueueDeclare (spec.md §6).
func (c *Channel) Queue(ctx context.Context, name string, passive, durable, exclusive, autoDelete, noWait bool, args Table) (string, uint32, uint32, error) {
	return c.QueueDeclare(ctx, name, passive, durable, exclusive, autoDelete, noWait, args)
}

// QueueBind binds queue to exchange via routingKey.
func (c *Channel) QueueBind(ctx context.Context, queue, exchange, routingKey string, noWait bool, args Table) error {
	m := QueueBind{Queue: queue, Exchange: exchange, RoutingKey: routingKey, NoWait: noWait, Arguments: args}
	return c.call(ctx, "queue.bind", m, noWait)
}

// QueueUnbind removes a binding created by QueueBind. queue.unbind carries
// no NoWait flag in AMQP 0-9-1: the server always replies.
func (c *Channel) QueueUnbind(ctx context.Context, queue, exchange, routingKey string, args Table) error {
	m := QueueUnbind{Queue: queue, Exchange: exchange, RoutingKey: routingKey, Arguments: args}
	_, err := c.writeAwaitingResponse(ctx, "queue.unbind", m, false)
	return err
}

// QueuePurge removes all ready messages from queue and returns how many were
// purged (zero under noWait, since the server omits queue.purge-ok).
func (c *Channel) QueuePurge(ctx context.Context, queue string, noWait bool) (uint32, error) {
	m := QueuePurge{Queue: queue, NoWait: noWait}
	if noWait {
		if err := c.writeMethod(false, m); err != nil {
			return 0, err
		}
		return 0, nil
	}
	v, err := c.writeAwaitingResponse(ctx, "queue.purge", m, false)
	if err != nil {
		return 0, err
	}
	return v.(QueuePurgeOk).MessageCount, nil
}

// QueueDelete deletes queue and returns the number of messages it held.
func (c *Channel) QueueDelete(ctx context.Context, queue string, ifUnused, ifEmpty, noWait bool) (uint32, error) {
	m := QueueDelete{Queue: queue, IfUnused: ifUnused, IfEmpty: ifEmpty, NoWait: noWait}
	if noWait {
		if err := c.writeMethod(false, m); err != nil {
			return 0, err
		}
		return 0, nil
	}
	v, err := c.writeAwaitingResponse(ctx, "queue.delete", m, false)
	if err != nil {
		return 0, err
	}
	return v.(QueueDeleteOk).MessageCount, nil
}

// BasicQos sets the channel's prefetch limits.
func (c *Channel) BasicQos(ctx context.Context, prefetchSize uint32, prefetchCount uint16, global bool) error {
	m := BasicQos{PrefetchSize: prefetchSize, PrefetchCount: prefetchCount, Global: global}
	_, err := c.writeAwaitingResponse(ctx, "basic.qos", m, false)
	return err
}

// call is the shared no_wait-aware request/response helper for the simple
// "write method, await *.Ok unless no_wait" operations in this file.
func (c *Channel) call(ctx context.Context, key string, m Method, noWait bool) error {
	if noWait {
		return c.writeMethod(false, m)
	}
	_, err := c.writeAwaitingResponse(ctx, key, m, false)
	return err
}
