package amqp

import "context"

// checkState enforces the "channel must be open" precheck writer.go applies
// to every write except the open and close handshakes, which pass bypass=true.
func (c *Channel) checkState(bypass bool) error {
	if bypass {
		return nil
	}
	if st := c.state(); st != stateOpen {
		return errChannelClosedf("operation attempted on channel in state %s", st)
	}
	return nil
}

// writeMethod writes a single method frame and drains, with no RPC
// registration. Used for fire-and-forget writes (no_wait variants, client
// acks/nacks/rejects, basic.recover-async).
func (c *Channel) writeMethod(bypass bool, m Method) error {
	if err := c.checkState(bypass); err != nil {
		return err
	}
	if err := c.conn.EnsureOpen(); err != nil {
		return err
	}
	if err := c.conn.WriteMethod(c.id, m); err != nil {
		return err
	}
	return c.conn.Drain()
}

// writeAwaitingResponse implements the write-with-response protocol (spec.md
// §4.2): register the completion keyed by key, write m, and suspend on the
// completion. If the write (or the drain that follows it) fails, the
// registration is rolled back before the error is surfaced to the caller.
func (c *Channel) writeAwaitingResponse(ctx context.Context, key string, m Method, bypass bool) (any, error) {
	if err := c.checkState(bypass); err != nil {
		return nil, err
	}
	if err := c.conn.EnsureOpen(); err != nil {
		return nil, err
	}
	result, err := c.rpc.register(key)
	if err != nil {
		return nil, err
	}
	if err := c.conn.WriteMethod(c.id, m); err != nil {
		c.rpc.unregister(key)
		return nil, err
	}
	if err := c.conn.Drain(); err != nil {
		c.rpc.unregister(key)
		return nil, err
	}
	return c.await(ctx, key, result)
}

// await suspends on result until it completes or ctx is done. Abandoning a
// suspended RPC removes its registration from the correlator so a later,
// unexpected response does not find a stale waiter (spec.md §5 Cancellation).
func (c *Channel) await(ctx context.Context, key string, result *rpcResult) (any, error) {
	select {
	case <-result.done:
		return result.value, result.err
	case <-ctx.Done():
		c.rpc.unregister(key)
		return nil, ctx.Err()
	}
}

// writeContentFrames writes a content-carrying method frame followed by its
// content-header and body fragments without draining between them; it drains
// exactly once at the end, per spec.md §4.3's batching rule.
func (c *Channel) writeContentFrames(bypass bool, m Method, header ContentHeader, body []byte) error {
	if err := c.checkState(bypass); err != nil {
		return err
	}
	if err := c.conn.EnsureOpen(); err != nil {
		return err
	}
	if err := c.conn.WriteMethod(c.id, m); err != nil {
		return err
	}
	fragments := fragment(body, c.conn.ServerFrameMax())
	if err := c.conn.WriteContent(c.id, header, fragments); err != nil {
		return err
	}
	return c.conn.Drain()
}

// fragment splits payload into body frames of at most frameMax bytes each.
// frameMax == 0 means unlimited: the whole payload goes in a single frame.
// An empty payload produces zero fragments.
func fragment(payload []byte, frameMax uint32) [][]byte {
	if len(payload) == 0 {
		return nil
	}
	if frameMax == 0 {
		return [][]byte{payload}
	}
	max := int(frameMax)
	fragments := make([][]byte, 0, (len(payload)+max-1)/max)
	for off := 0; off < len(payload); off += max {
		end := off + max
		if end > len(payload) {
			end = len(payload)
		}
		fragments = append(fragments, payload[off:end])
	}
	return fragments
}
