package amqp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueueDeclareAndDelete is scenario 1: declare "q", observe
// {queue:"q", message_count:0, consumer_count:0}, then delete it
// successfully.
func TestQueueDeclareAndDelete(t *testing.T) {
	ch, conn := openChannel(t)

	type declareResult struct {
		queue         string
		messageCount  uint32
		consumerCount uint32
		err           error
	}
	done := make(chan declareResult, 1)
	go func() {
		q, mc, cc, err := ch.QueueDeclare(context.Background(), "q", false, true, false, false, false, nil)
		done <- declareResult{q, mc, cc, err}
	}()
	waitForMethodType(t, conn, QueueDeclare{})
	conn.push(MethodFrame{ChannelID: 1, Method: QueueDeclareOk{Queue: "q", MessageCount: 0, ConsumerCount: 0}})

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "q", r.queue)
	assert.Equal(t, uint32(0), r.messageCount)
	assert.Equal(t, uint32(0), r.consumerCount)

	deleteDone := make(chan error, 1)
	go func() {
		_, err := ch.QueueDelete(context.Background(), "q", false, false, false)
		deleteDone <- err
	}()
	waitForMethodType(t, conn, QueueDelete{})
	conn.push(MethodFrame{ChannelID: 1, Method: QueueDeleteOk{}})
	require.NoError(t, <-deleteDone)
}

func TestQueueDeclareNoWaitSkipsRPC(t *testing.T) {
	ch, conn := openChannel(t)

	q, mc, cc, err := ch.QueueDeclare(context.Background(), "q", false, true, false, false, true, nil)
	require.NoError(t, err)
	assert.Equal(t, "q", q)
	assert.Equal(t, uint32(0), mc)
	assert.Equal(t, uint32(0), cc)
	assert.Equal(t, 0, ch.rpc.len())

	m := conn.lastMethod().(QueueDeclare)
	assert.True(t, m.NoWait)
}

func TestQueuePurge(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan uint32, 1)
	errCh := make(chan error, 1)
	go func() {
		mc, err := ch.QueuePurge(context.Background(), "q", false)
		done <- mc
		errCh <- err
	}()
	waitForMethodType(t, conn, QueuePurge{})
	conn.push(MethodFrame{ChannelID: 1, Method: QueuePurgeOk{MessageCount: 42}})

	require.NoError(t, <-errCh)
	assert.Equal(t, uint32(42), <-done)
}

func TestExchangeDeclareAlias(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan error, 1)
	go func() {
		done <- ch.Exchange(context.Background(), "ex", "topic", false, true, false, false, false, nil)
	}()
	waitForMethodType(t, conn, ExchangeDeclare{})
	conn.push(MethodFrame{ChannelID: 1, Method: ExchangeDeclareOk{}})
	require.NoError(t, <-done)

	m := conn.lastMethod().(ExchangeDeclare)
	assert.Equal(t, "ex", m.Exchange)
	assert.Equal(t, "topic", m.Kind)
}

func TestQueueAlias(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan error, 1)
	go func() {
		_, _, _, err := ch.Queue(context.Background(), "q", false, true, false, false, false, nil)
		done <- err
	}()
	waitForMethodType(t, conn, QueueDeclare{})
	conn.push(MethodFrame{ChannelID: 1, Method: QueueDeclareOk{Queue: "q"}})
	require.NoError(t, <-done)
}

func TestBasicQos(t *testing.T) {
	ch, conn := openChannel(t)

	done := make(chan error, 1)
	go func() { done <- ch.BasicQos(context.Background(), 0, 10, false) }()
	waitForMethodType(t, conn, BasicQos{})
	conn.push(MethodFrame{ChannelID: 1, Method: BasicQosOk{}})
	require.NoError(t, <-done)

	m := conn.lastMethod().(BasicQos)
	assert.Equal(t, uint16(10), m.PrefetchCount)
}
