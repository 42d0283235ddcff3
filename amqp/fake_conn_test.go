package amqp

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// writtenContent records a single writeContentFrames call.
type writtenContent struct {
	channelID uint16
	header    ContentHeader
	fragments [][]byte
}

var errFakeConnClosed = errors.New("fakeConn: closed")

// fakeConn is an in-process Connection test double. Inbound frames are
// queued with push and handed out, in order, by NextFrame; outbound writes
// are recorded for assertions. All fields are guarded by mu except frames,
// which is its own channel.
type fakeConn struct {
	mu sync.Mutex

	frames chan Frame

	ensureOpenErr   error
	writeMethodErr  error
	writeContentErr error
	drainErr        error
	frameMax        uint32

	methodsWritten []Method
	contentWritten []writtenContent
	drainCount     int
	releasedIDs    []uint16
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan Frame, 256)}
}

func (f *fakeConn) push(frame Frame) { f.frames <- frame }

func (f *fakeConn) close() { close(f.frames) }

func (f *fakeConn) WriteMethod(channelID uint16, method Method) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeMethodErr != nil {
		return f.writeMethodErr
	}
	f.methodsWritten = append(f.methodsWritten, method)
	return nil
}

func (f *fakeConn) WriteContent(channelID uint16, header ContentHeader, fragments [][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeContentErr != nil {
		return f.writeContentErr
	}
	f.contentWritten = append(f.contentWritten, writtenContent{channelID: channelID, header: header, fragments: fragments})
	return nil
}

func (f *fakeConn) Drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drainCount++
	return f.drainErr
}

func (f *fakeConn) NextFrame() (Frame, error) {
	frame, ok := <-f.frames
	if !ok {
		return nil, errFakeConnClosed
	}
	return frame, nil
}

func (f *fakeConn) EnsureOpen() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ensureOpenErr
}

func (f *fakeConn) ReleaseChannelID(id uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releasedIDs = append(f.releasedIDs, id)
}

func (f *fakeConn) ServerFrameMax() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frameMax
}

func (f *fakeConn) lastMethod() Method {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.methodsWritten) == 0 {
		return nil
	}
	return f.methodsWritten[len(f.methodsWritten)-1]
}

func (f *fakeConn) allMethods() []Method {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Method, len(f.methodsWritten))
	copy(out, f.methodsWritten)
	return out
}

func (f *fakeConn) lastContent() writtenContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentWritten[len(f.contentWritten)-1]
}

// runDispatchLoop stands in for the out-of-scope connection reader loop:
// it pulls method frames off conn and feeds them to ch.Dispatch, one at a
// time, exactly as a real connection demultiplexer would. Header/body
// frames are never observed here; they are pulled directly out of conn by
// assembleContent from within a Dispatch call, per spec. The loop exits
// once conn is closed.
func runDispatchLoop(ch *Channel, conn *fakeConn) {
	for {
		frame, err := conn.NextFrame()
		if err != nil {
			return
		}
		mf, ok := frame.(MethodFrame)
		if !ok {
			continue
		}
		_ = ch.Dispatch(mf.Method)
	}
}

// waitForMethodType polls conn's written methods until one of the same
// dynamic type as want has been recorded. Because a registered-then-write
// RPC always registers its completion before the write that waitForMethodType
// observes, a caller that sees the write knows the correlator is already
// primed and a response frame is safe to push.
func waitForMethodType(t *testing.T, conn *fakeConn, want Method) {
	t.Helper()
	wantType := reflect.TypeOf(want)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range conn.allMethods() {
			if reflect.TypeOf(m) == wantType {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for method %T to be written", want)
}

// openChannel builds a Channel over a fresh fakeConn, starts its dispatch
// loop, and completes the open handshake: the precondition every other test
// in this package starts from. The fake connection and its loop are torn
// down automatically at test end.
func openChannel(t *testing.T, opts ...Option) (*Channel, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	ch := New(1, conn, opts...)
	go runDispatchLoop(ch, conn)
	t.Cleanup(conn.close)

	done := make(chan error, 1)
	go func() { done <- ch.Open(context.Background()) }()
	waitForMethodType(t, conn, ChannelOpen{})
	conn.push(MethodFrame{ChannelID: 1, Method: ChannelOpenOk{}})
	if err := <-done; err != nil {
		t.Fatalf("open: %v", err)
	}
	return ch, conn
}
