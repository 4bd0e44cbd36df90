package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/propagation/internal/app"
	"github.com/dkeye/propagation/internal/app/host"
	"github.com/dkeye/propagation/internal/app/orch"
	"github.com/dkeye/propagation/internal/app/pool"
	"github.com/dkeye/propagation/internal/app/propagation"
	"github.com/dkeye/propagation/internal/config"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/dkeye/propagation/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, size int) (*ControlWSController, context.Context) {
	t.Helper()
	m, err := propagation.NewManager(propagation.Options{Pool: pool.Options{Size: size}}, &testutil.Factory{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := host.New(m, time.Hour)
	go func() { _ = h.Run(ctx) }()
	require.NoError(t, h.Setup(ctx, []domain.RoomSpec{{Name: "hall", Gateways: []domain.Gateway{
		{Name: "door", Dampening: 0.5, Target: domain.Fixed{X: 1}},
	}}}))

	o := &orch.Orchestrator{Registry: app.NewRegistry(), Host: h}
	return NewControlWSController(o, &config.Config{ReadLimit: 4096, PingPeriod: time.Minute}), ctx
}

func send(t *testing.T, ctl *ControlWSController, ctx context.Context, owner string, v any) reply {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return ctl.handleCommand(ctx, owner, data)
}

func TestHandleCommand_BindPlayStop(t *testing.T) {
	req := require.New(t)
	ctl, ctx := newTestController(t, 4)

	r := send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "seq": 1, "room": "hall"})
	req.Equal("ack", r.Type)
	req.Equal(int64(1), r.Seq)
	req.NotZero(r.Source)
	id := r.Source

	r = send(t, ctl, ctx, "alice", map[string]any{"type": "play", "source": id, "clip": "rain", "volume": 0.8, "loop": true})
	req.Equal("ack", r.Type)

	r = send(t, ctl, ctx, "alice", map[string]any{"type": "stats"})
	req.Equal("stats", r.Type)
	req.Equal(1, r.Data.(propagation.Stats).Connected)

	r = send(t, ctl, ctx, "alice", map[string]any{"type": "stop", "source": id})
	req.Equal("ack", r.Type)
}

func TestHandleCommand_DroppedWhenExhausted(t *testing.T) {
	req := require.New(t)
	ctl, ctx := newTestController(t, 1)
	a := send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "room": "hall"}).Source
	b := send(t, ctl, ctx, "bob", map[string]any{"type": "bind", "room": "hall"}).Source
	req.Equal("ack", send(t, ctl, ctx, "alice", map[string]any{"type": "play", "source": a, "clip": "rain", "loop": true}).Type)

	r := send(t, ctl, ctx, "bob", map[string]any{"type": "play", "source": b, "clip": "wind", "loop": true})

	req.Equal("dropped", r.Type)
	req.Equal(b, r.Source)
}

func TestHandleCommand_Errors(t *testing.T) {
	req := require.New(t)
	ctl, ctx := newTestController(t, 1)

	req.Equal("error", ctl.handleCommand(ctx, "alice", []byte("{not json")).Type)
	req.Equal("unknown_type", send(t, ctl, ctx, "alice", map[string]any{"type": "dance"}).Error)
	req.Equal("error", send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "room": "attic"}).Type)
	req.Equal("error", send(t, ctl, ctx, "alice", map[string]any{"type": "play", "source": 42, "clip": "rain"}).Type)
	req.Equal("pong", send(t, ctl, ctx, "alice", map[string]any{"type": "ping"}).Type)
}

func TestSendJSON_BackpressureKicksSlowClient(t *testing.T) {
	req := require.New(t)
	ctl := &ControlWSController{Policy: app.SimplePolicy{MaxDropped: 1}}
	conn := &wsControlConn{send: make(chan Frame, 1)}

	// Given a client whose send buffer is full
	req.True(ctl.sendJSON("alice", conn, reply{Type: "ack"}))

	// When replies keep piling up
	// Then the first drop is tolerated and the second one kicks
	req.True(ctl.sendJSON("alice", conn, reply{Type: "ack"}))
	req.False(ctl.sendJSON("alice", conn, reply{Type: "ack"}))
}

func TestSendJSON_DrainResetsDropCount(t *testing.T) {
	req := require.New(t)
	ctl := &ControlWSController{Policy: app.SimplePolicy{MaxDropped: 1}}
	conn := &wsControlConn{send: make(chan Frame, 1)}

	req.True(ctl.sendJSON("bob", conn, reply{Type: "ack"}))
	req.True(ctl.sendJSON("bob", conn, reply{Type: "ack"}))
	<-conn.send

	req.True(ctl.sendJSON("bob", conn, reply{Type: "ack"}))
	req.Zero(conn.dropped)
	req.True(ctl.sendJSON("bob", conn, reply{Type: "ack"}))
}

func TestHandleCommand_Introspection(t *testing.T) {
	req := require.New(t)
	ctl, ctx := newTestController(t, 2)
	id := send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "room": "hall"}).Source
	req.Equal("ack", send(t, ctl, ctx, "alice", map[string]any{"type": "play", "source": id, "clip": "rain", "volume": 0.6}).Type)

	r := send(t, ctl, ctx, "alice", map[string]any{"type": "speakers", "source": id, "seq": 7})
	req.Equal("speakers", r.Type)
	req.Equal(int64(7), r.Seq)
	info := r.Data.([]propagation.SpeakerInfo)
	req.Len(info, 1)
	req.InDelta(0.3, info[0].Volume, 1e-9)
	req.Equal(domain.Position{X: 1}, info[0].Position)

	r = send(t, ctl, ctx, "alice", map[string]any{"type": "rooms"})
	req.Equal("rooms", r.Type)
	req.NotEmpty(r.Data)
}

func TestHandleCommand_BindRateLimited(t *testing.T) {
	req := require.New(t)
	ctl, ctx := newTestController(t, 4)
	ctl.Limiter = NewBindRateLimiter(1, time.Hour)

	req.Equal("ack", send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "room": "hall"}).Type)
	r := send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "room": "hall", "seq": 3})

	req.Equal("rate_limited", r.Error)
	req.Equal(int64(3), r.Seq)
	req.Equal("ack", send(t, ctl, ctx, "bob", map[string]any{"type": "bind", "room": "hall"}).Type)
}

func TestOwnerGone_RemovesSourcesAfterServerContextEnds(t *testing.T) {
	req := require.New(t)
	ctl, ctx := newTestController(t, 2)
	id := send(t, ctl, ctx, "alice", map[string]any{"type": "bind", "room": "hall"}).Source
	req.Equal("ack", send(t, ctl, ctx, "alice", map[string]any{"type": "play", "source": id, "clip": "rain"}).Type)

	// The socket's own context is already gone when cleanup runs.
	connCtx, cancel := context.WithCancel(ctx)
	cancel()
	ctl.ownerGone(connCtx, "alice")

	req.Empty(ctl.Orch.Registry.SourcesOf("alice"))
	st, err := ctl.Orch.Stats(ctx)
	req.NoError(err)
	req.Zero(st.Connected)
}

func TestOwnerGone_GivesUpWhenHostStopped(t *testing.T) {
	m, err := propagation.NewManager(propagation.Options{Pool: pool.Options{Size: 1}}, &testutil.Factory{})
	require.NoError(t, err)
	h := host.New(m, time.Hour)
	hostCtx, stopHost := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = h.Run(hostCtx)
		close(stopped)
	}()
	require.NoError(t, h.Setup(hostCtx, []domain.RoomSpec{{Name: "hall", Gateways: []domain.Gateway{
		{Name: "door", Dampening: 0.5, Target: domain.Fixed{X: 1}},
	}}}))

	o := &orch.Orchestrator{Registry: app.NewRegistry(), Host: h}
	ctl := NewControlWSController(o, &config.Config{ReadLimit: 4096, PingPeriod: time.Minute})
	ctl.CleanupWait = 50 * time.Millisecond
	_, err = o.Bind(hostCtx, 0, "hall", "alice")
	require.NoError(t, err)

	// Given the server is shutting down and the host loop has exited
	stopHost()
	<-stopped

	// When the socket's cleanup runs
	finished := make(chan struct{})
	go func() {
		ctl.ownerGone(hostCtx, "alice")
		close(finished)
	}()

	// Then it returns instead of waiting on the host forever
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("owner cleanup blocked after the host loop stopped")
	}
}
