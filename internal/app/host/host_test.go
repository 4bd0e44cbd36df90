package host

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/propagation/internal/app/pool"
	"github.com/dkeye/propagation/internal/app/propagation"
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/dkeye/propagation/internal/testutil"
	"github.com/stretchr/testify/require"
)

var hall = domain.RoomSpec{Name: "hall", Gateways: []domain.Gateway{
	{Name: "door", Dampening: 0.5, Target: domain.Fixed{X: 1}},
}}

func startHost(t *testing.T, size int) (*Host, context.Context) {
	t.Helper()
	m, err := propagation.NewManager(propagation.Options{Pool: pool.Options{Size: size}}, &testutil.Factory{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// The step loop never ticks on its own; tests advance time explicitly.
	h := New(m, time.Hour)
	go func() { _ = h.Run(ctx) }()
	require.NoError(t, h.Setup(ctx, []domain.RoomSpec{hall}))
	return h, ctx
}

func advance(t *testing.T, ctx context.Context, h *Host, dt time.Duration) {
	t.Helper()
	require.NoError(t, h.do(ctx, func() error {
		h.advance(dt)
		return nil
	}))
}

func volumeOf(t *testing.T, ctx context.Context, h *Host, id domain.SourceID) float64 {
	t.Helper()
	info, ok, err := h.Speakers(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	return info[0].Volume
}

func TestHost_PlayAndStop(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}

	req.NoError(h.Play(ctx, src, "rain", 0.8, true))
	st, err := h.Stats(ctx)
	req.NoError(err)
	req.Equal(1, st.Connected)

	req.NoError(h.Stop(ctx, 1))
	st, err = h.Stats(ctx)
	req.NoError(err)
	req.Zero(st.Connected)
}

func TestHost_ExhaustionIsReported(t *testing.T) {
	h, ctx := startHost(t, 1)
	require.NoError(t, h.Play(ctx, domain.SourceRef{ID: 1, Room: "hall"}, "rain", 1, true))

	err := h.Play(ctx, domain.SourceRef{ID: 2, Room: "hall"}, "wind", 1, true)
	require.ErrorIs(t, err, core.ErrExhausted)
}

func TestHost_FadeOutStopsAndRestoresVolume(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}
	req.NoError(h.Play(ctx, src, "rain", 1, true))

	req.NoError(h.FadeOut(ctx, 1, time.Second))
	advance(t, ctx, h, 500*time.Millisecond)

	// Halfway through, dampened by the gateway
	req.InDelta(0.25, volumeOf(t, ctx, h, 1), 1e-9)

	advance(t, ctx, h, 600*time.Millisecond)
	_, ok, err := h.Speakers(ctx, 1)
	req.NoError(err)
	req.False(ok)

	// Next play starts from the pre-fade volume
	var restored float64
	req.NoError(h.do(ctx, func() error {
		restored = h.volume(1)
		return nil
	}))
	req.Equal(1.0, restored)
}

func TestHost_FadeInReachesTarget(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}
	req.NoError(h.Play(ctx, src, "rain", 0, true))

	req.NoError(h.FadeIn(ctx, 1, 0.8, time.Second))
	advance(t, ctx, h, 500*time.Millisecond)
	req.InDelta(0.4*0.5, volumeOf(t, ctx, h, 1), 1e-9)

	advance(t, ctx, h, time.Second)
	req.InDelta(0.8*0.5, volumeOf(t, ctx, h, 1), 1e-9)
}

func TestHost_StopCancelsFade(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}
	req.NoError(h.Play(ctx, src, "rain", 1, true))
	req.NoError(h.FadeOut(ctx, 1, time.Second))

	req.NoError(h.Stop(ctx, 1))
	req.NoError(h.Play(ctx, src, "rain", 1, true))
	advance(t, ctx, h, 2*time.Second)

	req.InDelta(0.5, volumeOf(t, ctx, h, 1), 1e-9)
}

func TestHost_PlayDelayed(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}

	req.NoError(h.PlayDelayed(ctx, src, "bell", 1, false, time.Second))
	advance(t, ctx, h, 400*time.Millisecond)
	_, ok, err := h.Speakers(ctx, 1)
	req.NoError(err)
	req.False(ok)

	advance(t, ctx, h, 700*time.Millisecond)
	info, ok, err := h.Speakers(ctx, 1)
	req.NoError(err)
	req.True(ok)
	req.Equal(domain.ClipID("bell"), info[0].Clip)
}

func TestHost_DisconnectDropsDelayedPlay(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}

	req.NoError(h.PlayDelayed(ctx, src, "bell", 1, false, time.Second))
	req.NoError(h.Disconnect(ctx, 1))
	advance(t, ctx, h, 2*time.Second)

	_, ok, err := h.Speakers(ctx, 1)
	req.NoError(err)
	req.False(ok)
}

func TestHost_DoHonoursContext(t *testing.T) {
	m, err := propagation.NewManager(propagation.Options{Pool: pool.Options{Size: 1}}, &testutil.Factory{})
	require.NoError(t, err)
	h := New(m, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No loop is running, so the call can only end through ctx
	_, err = h.Stats(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHost_FadeOutEndDropsDelayedPlay(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}
	req.NoError(h.Play(ctx, src, "rain", 1, true))

	// Given a fade-out and a later play are both pending
	req.NoError(h.FadeOut(ctx, 1, time.Second))
	req.NoError(h.PlayDelayed(ctx, src, "bell", 1, false, 3*time.Second))

	// When the fade finishes and stops the source
	advance(t, ctx, h, 1100*time.Millisecond)

	// Then the delayed play is gone with it
	advance(t, ctx, h, 3*time.Second)
	_, ok, err := h.Speakers(ctx, 1)
	req.NoError(err)
	req.False(ok)
}

func TestHost_ImmediateFadeOutDropsDelayedPlay(t *testing.T) {
	req := require.New(t)
	h, ctx := startHost(t, 4)
	src := domain.SourceRef{ID: 1, Room: "hall"}
	req.NoError(h.Play(ctx, src, "rain", 1, true))
	req.NoError(h.PlayDelayed(ctx, src, "bell", 1, false, time.Second))

	req.NoError(h.FadeOut(ctx, 1, 0))
	advance(t, ctx, h, 2*time.Second)

	_, ok, err := h.Speakers(ctx, 1)
	req.NoError(err)
	req.False(ok)
}
