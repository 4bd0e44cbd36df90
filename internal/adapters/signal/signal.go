package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/propagation/internal/app"
	"github.com/dkeye/propagation/internal/app/orch"
	"github.com/dkeye/propagation/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is a raw websocket text payload.
type Frame []byte

// ControlWSController serves every control socket. One instance is shared by
// all connections so bind limits hold across reconnects.
type ControlWSController struct {
	Orch    *orch.Orchestrator
	Policy  app.Policy
	Limiter *BindRateLimiter
	// CleanupWait bounds the removal of a departed owner's sources.
	CleanupWait time.Duration
	cfg         *config.Config
}

func NewControlWSController(o *orch.Orchestrator, cfg *config.Config) *ControlWSController {
	return &ControlWSController{
		Orch:        o,
		Policy:      app.SimplePolicy{MaxDropped: 8},
		Limiter:     NewBindRateLimiter(cfg.BindLimit, cfg.BindInterval),
		CleanupWait: writeWait,
		cfg:         cfg,
	}
}

type wsControlConn struct {
	conn *websocket.Conn
	send chan Frame

	mu      sync.RWMutex
	closed  bool
	dropped int
}

func (c *wsControlConn) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsControlConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleControl upgrades the request and serves commands until the socket
// closes. Sources bound through the socket are removed when it goes away.
func (ctl *ControlWSController) HandleControl(ctx context.Context, c *gin.Context) {
	owner := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("owner", owner).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &wsControlConn{
		conn: ws,
		send: make(chan Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, owner, conn)
		ctl.ownerGone(ctx, owner)
	}()
}

// ownerGone removes the owner's sources. It outlives ctx so a closing server
// still releases speakers, but gives up after CleanupWait once the host loop
// has stopped.
func (ctl *ControlWSController) ownerGone(ctx context.Context, owner string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ctl.CleanupWait)
	defer cancel()
	ctl.Orch.OnOwnerGone(ctx, owner)
}
