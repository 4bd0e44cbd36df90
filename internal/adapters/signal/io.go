package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/propagation/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *ControlWSController) writePump(ctx context.Context, c *wsControlConn) {
	ping := time.NewTicker(ctl.cfg.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Info().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *ControlWSController) readPump(ctx context.Context, owner string, c *wsControlConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("owner", owner).Msg("readPump closing")
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("owner", owner).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("owner", owner).Msg("readPump read error")
				}
				return
			}
			if !ctl.sendJSON(owner, c, ctl.handleCommand(ctx, owner, data)) {
				return
			}
		}
	}
}

// sendJSON queues v for the write pump. It returns false when the client
// should be disconnected.
func (ctl *ControlWSController) sendJSON(owner string, c *wsControlConn, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return true
	}
	switch err := c.TrySend(b); {
	case err == nil:
		c.dropped = 0
		return true
	case errors.Is(err, ErrClosed):
		return false
	default:
		c.dropped++
		action := ctl.Policy.OnBackPressure(owner, c.dropped)
		log.Warn().Err(err).Str("module", "signal").Str("owner", owner).Int("dropped", c.dropped).Msg("sendJSON dropped")
		return action != app.KickOwner
	}
}
