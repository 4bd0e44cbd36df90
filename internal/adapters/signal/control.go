package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/propagation/internal/app"
	"github.com/dkeye/propagation/internal/app/orch"
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/rs/zerolog/log"
)

// command is the envelope of every control frame. Fields a type does not use
// are ignored.
type command struct {
	Type       string          `json:"type"`
	Seq        int64           `json:"seq,omitempty"`
	Source     domain.SourceID `json:"source,omitempty"`
	Room       string          `json:"room,omitempty"`
	Clip       string          `json:"clip,omitempty"`
	Volume     *float64        `json:"volume,omitempty"`
	Loop       bool            `json:"loop,omitempty"`
	DelayMS    int64           `json:"delay_ms,omitempty"`
	DurationMS int64           `json:"duration_ms,omitempty"`
}

type reply struct {
	Type   string          `json:"type"`
	Seq    int64           `json:"seq,omitempty"`
	Source domain.SourceID `json:"source,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   any             `json:"data,omitempty"`
}

func (c command) volume() float64 {
	if c.Volume == nil {
		return 1
	}
	return *c.Volume
}

func (ctl *ControlWSController) handleCommand(ctx context.Context, owner string, data []byte) reply {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return reply{Type: "error", Error: "bad_payload"}
	}

	o := ctl.Orch
	var (
		err    error
		result any
	)
	switch cmd.Type {
	case "ping":
		return reply{Type: "pong", Seq: cmd.Seq}
	case "bind":
		if !ctl.Limiter.Allow(owner) {
			log.Warn().Str("module", "signal").Str("owner", owner).Msg("bind rate limited")
			return reply{Type: "error", Seq: cmd.Seq, Error: "rate_limited"}
		}
		cmd.Source, err = o.Bind(ctx, cmd.Source, domain.RoomName(cmd.Room), owner)
	case "move":
		err = o.Move(ctx, cmd.Source, domain.RoomName(cmd.Room))
	case "play":
		err = o.Play(ctx, cmd.Source, domain.ClipID(cmd.Clip), cmd.volume(), cmd.Loop)
	case "play_one_shot":
		err = o.PlayOneShot(ctx, cmd.Source, domain.ClipID(cmd.Clip), cmd.volume())
	case "play_delayed":
		err = o.PlayDelayed(ctx, cmd.Source, domain.ClipID(cmd.Clip), cmd.volume(), cmd.Loop, time.Duration(cmd.DelayMS)*time.Millisecond)
	case "stop":
		err = o.Stop(ctx, cmd.Source)
	case "fade_out":
		err = o.FadeOut(ctx, cmd.Source, time.Duration(cmd.DurationMS)*time.Millisecond)
	case "fade_in":
		err = o.FadeIn(ctx, cmd.Source, cmd.volume(), time.Duration(cmd.DurationMS)*time.Millisecond)
	case "volume":
		err = o.SetVolume(ctx, cmd.Source, cmd.volume())
	case "clip":
		err = o.SetClip(ctx, cmd.Source, domain.ClipID(cmd.Clip))
	case "disconnect":
		err = o.Remove(ctx, cmd.Source)
	case "stats":
		result, err = o.Stats(ctx)
		if err == nil {
			return reply{Type: "stats", Seq: cmd.Seq, Data: result}
		}
	case "speakers":
		result, err = o.Speakers(ctx, cmd.Source)
		if err == nil {
			return reply{Type: "speakers", Seq: cmd.Seq, Source: cmd.Source, Data: result}
		}
	case "rooms":
		result, err = o.Rooms(ctx)
		if err == nil {
			return reply{Type: "rooms", Seq: cmd.Seq, Data: result}
		}
	default:
		log.Warn().Str("module", "signal").Str("type", cmd.Type).Msg("unknown command")
		return reply{Type: "error", Seq: cmd.Seq, Error: "unknown_type"}
	}

	switch {
	case err == nil:
		return reply{Type: "ack", Seq: cmd.Seq, Source: cmd.Source}
	case errors.Is(err, core.ErrExhausted):
		return reply{Type: "dropped", Seq: cmd.Seq, Source: cmd.Source, Error: err.Error()}
	case errors.Is(err, orch.ErrUnknownSource), errors.Is(err, orch.ErrNoSuchRoom), errors.Is(err, app.ErrSourceTaken):
		return reply{Type: "error", Seq: cmd.Seq, Source: cmd.Source, Error: err.Error()}
	default:
		log.Error().Err(err).Str("module", "signal").Str("type", cmd.Type).Uint64("source", uint64(cmd.Source)).Msg("command failed")
		return reply{Type: "error", Seq: cmd.Seq, Source: cmd.Source, Error: err.Error()}
	}
}
