package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const sampleConfig = `
mode: test
port: 9090
step_interval: 10ms
pool:
  size: 12
  min_size: 10
  auto_grow: true
clips:
  default_duration: 4s
  catalogue:
    bell: 2s
anchors:
  door:
    x: 5
rooms:
  - name: hall
    gateways:
      - name: north
        dampening: 0.5
        target: {x: 1, y: 2, z: 3}
      - name: sliding
        anchor: Door
  - name: closet
    gateways:
      - name: vent
        target: {x: 0, y: 0, z: 0}
`

func TestLoadFile_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))

	req.NoError(err)
	req.Equal("release", cfg.Mode)
	req.Equal(8080, cfg.Port)
	req.Equal(50, cfg.Pool.Size)
	req.Equal(10, cfg.Pool.MinSize)
	req.False(cfg.Pool.AutoGrow)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(20*time.Millisecond, cfg.StepInterval)
	req.Equal(3*time.Second, cfg.Clips.DefaultDuration)
}

func TestLoadFile_ReadsRoomsAndPool(t *testing.T) {
	req := require.New(t)

	cfg, err := LoadFile(writeConfig(t, sampleConfig))

	req.NoError(err)
	req.Equal(9090, cfg.Port)
	req.Equal(12, cfg.Pool.Size)
	req.True(cfg.Pool.AutoGrow)
	req.Equal(2*time.Second, cfg.Clips.Catalogue["bell"])
	req.Len(cfg.Rooms, 2)
	req.Len(cfg.Rooms[0].Gateways, 2)
	req.Equal(0.5, *cfg.Rooms[0].Gateways[0].Dampening)
}

func TestLoadFile_RejectsPoolBelowFloor(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "pool:\n  size: 5\n  min_size: 10\n"))
	require.ErrorContains(t, err, "invalid config")
}

func TestLoadFile_RejectsDampeningOutOfRange(t *testing.T) {
	body := `
rooms:
  - name: hall
    gateways:
      - name: north
        dampening: 1.5
        target: {x: 1}
`
	_, err := LoadFile(writeConfig(t, body))
	require.ErrorContains(t, err, "Dampening")
}

func TestLoadFile_RejectsGatewayWithoutTarget(t *testing.T) {
	body := `
rooms:
  - name: hall
    gateways:
      - name: north
`
	_, err := LoadFile(writeConfig(t, body))
	require.Error(t, err)
}

func TestBuildRooms(t *testing.T) {
	req := require.New(t)
	cfg, err := LoadFile(writeConfig(t, sampleConfig))
	req.NoError(err)
	anchors := cfg.BuildAnchors()

	rooms, err := BuildRooms(cfg.Rooms, anchors)

	req.NoError(err)
	req.Len(rooms, 2)
	hall := rooms[0]
	req.Equal(domain.RoomName("hall"), hall.Name)
	req.Equal(domain.Position{X: 1, Y: 2, Z: 3}, hall.Gateways[0].Target.Resolve())
	req.Equal(domain.DefaultDampening, hall.Gateways[1].Dampening)

	// The anchored gateway follows its anchor
	req.Equal(domain.Position{X: 5}, hall.Gateways[1].Target.Resolve())
	anchors["door"].MoveTo(domain.Position{X: 7})
	req.Equal(domain.Position{X: 7}, hall.Gateways[1].Target.Resolve())
}

func TestBuildRooms_UnknownAnchor(t *testing.T) {
	_, err := BuildRooms([]RoomConfig{{
		Name:     "hall",
		Gateways: []GatewayConfig{{Name: "north", Anchor: "ghost"}},
	}}, nil)
	require.ErrorIs(t, err, core.ErrInvalidGateway)
}
