package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dkeye/propagation/internal/app"
	"github.com/dkeye/propagation/internal/app/orch"
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch *orch.Orchestrator
}

type bindRequest struct {
	Room string `json:"room" binding:"required"`
}

type playRequest struct {
	Clip    string   `json:"clip" binding:"required"`
	Volume  *float64 `json:"volume" binding:"omitempty,gte=0,lte=1"`
	Loop    bool     `json:"loop"`
	DelayMS int64    `json:"delay_ms" binding:"gte=0"`
}

type fadeRequest struct {
	Volume     *float64 `json:"volume" binding:"omitempty,gte=0,lte=1"`
	DurationMS int64    `json:"duration_ms" binding:"gte=0"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume" binding:"required,gte=0,lte=1"`
}

type clipRequest struct {
	Clip string `json:"clip" binding:"required"`
}

func volumeOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func sourceID(c *gin.Context) (domain.SourceID, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source id"})
		return 0, false
	}
	return domain.SourceID(id), true
}

// writeError maps propagation errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrExhausted):
		status = http.StatusServiceUnavailable
	case errors.Is(err, orch.ErrUnknownSource):
		status = http.StatusNotFound
	case errors.Is(err, orch.ErrNoSuchRoom):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrSourceTaken):
		status = http.StatusConflict
	case errors.Is(err, core.ErrConfiguration):
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("configuration error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handlers) rooms(c *gin.Context) {
	rooms, err := h.orch.Rooms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *handlers) stats(c *gin.Context) {
	st, err := h.orch.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) moveAnchor(c *gin.Context) {
	var pos domain.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.orch.MoveAnchor(c.Param("name"), pos) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown anchor"})
		return
	}
	c.Status(http.StatusNoContent)
}

// bind serves both POST /sources (new id) and POST /sources/:id/bind.
func (h *handlers) bind(c *gin.Context) {
	var id domain.SourceID
	if c.Param("id") != "" {
		var ok bool
		if id, ok = sourceID(c); !ok {
			return
		}
	}
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.orch.Bind(c.Request.Context(), id, domain.RoomName(req.Room), c.GetString(clientTokenKey))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "room": req.Room})
}

func (h *handlers) move(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req bindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.Move(c.Request.Context(), id, domain.RoomName(req.Room)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) speakers(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	info, err := h.orch.Speakers(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "connected": info != nil, "speakers": info})
}

func (h *handlers) remove(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	if err := h.orch.Remove(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) play(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.Play(c.Request.Context(), id, domain.ClipID(req.Clip), volumeOr(req.Volume, 1), req.Loop); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) playOneShot(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.PlayOneShot(c.Request.Context(), id, domain.ClipID(req.Clip), volumeOr(req.Volume, 1)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) playDelayed(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delay := time.Duration(req.DelayMS) * time.Millisecond
	if err := h.orch.PlayDelayed(c.Request.Context(), id, domain.ClipID(req.Clip), volumeOr(req.Volume, 1), req.Loop, delay); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *handlers) stop(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	if err := h.orch.Stop(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) fadeOut(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req fadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.FadeOut(c.Request.Context(), id, time.Duration(req.DurationMS)*time.Millisecond); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *handlers) fadeIn(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req fadeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d := time.Duration(req.DurationMS) * time.Millisecond
	if err := h.orch.FadeIn(c.Request.Context(), id, volumeOr(req.Volume, 1), d); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *handlers) volume(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.SetVolume(c.Request.Context(), id, *req.Volume); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) clip(c *gin.Context) {
	id, ok := sourceID(c)
	if !ok {
		return
	}
	var req clipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.SetClip(c.Request.Context(), id, domain.ClipID(req.Clip)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
