package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/s-hiraoku/termsession/internal/session"
	"github.com/s-hiraoku/termsession/internal/types"
)

// Bridge is the surface link as seen by the API.
type Bridge interface {
	Connected() bool
}

// Workspace is the terminal manager as seen by the API.
type Workspace interface {
	GetTerminals() []types.TerminalInfo
	GetActiveTerminalID() string
	CreateTerminalAt(ctx context.Context, cwd string) (string, error)
	CloseTerminal(terminalID string) error
	SetActiveTerminal(terminalID string) error
	RenameTerminal(terminalID, name string) error
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	coord     *session.Coordinator
	terminals Workspace
	bridge    Bridge
}

// NewHandlers creates a new handler set.
func NewHandlers(coord *session.Coordinator, terminals Workspace, bridge Bridge) *Handlers {
	return &Handlers{
		coord:     coord,
		terminals: terminals,
		bridge:    bridge,
	}
}

// Root handles the basic liveness check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "termsession",
	})
}

// Health handles the detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"state":     h.coord.State().String(),
		"terminals": len(h.terminals.GetTerminals()),
		"surface":   gin.H{"connected": h.bridge.Connected()},
	})
}

// SaveSession triggers an immediate session save. With ?cached=true the
// save uses cached scrollback only and skips live extraction.
func (h *Handlers) SaveSession(c *gin.Context) {
	preferCache, _ := strconv.ParseBool(c.Query("cached"))

	result := h.coord.Save(c.Request.Context(), session.SaveOptions{PreferCache: preferCache})
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// RestoreSession restores the stored session. With ?force=true the
// existing-terminals guard is bypassed.
func (h *Handlers) RestoreSession(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))

	result := h.coord.Restore(c.Request.Context(), force)
	status := http.StatusOK
	if !result.Success {
		switch {
		case session.IsRestoreGuard(result.Message):
			status = http.StatusConflict
		case result.Message == session.MsgNoSession:
			status = http.StatusNotFound
		default:
			status = http.StatusUnprocessableEntity
		}
	}
	c.JSON(status, result)
}

// GetSessionInfo reports the stored record's diagnostic view.
func (h *Handlers) GetSessionInfo(c *gin.Context) {
	info, err := h.coord.SessionInfo()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ClearSession deletes the stored record.
func (h *Handlers) ClearSession(c *gin.Context) {
	if err := h.coord.ClearSession(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListTerminals lists the live workspace in display order.
func (h *Handlers) ListTerminals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"terminals": h.terminals.GetTerminals(),
		"active":    h.terminals.GetActiveTerminalID(),
	})
}

// CreateTerminal spawns a new terminal, optionally at a working
// directory.
func (h *Handlers) CreateTerminal(c *gin.Context) {
	var req struct {
		Cwd string `json:"cwd"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	id, err := h.terminals.CreateTerminalAt(c.Request.Context(), req.Cwd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// CloseTerminal kills a terminal and removes it from the workspace.
func (h *Handlers) CloseTerminal(c *gin.Context) {
	id := c.Param("id")
	if err := h.terminals.CloseTerminal(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// FocusTerminal moves workspace focus.
func (h *Handlers) FocusTerminal(c *gin.Context) {
	id := c.Param("id")
	if err := h.terminals.SetActiveTerminal(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// RenameTerminal sets a terminal's display name.
func (h *Handlers) RenameTerminal(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.terminals.RenameTerminal(id, req.Name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}
