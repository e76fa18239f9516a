package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/notification-engine/internal/classify"
	"github.com/nhle/notification-engine/internal/engine"
	"github.com/nhle/notification-engine/internal/model"
	"github.com/nhle/notification-engine/internal/notify"
	appsync "github.com/nhle/notification-engine/internal/sync"
)

// defaultRecentLimit is used when /recent is called without a limit.
const defaultRecentLimit = 10

// ChatSink accepts chat messages posted over HTTP.
type ChatSink interface {
	Append(conversationID string, msg model.ChatMessage) model.ChatMessage
}

// MailStatus reports and triggers mail polling.
type MailStatus interface {
	Statuses() []appsync.SyncStatus
	RefreshAll()
}

// Handler serves the engine's read/write surface as JSON.
type Handler struct {
	engine *engine.Engine
	chats  ChatSink
	mail   MailStatus
	logger *slog.Logger
}

// NewHandler creates a handler. chats and mail may be nil; their routes
// then answer 503.
func NewHandler(e *engine.Engine, chats ChatSink, mail MailStatus, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{engine: e, chats: chats, mail: mail, logger: logger}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	n := r.Group("/notifications")
	{
		n.GET("", h.listNotifications)
		n.GET("/recent", h.recent)
		n.GET("/unread-count", h.unreadCount)
		n.GET("/stats", h.stats)
		n.GET("/:id", h.getNotification)
		n.GET("/:id/route", h.route)

		n.POST("", h.addNotification)
		n.POST("/ingest", h.ingest)
		n.POST("/read-all", h.markAllRead)
		n.POST("/sweep", h.sweep)
		n.POST("/:id/read", h.markRead)
		n.POST("/:id/pin", h.togglePin)
		n.POST("/:id/archive", h.toggleArchive)
		n.DELETE("/:id", h.deleteNotification)
	}

	u := r.Group("/users/:user/settings")
	{
		u.GET("/:category", h.getSettings)
		u.PATCH("/:category", h.updateSettings)
		u.DELETE("", h.resetSettings)
	}

	p := r.Group("/permissions/:role")
	{
		p.GET("/:category", h.getPermission)
		p.PATCH("/:category", h.updatePermission)
	}

	r.POST("/chat/:conversation/messages", h.postChatMessage)

	r.GET("/mail/status", h.mailStatus)
	r.POST("/mail/refresh", h.mailRefresh)
}

func badRequest(c *gin.Context, format string, args ...any) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

// === Notifications ===

func (h *Handler) listNotifications(c *gin.Context) {
	var f notify.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "invalid query: %v", err)
		return
	}
	if f.Category != "" && !f.Category.Valid() {
		badRequest(c, "unknown category %q", f.Category)
		return
	}
	if f.Priority != "" && !f.Priority.Valid() {
		badRequest(c, "unknown priority %q", f.Priority)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": h.engine.Filtered(f)})
}

func (h *Handler) recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid limit %q", raw)
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"notifications": h.engine.Recent(limit)})
}

func (h *Handler) unreadCount(c *gin.Context) {
	cat := model.Category(c.Query("category"))
	if cat == "" {
		c.JSON(http.StatusOK, gin.H{"unread": h.engine.UnreadCount()})
		return
	}
	if !cat.Valid() {
		badRequest(c, "unknown category %q", cat)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category": cat,
		"unread":   h.engine.UnreadCountByCategory(cat),
	})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

func (h *Handler) getNotification(c *gin.Context) {
	n, ok := h.engine.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) route(c *gin.Context) {
	d, ok := h.engine.Route(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) addNotification(c *gin.Context) {
	var d model.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	if err := validateDraft(d); err != nil {
		badRequest(c, "%v", err)
		return
	}

	c.JSON(http.StatusCreated, h.engine.AddNotification(d))
}

func validateDraft(d model.Draft) error {
	switch {
	case !d.Category.Valid():
		return fmt.Errorf("unknown category %q", d.Category)
	case d.Type != "" && !d.Type.Valid():
		return fmt.Errorf("unknown type %q", d.Type)
	case d.Priority != "" && !d.Priority.Valid():
		return fmt.Errorf("unknown priority %q", d.Priority)
	case d.RelatedEntityType != "" && !d.RelatedEntityType.Valid():
		return fmt.Errorf("unknown related entity type %q", d.RelatedEntityType)
	case strings.TrimSpace(d.UserID) == "":
		return fmt.Errorf("user_id is required")
	}
	return nil
}

type ingestRequest struct {
	UserID  string       `json:"user_id" binding:"required"`
	Origin  model.Origin `json:"origin"`
	Subject string       `json:"subject"`
	Content string       `json:"content"`
	Sender  string       `json:"sender"`
}

func (h *Handler) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	switch req.Origin {
	case "":
		req.Origin = model.OriginMail
	case model.OriginChat, model.OriginMail, model.OriginSystem:
	default:
		badRequest(c, "unknown origin %q", req.Origin)
		return
	}

	n, r := h.engine.Ingest(req.UserID, model.RawMessage{
		Subject: req.Subject,
		Content: req.Content,
		Sender:  req.Sender,
	}, req.Origin)

	c.JSON(http.StatusCreated, gin.H{
		"notification":   n,
		"classification": r,
		"auto_response":  classify.AutoResponse(r.Category),
	})
}

func (h *Handler) markRead(c *gin.Context) {
	h.engine.MarkRead(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) markAllRead(c *gin.Context) {
	h.engine.MarkAllRead()
	c.Status(http.StatusNoContent)
}

func (h *Handler) togglePin(c *gin.Context) {
	h.engine.TogglePin(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleArchive(c *gin.Context) {
	h.engine.ToggleArchive(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteNotification(c *gin.Context) {
	h.engine.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) sweep(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.engine.ClearExpired()})
}

// === Settings ===

// categoryParam reads and validates the :category path parameter.
func categoryParam(c *gin.Context) (model.Category, bool) {
	cat := model.Category(c.Param("category"))
	if !cat.Valid() {
		badRequest(c, "unknown category %q", cat)
		return "", false
	}
	return cat, true
}

// permissionParams reads and validates the :role and :category pair.
func permissionParams(c *gin.Context) (model.Role, model.Category, bool) {
	role := model.Role(c.Param("role"))
	if !role.Valid() {
		badRequest(c, "unknown role %q", role)
		return "", "", false
	}
	cat, ok := categoryParam(c)
	return role, cat, ok
}

func (h *Handler) getSettings(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}
	s := h.engine.GetSettings(c.Param("user"), cat)
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "settings not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) updateSettings(c *gin.Context) {
	cat, ok := categoryParam(c)
	if !ok {
		return
	}

	var patch model.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}
	if err := validateSettingsPatch(patch); err != nil {
		badRequest(c, "%v", err)
		return
	}

	c.JSON(http.StatusOK, h.engine.UpdateSettings(c.Param("user"), cat, patch))
}

func validateSettingsPatch(p model.SettingsPatch) error {
	if p.Frequency != nil && !p.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", *p.Frequency)
	}
	if qh := p.QuietHours; qh != nil {
		for _, v := range []string{qh.Start, qh.End} {
			if _, err := time.Parse("15:04", v); err != nil {
				return fmt.Errorf("quiet hours time %q must be HH:MM", v)
			}
		}
		if qh.Timezone != "" {
			if _, err := time.LoadLocation(qh.Timezone); err != nil {
				return fmt.Errorf("unknown timezone %q", qh.Timezone)
			}
		}
	}
	return nil
}

func (h *Handler) resetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.engine.ResetSettings(c.Param("user"))})
}

// === Permissions ===

func (h *Handler) getPermission(c *gin.Context) {
	role, cat, ok := permissionParams(c)
	if !ok {
		return
	}
	p := h.engine.GetPermission(role, cat)
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "permission not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) updatePermission(c *gin.Context) {
	role, cat, ok := permissionParams(c)
	if !ok {
		return
	}

	var patch model.PermissionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	c.JSON(http.StatusOK, h.engine.UpdatePermission(role, cat, patch))
}

// === Upstream ===

type chatMessageRequest struct {
	SenderID   string `json:"sender_id" binding:"required"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text" binding:"required"`
}

func (h *Handler) postChatMessage(c *gin.Context) {
	if h.chats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not enabled"})
		return
	}

	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: %v", err)
		return
	}

	msg := h.chats.Append(c.Param("conversation"), model.ChatMessage{
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		Text:       req.Text,
	})
	c.JSON(http.StatusCreated, msg)
}

type mailStatusResponse struct {
	MailboxID string    `json:"mailbox_id"`
	State     string    `json:"state"`
	LastSync  time.Time `json:"last_sync"`
	Error     string    `json:"error,omitempty"`
}

func (h *Handler) mailStatus(c *gin.Context) {
	if h.mail == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mail polling is not enabled"})
		return
	}

	statuses := h.mail.Statuses()
	out := make([]mailStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		r := mailStatusResponse{
			MailboxID: s.MailboxID,
			State:     s.State.String(),
			LastSync:  s.LastSync,
		}
		if s.Error != nil {
			r.Error = s.Error.Error()
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, gin.H{"mailboxes": out})
}

func (h *Handler) mailRefresh(c *gin.Context) {
	if h.mail == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mail polling is not enabled"})
		return
	}
	h.mail.RefreshAll()
	c.Status(http.StatusAccepted)
}
