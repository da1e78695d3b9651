package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/http/middleware"
	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/realtime"
	"github.com/licitabrasil/licita-api/internal/service"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Biddings      *service.BiddingService
	Proposals     *service.ProposalService
	Contracts     *service.ContractService
	Suppliers     *service.SupplierService
	Entities      *service.PublicEntityService
	Notifications *service.NotificationService
	Reports       *service.ReportService
	Settings      *service.SettingsService
	Audit         *service.AuditService
}

type Handler struct {
	svc Services
	hub *realtime.Hub
	log zerolog.Logger
}

func NewHandler(services Services, hub *realtime.Hub, log zerolog.Logger) *Handler {
	return &Handler{
		svc: services,
		hub: hub,
		log: log.With().Str("component", "http").Logger(),
	}
}

// Register mounts the /api/v1 routes. Every protected route expects a bearer
// token readable by parser.
func (h *Handler) Register(router *gin.Engine, parser middleware.TokenParser) {
	authRequired := middleware.Auth(parser)
	authOptional := middleware.OptionalAuth(parser)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)
	inspectors := middleware.RequireRoles(model.RoleAdmin, model.RoleAuditor)

	api := router.Group("/api/v1")
	api.GET("/health", h.health)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/me", authRequired, h.me)
	authGroup.POST("/change-password", authRequired, h.changePassword)

	biddings := api.Group("/biddings")
	biddings.GET("", authOptional, h.listBiddings)
	biddings.GET("/:id", authOptional, h.getBidding)
	biddings.POST("", authRequired, h.createBidding)
	biddings.PUT("/:id", authRequired, h.updateBidding)
	biddings.PATCH("/:id/status", authRequired, h.changeBiddingStatus)
	biddings.POST("/:id/award", authRequired, h.awardBidding)
	biddings.POST("/:id/document", authRequired, h.uploadDocument)
	biddings.GET("/:id/document", authOptional, h.downloadDocument)
	biddings.GET("/:id/proposals", authRequired, h.listBiddingProposals)
	biddings.POST("/:id/proposals", authRequired, h.submitProposal)

	proposals := api.Group("/proposals", authRequired)
	proposals.GET("/mine", h.myProposals)
	proposals.PATCH("/:id/status", h.changeProposalStatus)
	proposals.POST("/:id/withdraw", h.withdrawProposal)

	suppliers := api.Group("/suppliers", authRequired)
	suppliers.GET("", h.listSuppliers)
	suppliers.GET("/profile", h.mySupplierProfile)
	suppliers.POST("/profile", h.createSupplierProfile)
	suppliers.PUT("/profile", h.updateSupplierProfile)
	suppliers.GET("/:id", h.getSupplier)
	suppliers.PATCH("/:id/verify", adminOnly, h.verifySupplier)

	entities := api.Group("/public-entities", authRequired)
	entities.GET("", h.listPublicEntities)
	entities.GET("/profile", h.myPublicEntityProfile)
	entities.POST("/profile", h.createPublicEntityProfile)
	entities.PUT("/profile", h.updatePublicEntityProfile)
	entities.GET("/:id", h.getPublicEntity)
	entities.PATCH("/:id/verify", adminOnly, h.verifyPublicEntity)

	contracts := api.Group("/contracts", authRequired)
	contracts.GET("", h.listContracts)
	contracts.GET("/:id", h.getContract)
	contracts.PATCH("/:id/status", h.changeContractStatus)

	notifications := api.Group("/notifications", authRequired)
	notifications.GET("", h.listNotifications)
	notifications.GET("/stats", h.notificationStats)
	notifications.PATCH("/read-all", h.markAllNotificationsRead)
	notifications.PATCH("/:id/read", h.markNotificationRead)
	notifications.DELETE("/:id", h.deleteNotification)

	admin := api.Group("/admin", authRequired)
	admin.GET("/dashboard", inspectors, h.dashboard)
	admin.GET("/audit-logs", inspectors, h.listAuditLogs)
	admin.GET("/users", adminOnly, h.listUsers)
	admin.POST("/users", adminOnly, h.createUser)
	admin.GET("/users/:id", adminOnly, h.getUser)
	admin.PUT("/users/:id", adminOnly, h.updateUser)
	admin.DELETE("/users/:id", adminOnly, h.deleteUser)
	admin.PATCH("/users/:id/active", adminOnly, h.setUserActive)
	admin.GET("/reports/biddings", adminOnly, h.biddingReport)
	admin.GET("/settings", adminOnly, h.listSettings)
	admin.PUT("/settings/:key", adminOnly, h.updateSetting)
	admin.POST("/notifications/broadcast", adminOnly, h.broadcast)

	api.GET("/ws", authRequired, h.websocket)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("request_id", middleware.GetRequestID(c)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// principal aborts with 401 when the route lost its authenticated caller.
func principal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return p, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

type page struct {
	Limit  int
	Offset int
}

func pagination(c *gin.Context) page {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return page{Limit: limit, Offset: offset}
}

func respondList[T any](c *gin.Context, items []T, total int64, p page) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// respondPage pages a list the service returns whole.
func respondPage[T any](c *gin.Context, items []T, p page) {
	total := len(items)
	start := min(p.Offset, total)
	end := min(start+p.Limit, total)
	respondList(c, items[start:end], int64(total), p)
}

func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &value, true
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &id, true
}

func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	parsed, err := parseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &parsed, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

// audit records an action on behalf of the caller. Nothing is returned:
// the audit trail never fails a request.
func (h *Handler) audit(c *gin.Context, userID *uuid.UUID, action, entity string, entityID *uuid.UUID, details datatypes.JSONMap) {
	if h.svc.Audit == nil {
		return
	}
	if userID == nil {
		if p, ok := middleware.MustPrincipal(c); ok {
			id := p.UserID
			userID = &id
		}
	}
	h.svc.Audit.Record(c.Request.Context(), service.AuditEntry{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}

func (h *Handler) health(c *gin.Context) {
	body := gin.H{"status": "ok", "time": time.Now().UTC()}
	if h.hub != nil {
		body["connections"] = h.hub.Connections()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) websocket(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime channel disabled"})
		return
	}
	h.hub.Serve(c.Writer, c.Request, p)
}
