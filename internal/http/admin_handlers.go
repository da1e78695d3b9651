package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/service"
	"github.com/licitabrasil/licita-api/internal/storage"
)

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	CPF      string `json:"cpf"`
	Role     string `json:"role" binding:"required"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type settingRequest struct {
	Value *string `json:"value" binding:"required"`
}

type broadcastRequest struct {
	Role     string `json:"role" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority"`
}

func (h *Handler) dashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	dashboard, err := h.svc.Reports.Dashboard(c.Request.Context(), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *Handler) listUsers(c *gin.Context) {
	p := pagination(c)
	filter := model.UserFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if raw := c.Query("role"); raw != "" {
		role, valid := model.ParseRole(raw)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		filter.Role = &role
	}
	active, ok := queryBool(c, "active")
	if !ok {
		return
	}
	filter.Active = active

	items, total, err := h.svc.Users.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.Users.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	role, valid := model.ParseRole(req.Role)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	user, err := h.svc.Users.Create(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		CPF:      req.CPF,
		Role:     role,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionUserCreate, "user", &user.ID, datatypes.JSONMap{"role": user.Role, "email": user.Email})
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) updateUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	input := service.UpdateUserInput{Name: req.Name, IsActive: req.IsActive}
	if req.Role != nil {
		role, valid := model.ParseRole(*req.Role)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		input.Role = &role
	}

	user, err := h.svc.Users.Update(c.Request.Context(), p, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionUserUpdate, "user", &user.ID, datatypes.JSONMap{"role": user.Role, "is_active": user.IsActive})
	c.JSON(http.StatusOK, user)
}

func (h *Handler) setUserActive(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Users.SetActive(c.Request.Context(), p, id, *req.Active)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionUserUpdate, "user", &user.ID, datatypes.JSONMap{"is_active": user.IsActive})
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Users.Delete(c.Request.Context(), p, id); err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionUserDelete, "user", &id, nil)
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAuditLogs(c *gin.Context) {
	pr, ok := principal(c)
	if !ok {
		return
	}
	p := pagination(c)
	filter := model.AuditFilter{
		Action: strings.ToUpper(strings.TrimSpace(c.Query("action"))),
		Entity: strings.ToLower(strings.TrimSpace(c.Query("entity"))),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if filter.UserID, ok = queryUUID(c, "user_id"); !ok {
		return
	}
	if filter.From, ok = queryDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = queryDate(c, "to"); !ok {
		return
	}

	items, total, err := h.svc.Audit.List(c.Request.Context(), pr, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) biddingReport(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	from, err := parseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}
	input := service.BiddingReportInput{From: from, To: to, Format: c.Query("format")}
	if raw := c.Query("status"); raw != "" {
		status, valid := model.ParseBiddingStatus(raw)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		input.Status = &status
	}

	file, err := h.svc.Reports.BiddingReport(c.Request.Context(), p, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", storage.ContentDisposition(file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func (h *Handler) listSettings(c *gin.Context) {
	settings, err := h.svc.Settings.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	if settings == nil {
		settings = []model.Setting{}
	}
	c.JSON(http.StatusOK, gin.H{"items": settings, "total": len(settings)})
}

func (h *Handler) updateSetting(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	var req settingRequest
	if !bindJSON(c, &req) {
		return
	}
	setting, err := h.svc.Settings.Update(c.Request.Context(), p, key, *req.Value)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionSettingUpdate, "setting", nil, datatypes.JSONMap{"key": setting.Key, "value": setting.Value})
	c.JSON(http.StatusOK, setting)
}

func (h *Handler) broadcast(c *gin.Context) {
	var req broadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	role, valid := model.ParseRole(req.Role)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	priority := model.Priority(strings.ToUpper(strings.TrimSpace(req.Priority)))
	if priority != "" && !model.ValidPriority(priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	sent, err := h.svc.Notifications.BroadcastToRole(c.Request.Context(), role, req.Title, req.Message, priority)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
