package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/service"
)

type supplierProfileRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	TradeName   string `json:"trade_name"`
	CNPJ        string `json:"cnpj" binding:"required"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state" binding:"required"`
}

func (r supplierProfileRequest) toInput() service.SupplierProfileInput {
	return service.SupplierProfileInput{
		CompanyName: r.CompanyName,
		TradeName:   r.TradeName,
		CNPJ:        r.CNPJ,
		Phone:       r.Phone,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
	}
}

type publicEntityProfileRequest struct {
	Name   string `json:"name" binding:"required"`
	CNPJ   string `json:"cnpj" binding:"required"`
	Sphere string `json:"sphere" binding:"required"`
	City   string `json:"city"`
	State  string `json:"state" binding:"required"`
	Phone  string `json:"phone"`
}

func (r publicEntityProfileRequest) toInput() service.PublicEntityProfileInput {
	return service.PublicEntityProfileInput{
		Name:   r.Name,
		CNPJ:   r.CNPJ,
		Sphere: model.Sphere(strings.ToUpper(strings.TrimSpace(r.Sphere))),
		City:   r.City,
		State:  r.State,
		Phone:  r.Phone,
	}
}

type verifyRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

func organizationFilter(c *gin.Context, p page) (model.OrganizationFilter, bool) {
	verified, ok := queryBool(c, "verified")
	if !ok {
		return model.OrganizationFilter{}, false
	}
	return model.OrganizationFilter{
		Verified: verified,
		State:    strings.ToUpper(strings.TrimSpace(c.Query("state"))),
		Search:   strings.TrimSpace(c.Query("search")),
		Limit:    p.Limit,
		Offset:   p.Offset,
	}, true
}

func (h *Handler) listSuppliers(c *gin.Context) {
	p := pagination(c)
	filter, ok := organizationFilter(c, p)
	if !ok {
		return
	}
	items, total, err := h.svc.Suppliers.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) getSupplier(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	supplier, err := h.svc.Suppliers.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *Handler) mySupplierProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	supplier, err := h.svc.Suppliers.Mine(c.Request.Context(), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *Handler) createSupplierProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req supplierProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := h.svc.Suppliers.CreateProfile(c.Request.Context(), p, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func (h *Handler) updateSupplierProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req supplierProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := h.svc.Suppliers.UpdateProfile(c.Request.Context(), p, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func (h *Handler) verifySupplier(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := h.svc.Suppliers.Verify(c.Request.Context(), p, id, *req.Verified)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionSupplierVerify, "supplier", &supplier.ID, datatypes.JSONMap{"verified": *req.Verified})
	c.JSON(http.StatusOK, supplier)
}

func (h *Handler) listPublicEntities(c *gin.Context) {
	p := pagination(c)
	filter, ok := organizationFilter(c, p)
	if !ok {
		return
	}
	items, total, err := h.svc.Entities.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) getPublicEntity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entity, err := h.svc.Entities.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (h *Handler) myPublicEntityProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	entity, err := h.svc.Entities.Mine(c.Request.Context(), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (h *Handler) createPublicEntityProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req publicEntityProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	entity, err := h.svc.Entities.CreateProfile(c.Request.Context(), p, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entity)
}

func (h *Handler) updatePublicEntityProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req publicEntityProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	entity, err := h.svc.Entities.UpdateProfile(c.Request.Context(), p, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (h *Handler) verifyPublicEntity(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	entity, err := h.svc.Entities.Verify(c.Request.Context(), p, id, *req.Verified)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionEntityVerify, "public_entity", &entity.ID, datatypes.JSONMap{"verified": *req.Verified})
	c.JSON(http.StatusOK, entity)
}
