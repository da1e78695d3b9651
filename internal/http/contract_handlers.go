package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/licitabrasil/licita-api/internal/model"
)

type contractStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) listContracts(c *gin.Context) {
	pr, ok := principal(c)
	if !ok {
		return
	}
	p := pagination(c)
	filter := model.ContractFilter{Limit: p.Limit, Offset: p.Offset}
	if raw := c.Query("status"); raw != "" {
		status, valid := model.ParseContractStatus(raw)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	if filter.SupplierID, ok = queryUUID(c, "supplier_id"); !ok {
		return
	}
	if filter.PublicEntityID, ok = queryUUID(c, "public_entity_id"); !ok {
		return
	}

	items, total, err := h.svc.Contracts.List(c.Request.Context(), pr, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) getContract(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.svc.Contracts.Get(c.Request.Context(), p, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) changeContractStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req contractStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, valid := model.ParseContractStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	contract, err := h.svc.Contracts.ChangeStatus(c.Request.Context(), p, id, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}
