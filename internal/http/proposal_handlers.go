package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/licitabrasil/licita-api/internal/model"
)

func (h *Handler) myProposals(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	proposals, err := h.svc.Proposals.ListMine(c.Request.Context(), p)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondPage(c, proposals, pagination(c))
}

func (h *Handler) changeProposalStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, valid := model.ParseProposalStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	proposal, err := h.svc.Proposals.ChangeStatus(c.Request.Context(), p, id, status, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}

func (h *Handler) withdrawProposal(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	proposal, err := h.svc.Proposals.Withdraw(c.Request.Context(), p, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}
