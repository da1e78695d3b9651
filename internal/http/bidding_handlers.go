package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/http/middleware"
	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/service"
)

type biddingRequest struct {
	PublicEntityID string  `json:"public_entity_id"`
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description"`
	Modality       string  `json:"modality" binding:"required"`
	Category       string  `json:"category"`
	EstimatedValue float64 `json:"estimated_value"`
	OpeningDate    string  `json:"opening_date" binding:"required"`
	ClosingDate    string  `json:"closing_date" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type awardRequest struct {
	ProposalID string `json:"proposal_id" binding:"required"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
}

type proposalRequest struct {
	Amount       float64 `json:"amount" binding:"required"`
	Description  string  `json:"description"`
	DeliveryDays int     `json:"delivery_days"`
}

func (r biddingRequest) toInput() (service.BiddingInput, string) {
	input := service.BiddingInput{
		Title:          r.Title,
		Description:    r.Description,
		Modality:       model.Modality(strings.ToUpper(strings.TrimSpace(r.Modality))),
		Category:       r.Category,
		EstimatedValue: r.EstimatedValue,
	}
	if raw := strings.TrimSpace(r.PublicEntityID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return input, "invalid public_entity_id"
		}
		input.PublicEntityID = &id
	}
	opening, err := parseDate(r.OpeningDate)
	if err != nil {
		return input, "invalid opening_date"
	}
	closing, err := parseDate(r.ClosingDate)
	if err != nil {
		return input, "invalid closing_date"
	}
	input.OpeningDate = opening
	input.ClosingDate = closing
	return input, ""
}

func (h *Handler) listBiddings(c *gin.Context) {
	p := pagination(c)
	filter := model.BiddingFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := model.ParseBiddingStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("modality"); raw != "" {
		modality, ok := model.ParseModality(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid modality"})
			return
		}
		filter.Modality = &modality
	}
	entityID, ok := queryUUID(c, "public_entity_id")
	if !ok {
		return
	}
	filter.PublicEntityID = entityID

	items, total, err := h.svc.Biddings.List(c.Request.Context(), middleware.Principal(c), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondList(c, items, total, p)
}

func (h *Handler) getBidding(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bidding, err := h.svc.Biddings.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bidding)
}

func (h *Handler) createBidding(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req biddingRequest
	if !bindJSON(c, &req) {
		return
	}
	input, problem := req.toInput()
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	bidding, err := h.svc.Biddings.Create(c.Request.Context(), p, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionBiddingCreate, "bidding", &bidding.ID, datatypes.JSONMap{"number": bidding.Number})
	c.JSON(http.StatusCreated, bidding)
}

func (h *Handler) updateBidding(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req biddingRequest
	if !bindJSON(c, &req) {
		return
	}
	input, problem := req.toInput()
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	bidding, err := h.svc.Biddings.Update(c.Request.Context(), p, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionBiddingUpdate, "bidding", &bidding.ID, nil)
	c.JSON(http.StatusOK, bidding)
}

func (h *Handler) changeBiddingStatus(c *gin.Context) {
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
	status, valid := model.ParseBiddingStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	bidding, err := h.svc.Biddings.ChangeStatus(c.Request.Context(), p, id, status, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	details := datatypes.JSONMap{"status": bidding.Status}
	if req.Reason != "" {
		details["reason"] = req.Reason
	}
	h.audit(c, nil, service.ActionBiddingStatus, "bidding", &bidding.ID, details)
	c.JSON(http.StatusOK, bidding)
}

func (h *Handler) awardBidding(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req awardRequest
	if !bindJSON(c, &req) {
		return
	}
	proposalID, err := uuid.Parse(strings.TrimSpace(req.ProposalID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal_id"})
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}

	result, err := h.svc.Biddings.Award(c.Request.Context(), p, id, service.AwardInput{
		ProposalID: proposalID,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionBiddingAward, "bidding", &id, datatypes.JSONMap{
		"proposal_id": proposalID,
		"contract_id": result.Contract.ID,
	})
	c.JSON(http.StatusOK, gin.H{
		"contract": result.Contract,
		"winner":   result.Winner,
		"rejected": result.Rejected,
	})
}

func (h *Handler) uploadDocument(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	bidding, err := h.svc.Biddings.AttachDocument(c.Request.Context(), p, id, service.DocumentUpload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.audit(c, nil, service.ActionBiddingUpdate, "bidding", &bidding.ID, datatypes.JSONMap{"document": header.Filename})
	c.JSON(http.StatusOK, bidding)
}

// downloadDocument redirects to a presigned link. Clients that want the link
// itself pass redirect=false.
func (h *Handler) downloadDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	link, err := h.svc.Biddings.DocumentURL(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if strings.EqualFold(c.Query("redirect"), "false") {
		c.JSON(http.StatusOK, gin.H{"url": link})
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (h *Handler) listBiddingProposals(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	proposals, err := h.svc.Proposals.ListForBidding(c.Request.Context(), p, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respondPage(c, proposals, pagination(c))
}

func (h *Handler) submitProposal(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req proposalRequest
	if !bindJSON(c, &req) {
		return
	}
	proposal, err := h.svc.Proposals.Submit(c.Request.Context(), p, id, service.ProposalInput{
		Amount:       req.Amount,
		Description:  req.Description,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proposal)
}
