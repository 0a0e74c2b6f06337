package campaign

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/api"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create godoc
// @Summary      Create campaign draft
// @Description  Creates a draft campaign with a stored recipient selection. Requires a verified sender identity matching from_email.
// @Tags         campaigns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Campaign draft"
// @Success      201      {object}  Campaign
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Router       /campaigns [post]
func (h *Handler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// List godoc
// @Summary      List own campaigns
// @Tags         campaigns
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"    default(20)
// @Param        offset  query     int  false  "Page offset"  default(0)
// @Success      200     {array}   Campaign
// @Router       /campaigns [get]
func (h *Handler) List(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	campaigns, err := h.service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("Failed to list campaigns", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to list campaigns"})
		return
	}

	c.JSON(http.StatusOK, campaigns)
}

// Get godoc
// @Summary      Get campaign
// @Tags         campaigns
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Campaign ID"
// @Success      200  {object}  Campaign
// @Failure      404  {object}  api.ErrorResponse
// @Router       /campaigns/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid campaign ID"})
		return
	}

	campaign, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// Preview godoc
// @Summary      Preview recipient resolution
// @Description  Resolves a recipient selection against the caller's unlocked contacts and reports count and cost. Nothing is charged; the result is not binding for a later send.
// @Tags         campaigns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PreviewRequest  true  "Recipient selection"
// @Success      200      {object}  PreviewResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /campaigns/preview [post]
func (h *Handler) Preview(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	preview, err := h.service.Preview(c.Request.Context(), userID, req)
	if err != nil {
		logger.Error("Campaign preview failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Preview failed"})
		return
	}

	c.JSON(http.StatusOK, preview)
}

// Send godoc
// @Summary      Send campaign
// @Description  Resolves recipients, charges the wallet and dispatches delivery. Charging happens at the send attempt; a later delivery failure does not refund.
// @Tags         campaigns
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Campaign ID"
// @Success      200  {object}  SendResponse
// @Failure      402  {object}  gin.H
// @Failure      404  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Router       /campaigns/{id}/send [post]
func (h *Handler) Send(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid campaign ID"})
		return
	}

	result, err := h.service.Send(c.Request.Context(), userID, id)
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) respondError(c *gin.Context, userID int, err error) {
	var insufficient *wallet.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":  "insufficient credits",
			"needed": insufficient.Needed,
			"have":   insufficient.Have,
		})
	case errors.Is(err, ErrCampaignNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Campaign not found"})
	case errors.Is(err, ErrNotDraft), errors.Is(err, ErrAlreadyCharged):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Campaign has already been sent"})
	case errors.Is(err, ErrNoRecipients):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Campaign resolves to zero recipients"})
	case errors.Is(err, ErrSenderNotReady):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Sender identity is not verified"})
	case errors.Is(err, ErrFromMismatch):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "From address does not match verified sender"})
	default:
		logger.Error("Campaign operation failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Campaign operation failed"})
	}
}
