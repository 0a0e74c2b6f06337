package sender

import (
	"errors"
	"net/http"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/api"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// StartVerify godoc
// @Summary      Verify sending identity
// @Description  Starts verification of the given address. Switching to a new address consumes one of a bounded number of identity changes; re-verifying the stored address never does.
// @Tags         sender
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyRequest  true  "Verification payload"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  gin.H
// @Failure      502      {object}  api.ErrorResponse
// @Router       /sender/verify [post]
func (h *Handler) StartVerify(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	identity, err := h.service.StartVerify(c.Request.Context(), userID, req.Email)
	if err != nil {
		var limitErr *ChangeLimitExceededError
		switch {
		case errors.As(err, &limitErr):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "sender change limit exceeded",
				"limit": limitErr.Limit,
				"used":  limitErr.Used,
			})
		case errors.Is(err, ErrProviderUnavailable):
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Verification provider unavailable"})
		default:
			logger.Error("Start verify failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Verification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, h.statusResponse(identity))
}

// CheckStatus godoc
// @Summary      Sender verification status
// @Description  Queries the verification provider and writes back the reported status. Provider failure surfaces as the "error" status.
// @Tags         sender
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  api.ErrorResponse
// @Router       /sender/status [get]
func (h *Handler) CheckStatus(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	identity, err := h.service.CheckStatus(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNoIdentity) {
			c.JSON(http.StatusOK, StatusResponse{
				Status:           StatusUnset,
				ChangesRemaining: h.service.ChangeLimit(),
			})
			return
		}
		logger.Error("Status check failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Status check failed"})
		return
	}

	c.JSON(http.StatusOK, h.statusResponse(identity))
}

func (h *Handler) statusResponse(identity *SenderIdentity) StatusResponse {
	remaining := h.service.ChangeLimit() - identity.ChangeCount
	if remaining < 0 {
		remaining = 0
	}
	return StatusResponse{
		Email:            identity.Email,
		Status:           identity.Status,
		ChangeCount:      identity.ChangeCount,
		ChangesRemaining: remaining,
	}
}
