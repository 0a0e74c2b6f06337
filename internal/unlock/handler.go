package unlock

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/api"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/contact"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB, prices Prices) *Handler {
	return &Handler{
		service: NewService(NewRepository(db), contact.NewRepository(db), prices),
	}
}

type BulkRequest struct {
	ResourceIDs  []int64 `json:"resource_ids" binding:"required,min=1,max=500"`
	ResourceType string  `json:"resource_type" binding:"required,oneof=contact company"`
}

// UnlockContact godoc
// @Summary      Unlock a contact
// @Description  Charges the caller once for the contact. Repeat calls are no-op successes.
// @Tags         unlocks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Contact ID"
// @Success      200  {object}  SingleResult
// @Failure      400  {object}  api.ErrorResponse
// @Failure      402  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /contacts/{id}/unlock [post]
func (h *Handler) UnlockContact(c *gin.Context) {
	h.unlockSingle(c, c.Param("id"), TypeContact)
}

// UnlockCompany godoc
// @Summary      Unlock a company
// @Tags         unlocks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Company ID"
// @Success      200  {object}  SingleResult
// @Failure      400  {object}  api.ErrorResponse
// @Failure      402  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /companies/{id}/unlock [post]
func (h *Handler) UnlockCompany(c *gin.Context) {
	h.unlockSingle(c, c.Param("id"), TypeCompany)
}

func (h *Handler) unlockSingle(c *gin.Context, rawID, resourceType string) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	resourceID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid resource ID"})
		return
	}

	result, err := h.service.Unlock(c.Request.Context(), userID, resourceID, resourceType)
	if err != nil {
		respondUnlockError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UnlockBulk godoc
// @Summary      Unlock a batch of resources
// @Description  All-or-nothing: if the balance cannot cover every locked item, nothing is unlocked and nothing is charged.
// @Tags         unlocks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BulkRequest  true  "Batch payload"
// @Success      200      {object}  BulkResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /unlocks/bulk [post]
func (h *Handler) UnlockBulk(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.UnlockBulk(c.Request.Context(), userID, req.ResourceIDs, req.ResourceType)
	if err != nil {
		respondUnlockError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func respondUnlockError(c *gin.Context, userID int, err error) {
	var insufficient *wallet.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":  "insufficient credits",
			"needed": insufficient.Needed,
			"have":   insufficient.Have,
		})
	case errors.Is(err, ErrResourceNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Resource not found"})
	case errors.Is(err, ErrInvalidResourceType), errors.Is(err, ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Unlock failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Unlock failed"})
	}
}
