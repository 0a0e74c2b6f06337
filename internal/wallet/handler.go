package wallet

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/api"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

const (
	FeatureTopUp = "credit_topup"
	FeatureGrant = "credit_grant"
)

// GrantNotifier tells a user about an admin credit grant. Notification is
// best effort and never fails the grant.
type GrantNotifier interface {
	SendCreditGrantNotice(ctx context.Context, to, name string, amount, balance int64) error
}

type Handler struct {
	repo     Repository
	notifier GrantNotifier
}

func NewHandler(db *sqlx.DB, notifier GrantNotifier) *Handler {
	return &Handler{repo: NewRepository(db), notifier: notifier}
}

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type GrantRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"max=200"`
}

// GetWallet godoc
// @Summary      Wallet balance
// @Description  Returns the caller's wallet, creating it with a zero balance on first read.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Wallet
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to load wallet", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// GetLedger godoc
// @Summary      Ledger history
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"    default(50)
// @Param        offset  query     int  false  "Page offset"  default(0)
// @Success      200     {array}   LedgerEntry
// @Failure      401     {object}  api.ErrorResponse
// @Failure      500     {object}  api.ErrorResponse
// @Router       /wallet/ledger [get]
func (h *Handler) GetLedger(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.repo.GetLedgerEntries(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("Failed to load ledger", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load ledger"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// TopUp godoc
// @Summary      Top up credits
// @Description  Credits the caller's wallet. Invoked by the payment gateway callback after a confirmed order.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      400  {object}  api.ErrorResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /wallet/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid amount"})
		return
	}

	balance, err := h.repo.Credit(c.Request.Context(), userID, req.Amount, FeatureTopUp, nil)
	if err != nil {
		logger.Error("Top-up failed", "user_id", userID, "amount", req.Amount, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Top-up failed"})
		return
	}

	metrics.CreditsGrantedTotal.Add(float64(req.Amount))
	logger.Info("Wallet topped up", "user_id", userID, "amount", req.Amount, "balance", balance)

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// GrantCredits godoc
// @Summary      Grant credits (admin)
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID   path      int           true  "User ID"
// @Param        request  body      GrantRequest  true  "Grant payload"
// @Success      200      {object}  gin.H
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/users/{userID}/credits [post]
func (h *Handler) GrantCredits(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid amount"})
		return
	}

	metadata := Metadata{}
	if req.Reason != "" {
		metadata["reason"] = req.Reason
	}
	if adminID, ok := auth.GetUserID(c); ok {
		metadata["granted_by"] = strconv.Itoa(adminID)
	}

	balance, err := h.repo.Credit(c.Request.Context(), targetID, req.Amount, FeatureGrant, metadata)
	if err != nil {
		logger.Error("Credit grant failed", "user_id", targetID, "amount", req.Amount, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Grant failed"})
		return
	}

	metrics.CreditsGrantedTotal.Add(float64(req.Amount))

	if h.notifier != nil {
		if email, name, err := h.repo.GetUserContact(c.Request.Context(), targetID); err == nil {
			if err := h.notifier.SendCreditGrantNotice(c.Request.Context(), email, name, req.Amount, balance); err != nil {
				logger.Error("Grant notice failed", "user_id", targetID, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Reconcile godoc
// @Summary      Ledger reconciliation (admin)
// @Description  Compares the materialized wallet balance against the ledger sum.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      int  true  "User ID"
// @Success      200     {object}  Reconciliation
// @Failure      400     {object}  api.ErrorResponse
// @Failure      500     {object}  api.ErrorResponse
// @Router       /admin/users/{userID}/reconciliation [get]
func (h *Handler) Reconcile(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	rec, err := h.repo.Reconcile(c.Request.Context(), targetID)
	if err != nil {
		logger.Error("Reconciliation failed", "user_id", targetID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Reconciliation failed"})
		return
	}

	if !rec.Consistent {
		logger.Error("Ledger drift detected", "user_id", targetID, "balance", rec.Balance, "ledger_sum", rec.LedgerSum)
	}

	c.JSON(http.StatusOK, rec)
}
