package contact

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/api"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"
	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// ListContacts godoc
// @Summary      Search contacts
// @Description  Lists contacts matching the filters. Email and phone are masked on locked rows.
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        q         query     string  false  "Free text over name/company"
// @Param        company   query     string  false  "Company filter"
// @Param        title     query     string  false  "Title filter"
// @Param        location  query     string  false  "Location filter"
// @Param        limit     query     int     false  "Page size"    default(50)
// @Param        offset    query     int     false  "Page offset"  default(0)
// @Success      200       {array}   Contact
// @Failure      401       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /contacts [get]
func (h *Handler) ListContacts(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	params := SearchParams{
		Query:    c.Query("q"),
		Company:  c.Query("company"),
		Title:    c.Query("title"),
		Location: c.Query("location"),
		Limit:    limit,
		Offset:   offset,
	}

	contacts, err := h.repo.SearchContacts(c.Request.Context(), userID, params)
	if err != nil {
		logger.Error("Contact search failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Search failed"})
		return
	}

	for i := range contacts {
		contacts[i].Mask()
	}

	c.JSON(http.StatusOK, contacts)
}

// GetContact godoc
// @Summary      Contact detail
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Contact ID"
// @Success      200  {object}  Contact
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /contacts/{id} [get]
func (h *Handler) GetContact(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid contact ID"})
		return
	}

	ct, err := h.repo.GetContactByID(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Contact not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load contact"})
		return
	}

	ct.Mask()
	c.JSON(http.StatusOK, ct)
}

// GetCompany godoc
// @Summary      Company detail
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Company ID"
// @Success      200  {object}  Company
// @Failure      400  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /companies/{id} [get]
func (h *Handler) GetCompany(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid company ID"})
		return
	}

	co, err := h.repo.GetCompanyByID(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Company not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load company"})
		return
	}

	co.Mask()
	c.JSON(http.StatusOK, co)
}
