package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/database/service"
	"github.com/gryadka/backend-go/internal/middleware"
)

// GameHandler serves the plant adoption game
type GameHandler struct {
	game   service.GameService
	logger *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(game service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		game:   game,
		logger: logger,
	}
}

type ListItemsQuery struct {
	Category string `form:"category" binding:"omitempty,alpha,max=30"`
}

type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type AdoptRequest struct {
	ProductID uint    `json:"product_id" binding:"required"`
	Nickname  *string `json:"nickname" binding:"omitempty,max=100"`
}

type NicknameRequest struct {
	Nickname *string `json:"nickname" binding:"omitempty,max=100"`
}

type ActionRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	ItemID    uint `json:"item_id" binding:"required"`
}

// ListItems handles GET /game/items
func (h *GameHandler) ListItems(c *gin.Context) {
	var query ListItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	items, err := h.game.ListItems(c.Request.Context(), query.Category)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// GetItem handles GET /game/items/:id
func (h *GameHandler) GetItem(c *gin.Context) {
	itemID, err := parseID(c, "id", "Invalid item ID")
	if err != nil {
		return
	}

	item, err := h.game.GetItem(c.Request.Context(), itemID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// AdoptionPrice handles GET /game/adoption-price
func (h *GameHandler) AdoptionPrice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"price": h.game.AdoptionPrice()})
}

// Balance handles GET /game/balance
func (h *GameHandler) Balance(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	balance, err := h.game.Balance(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// TopUp handles POST /game/balance/topup
func (h *GameHandler) TopUp(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	balance, err := h.game.TopUp(c.Request.Context(), identity, req.Amount)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// Stats handles GET /game/stats
func (h *GameHandler) Stats(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.game.Stats(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Adopt handles POST /game/adopt
func (h *GameHandler) Adopt(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req AdoptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	adoption, err := h.game.Adopt(c.Request.Context(), identity, req.ProductID, req.Nickname)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, adoption)
}

// ListAdoptions handles GET /game/adoptions
func (h *GameHandler) ListAdoptions(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	adoptions, err := h.game.ListAdoptions(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"adoptions": adoptions, "total": len(adoptions)})
}

// RenameAdoption handles PATCH /game/adoptions/:id/nickname
func (h *GameHandler) RenameAdoption(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	adoptionID, err := parseID(c, "id", "Invalid adoption ID")
	if err != nil {
		return
	}

	var req NicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	adoption, err := h.game.RenameAdoption(c.Request.Context(), identity, adoptionID, req.Nickname)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, adoption)
}

// DeleteAdoption handles DELETE /game/adoptions/:id
func (h *GameHandler) DeleteAdoption(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	adoptionID, err := parseID(c, "id", "Invalid adoption ID")
	if err != nil {
		return
	}

	if err := h.game.DeleteAdoption(c.Request.Context(), identity, adoptionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PerformAction handles POST /game/action
func (h *GameHandler) PerformAction(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	action, err := h.game.PerformAction(c.Request.Context(), identity, req.ProductID, req.ItemID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, action)
}

// ProductActions handles GET /game/actions/:product_id
func (h *GameHandler) ProductActions(c *gin.Context) {
	productID, err := parseID(c, "product_id", "Invalid product ID")
	if err != nil {
		return
	}

	actions, err := h.game.ProductActions(c.Request.Context(), productID, queryInt(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"actions": actions, "total": len(actions)})
}

// MyActions handles GET /game/my-actions
func (h *GameHandler) MyActions(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	actions, err := h.game.MyActions(c.Request.Context(), identity, queryInt(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"actions": actions, "total": len(actions)})
}

// CommunityGoals handles GET /game/community-goals
func (h *GameHandler) CommunityGoals(c *gin.Context) {
	goals, err := h.game.CommunityGoals(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals, "total": len(goals)})
}

// Growth handles GET /game/growth/:product_id
func (h *GameHandler) Growth(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID, err := parseID(c, "product_id", "Invalid product ID")
	if err != nil {
		return
	}

	growth, err := h.game.Growth(c.Request.Context(), identity, productID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, growth)
}

func (h *GameHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrTopUpTooLarge),
		errors.Is(err, service.ErrProductNotGrowing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance"})
	case errors.Is(err, repository.ErrAlreadyAdopted):
		c.JSON(http.StatusConflict, gin.H{"error": "Product already adopted"})
	case errors.Is(err, repository.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, repository.ErrAdoptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Adoption not found"})
	default:
		h.logger.Error("❌ [GameHandler] Internal error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
