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

// CatalogHandler serves farms and products
type CatalogHandler struct {
	farms    service.FarmService
	products service.ProductService
	logger   *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(farms service.FarmService, products service.ProductService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		farms:    farms,
		products: products,
		logger:   logger,
	}
}

type CreateFarmRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description *string `json:"description"`
	OwnerID     *uint   `json:"owner_id"`
}

type CreateProductRequest struct {
	FarmID           uint           `json:"farm_id" binding:"required"`
	Name             string         `json:"name" binding:"required,max=200"`
	Category         string         `json:"category" binding:"required,max=100"`
	ShortDescription *string        `json:"short_description"`
	Passport         map[string]any `json:"passport"`
	IsActive         *bool          `json:"is_active"`
	IsGrowing        bool           `json:"is_growing"`
}

type UpdateProductRequest struct {
	FarmID           *uint   `json:"farm_id"`
	Name             *string `json:"name" binding:"omitempty,max=200"`
	Category         *string `json:"category" binding:"omitempty,max=100"`
	ShortDescription *string `json:"short_description"`
	IsActive         *bool   `json:"is_active"`
	IsGrowing        *bool   `json:"is_growing"`
}

type PassportRequest struct {
	Origin         *string          `json:"origin" binding:"omitempty,max=200"`
	Variety        *string          `json:"variety" binding:"omitempty,max=200"`
	HarvestDate    *string          `json:"harvest_date"`
	Certifications []map[string]any `json:"certifications"`
	Data           map[string]any   `json:"data"`
}

type ListProductsQuery struct {
	Limit  int `form:"limit" binding:"min=0"`
	Offset int `form:"offset" binding:"min=0"`
}

// ListFarms handles GET /farms
func (h *CatalogHandler) ListFarms(c *gin.Context) {
	farms, err := h.farms.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"farms": farms, "total": len(farms)})
}

// CreateFarm handles POST /farms
func (h *CatalogHandler) CreateFarm(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateFarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	farm, err := h.farms.Create(c.Request.Context(), identity, service.NewFarm{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, farm)
}

// ListFarmProducts handles GET /farms/:id/products
func (h *CatalogHandler) ListFarmProducts(c *gin.Context) {
	farmID, err := parseID(c, "id", "Invalid farm ID")
	if err != nil {
		return
	}

	products, err := h.products.ListByFarm(c.Request.Context(), farmID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// CreateProduct handles POST /products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	product, err := h.products.Create(c.Request.Context(), identity, service.NewProduct{
		FarmID:           req.FarmID,
		Name:             req.Name,
		Category:         req.Category,
		ShortDescription: req.ShortDescription,
		Passport:         req.Passport,
		IsActive:         req.IsActive,
		IsGrowing:        req.IsGrowing,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProduct handles GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return
	}

	product, err := h.products.Get(c.Request.Context(), productID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var query ListProductsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	products, err := h.products.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// MyProducts handles GET /products/me
func (h *CatalogHandler) MyProducts(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	products, err := h.products.ListMine(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

// UpdateProduct handles PATCH /products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	product, err := h.products.Update(c.Request.Context(), identity, productID, service.ProductUpdate{
		FarmID:           req.FarmID,
		Name:             req.Name,
		Category:         req.Category,
		ShortDescription: req.ShortDescription,
		IsActive:         req.IsActive,
		IsGrowing:        req.IsGrowing,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return
	}

	if err := h.products.Delete(c.Request.Context(), identity, productID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPassport handles GET /products/:id/passport
func (h *CatalogHandler) GetPassport(c *gin.Context) {
	productID, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return
	}

	passport, err := h.products.GetPassport(c.Request.Context(), productID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_id": productID, "passport": passport})
}

// SetPassport handles POST /products/:id/passport
func (h *CatalogHandler) SetPassport(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	productID, err := parseID(c, "id", "Invalid product ID")
	if err != nil {
		return
	}

	var req PassportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	passport, err := h.products.SetPassport(c.Request.Context(), identity, productID, service.PassportInput{
		Origin:         req.Origin,
		Variety:        req.Variety,
		HarvestDate:    req.HarvestDate,
		Certifications: req.Certifications,
		Data:           req.Data,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product_id": productID, "passport": passport})
}

func (h *CatalogHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTargetFarmNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Farm not found"})
	case errors.Is(err, service.ErrProductFieldEmpty),
		errors.Is(err, service.ErrInvalidHarvestDate),
		errors.Is(err, service.ErrInvalidCertification):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPassportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Passport not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	case errors.Is(err, repository.ErrFarmNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Farm not found"})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	default:
		h.logger.Error("❌ [CatalogHandler] Internal error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
