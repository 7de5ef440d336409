package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receipto/console/service"
)

type CategoryHandler struct {
	backend *service.BackendService
}

func NewCategoryHandler(backend *service.BackendService) *CategoryHandler {
	return &CategoryHandler{backend: backend}
}

// List returns all categories sorted by name
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.backend.ListCategories(c.Request.Context())
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Get returns a single category
func (h *CategoryHandler) Get(c *gin.Context) {
	category, err := h.backend.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Create creates a new category
func (h *CategoryHandler) Create(c *gin.Context) {
	var create service.CategoryCreate
	if err := c.ShouldBindJSON(&create); err != nil || create.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}
	if create.MonthlyBudgetLimit != nil && *create.MonthlyBudgetLimit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Budget limit must not be negative"})
		return
	}

	category, err := h.backend.CreateCategory(c.Request.Context(), &create)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// Update applies a partial category patch
func (h *CategoryHandler) Update(c *gin.Context) {
	var updates service.CategoryUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if updates.MonthlyBudgetLimit != nil && *updates.MonthlyBudgetLimit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Budget limit must not be negative"})
		return
	}

	category, err := h.backend.UpdateCategory(c.Request.Context(), c.Param("id"), &updates)
	if err != nil {
		writeBackendError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete deletes a category
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.backend.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		writeBackendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
