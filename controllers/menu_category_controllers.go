package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
)

type MenuCategoryController struct {
	menu *services.MenuService
}

func NewMenuCategoryController(menu *services.MenuService) *MenuCategoryController {
	return &MenuCategoryController{menu: menu}
}

// GetAllCategories lists categories in display order.
func (mcc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	categories, err := mcc.menu.Categories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, categories)
}

func (mcc *MenuCategoryController) ReorderCategories(c *gin.Context) {
	var body struct {
		OrderedCategoryNames []string `json:"orderedCategoryNames" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := mcc.menu.ReorderCategories(c.Request.Context(), body.OrderedCategoryNames); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category order updated", nil)
}
