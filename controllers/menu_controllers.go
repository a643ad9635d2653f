package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
)

const maxUploadSize = 10 << 20

type MenuController struct {
	menu      *services.MenuService
	uploadDir string
}

// NewMenuController creates a MenuController saving uploaded images under uploadDir/menu_images.
func NewMenuController(menu *services.MenuService, uploadDir string) *MenuController {
	return &MenuController{menu: menu, uploadDir: uploadDir}
}

// menuItemRequest binds from JSON or multipart form. Prices may also arrive
// nested as {"price": {"full": .., "half": ..}}.
type menuItemRequest struct {
	Name        *string    `json:"name" form:"name"`
	Description *string    `json:"description" form:"description"`
	Category    *string    `json:"category" form:"category"`
	PriceFull   formNumber `json:"priceFull" form:"priceFull"`
	PriceHalf   formNumber `json:"priceHalf" form:"priceHalf"`
	ImageUrl    *string    `json:"imageUrl" form:"imageUrl"`
	Price       *struct {
		Full formNumber `json:"full"`
		Half formNumber `json:"half"`
	} `json:"price" form:"-"`
}

func (r *menuItemRequest) prices() (full, half formNumber) {
	full, half = r.PriceFull, r.PriceHalf
	if r.Price != nil {
		if !full.set {
			full = r.Price.Full
		}
		if !half.set {
			half = r.Price.Half
		}
	}
	return full, half
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetMenu returns the menu grouped by category, or a flat list with ?view=flat.
func (mc *MenuController) GetMenu(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("view") == "flat" {
		items, err := mc.menu.FlatMenu(ctx)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		utils.RespondData(c, http.StatusOK, items)
		return
	}

	sections, err := mc.menu.GroupedMenu(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, sections)
}

// saveImage stores the optional "image" file and returns its public URL.
func (mc *MenuController) saveImage(c *gin.Context) (string, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return "", nil
	}
	file, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	dir := filepath.Join(mc.uploadDir, "menu_images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	name := strings.ReplaceAll(filepath.Base(file.Filename), " ", "_")
	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), name)
	if err := c.SaveUploadedFile(file, filepath.Join(dir, filename)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return "/uploads/menu_images/" + filename, nil
}

func (mc *MenuController) bind(c *gin.Context) (*menuItemRequest, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	}
	var req menuItemRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return nil, false
	}

	imageURL, err := mc.saveImage(c)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("menu image upload failed")
		utils.RespondError(c, http.StatusBadRequest, errors.New("Could not process the uploaded image"))
		return nil, false
	}
	if imageURL != "" {
		req.ImageUrl = &imageURL
	}
	return &req, true
}

func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	req, ok := mc.bind(c)
	if !ok {
		return
	}

	full, half := req.prices()
	if full.Ptr() == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Full price is required"))
		return
	}

	item, err := mc.menu.CreateItem(c.Request.Context(), services.MenuItemInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Category:    deref(req.Category),
		PriceFull:   full.value,
		PriceHalf:   half.Ptr(),
		ImageUrl:    deref(req.ImageUrl),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusCreated, item)
}

func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	req, ok := mc.bind(c)
	if !ok {
		return
	}

	full, half := req.prices()
	if full.set && full.null {
		utils.RespondError(c, http.StatusBadRequest, errors.New("Full price must not be empty"))
		return
	}

	item, err := mc.menu.UpdateItem(c.Request.Context(), id, services.MenuItemPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceFull:   full.Ptr(),
		PriceHalf:   half.Ptr(),
		ClearHalf:   half.set && half.null,
		ImageUrl:    req.ImageUrl,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, item)
}

func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := mc.menu.DeleteItem(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}

// ReorderMenuItems persists the drag-and-drop order of one category.
func (mc *MenuController) ReorderMenuItems(c *gin.Context) {
	var body struct {
		Category   string `json:"category" binding:"required"`
		OrderedIDs []uint `json:"orderedIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := mc.menu.ReorderItems(c.Request.Context(), body.Category, body.OrderedIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu order updated", gin.H{"updated": updated})
}

func (mc *MenuController) UploadCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("csvFile")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("No CSV file uploaded"))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondServiceError(c, fmt.Errorf("open csv upload: %w", err))
		return
	}
	defer file.Close()

	result, err := mc.menu.ImportCSV(c.Request.Context(), file)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondData(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("CSV processed: %d items created, %d items updated", result.Created, result.Updated),
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
}
