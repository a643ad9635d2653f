package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/middlewares"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
)

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

type orderItemRequest struct {
	MenuItemID   uint   `json:"menuItemId" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	Variant      string `json:"variant"`
	Instructions string `json:"instructions"`
}

// createOrderRequest mirrors the checkout payload. Client-side prices are only
// compared against what the server computes.
type createOrderRequest struct {
	CustomerName  string             `json:"customerName" binding:"required"`
	Address       string             `json:"address" binding:"required"`
	Items         []orderItemRequest `json:"items" binding:"required,min=1,dive"`
	CouponCode    string             `json:"couponCode"`
	AppliedCoupon *struct {
		Code string `json:"code"`
	} `json:"appliedCoupon"`
	TotalPrice *float64         `json:"totalPrice"`
	FinalPrice *float64         `json:"finalPrice"`
	Location   *models.GeoPoint `json:"location"`
}

func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middlewares.CurrentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("Not authorized"))
	}
	return id, ok
}

// CreateOrder places an order for the authenticated customer.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	code := req.CouponCode
	if code == "" && req.AppliedCoupon != nil {
		code = req.AppliedCoupon.Code
	}

	lines := make([]services.CheckoutLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, services.CheckoutLine{
			MenuItemID:   it.MenuItemID,
			Quantity:     it.Quantity,
			Variant:      it.Variant,
			Instructions: it.Instructions,
		})
	}

	order, err := oc.orders.CreateOrder(c.Request.Context(), userID, services.CheckoutInput{
		CustomerName: req.CustomerName,
		Address:      req.Address,
		Items:        lines,
		CouponCode:   code,
		Location:     req.Location,
		ClientTotal:  req.TotalPrice,
		ClientFinal:  req.FinalPrice,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusCreated, order)
}

// GetMyOrders lists the caller's orders, newest first.
func (oc *OrderController) GetMyOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orders, err := oc.orders.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, orders)
}

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.orders.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, orders)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.orders.UpdateStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, order)
}

func (oc *OrderController) AcknowledgeOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	order, err := oc.orders.Acknowledge(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, order)
}
