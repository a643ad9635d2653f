package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
)

type CouponController struct {
	coupons *services.CouponService
}

func NewCouponController(coupons *services.CouponService) *CouponController {
	return &CouponController{coupons: coupons}
}

// ValidateCoupon prices a cart total against an active coupon.
func (cc *CouponController) ValidateCoupon(c *gin.Context) {
	var body struct {
		Code      string   `json:"code" binding:"required"`
		CartTotal *float64 `json:"cartTotal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	quote, err := cc.coupons.Validate(c.Request.Context(), body.Code, *body.CartTotal)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, quote)
}

func (cc *CouponController) GetActiveCoupons(c *gin.Context) {
	coupons, err := cc.coupons.ListActive(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, coupons)
}

func (cc *CouponController) GetAllCoupons(c *gin.Context) {
	coupons, err := cc.coupons.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, coupons)
}

func (cc *CouponController) CreateCoupon(c *gin.Context) {
	var body struct {
		Code          string   `json:"code" binding:"required"`
		Description   string   `json:"description"`
		DiscountType  string   `json:"discountType" binding:"required"`
		DiscountValue *float64 `json:"discountValue" binding:"required"`
		IsActive      *bool    `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	coupon, err := cc.coupons.Create(c.Request.Context(), services.CouponInput{
		Code:          body.Code,
		Description:   body.Description,
		DiscountType:  body.DiscountType,
		DiscountValue: *body.DiscountValue,
		IsActive:      body.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusCreated, coupon)
}

func (cc *CouponController) UpdateCoupon(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body struct {
		Description   *string  `json:"description"`
		DiscountType  *string  `json:"discountType"`
		DiscountValue *float64 `json:"discountValue"`
		IsActive      *bool    `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	coupon, err := cc.coupons.Update(c.Request.Context(), id, services.CouponPatch{
		Description:   body.Description,
		DiscountType:  body.DiscountType,
		DiscountValue: body.DiscountValue,
		IsActive:      body.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondData(c, http.StatusOK, coupon)
}
