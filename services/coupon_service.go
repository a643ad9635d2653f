package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/steamybites/metrics"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/utils"
	"gorm.io/gorm"
)

// Quote is the outcome of applying a coupon to a cart total.
type Quote struct {
	Coupon         CouponSummary `json:"coupon"`
	DiscountAmount float64       `json:"discountAmount"`
	FinalTotal     float64       `json:"finalTotal"`
}

type CouponSummary struct {
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
}

type CouponInput struct {
	Code          string
	Description   string
	DiscountType  string
	DiscountValue float64
	IsActive      *bool
}

// CouponPatch carries the fields an admin may change on an existing coupon.
type CouponPatch struct {
	Description   *string
	DiscountType  *string
	DiscountValue *float64
	IsActive      *bool
}

type CouponService struct {
	db *gorm.DB
}

func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{db: db}
}

// ApplyDiscount returns the discount actually granted and the resulting total.
// The total never goes below zero and the discount never exceeds the subtotal.
func ApplyDiscount(subtotal float64, discountType string, value float64) (discount, final float64) {
	var raw float64
	switch discountType {
	case models.DiscountPercentage:
		raw = subtotal * value / 100
	case models.DiscountFixed:
		raw = value
	}
	final = roundMoney(math.Max(0, subtotal-raw))
	discount = roundMoney(subtotal - final)
	return discount, final
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FindActive looks up an active coupon by code, ignoring case and surrounding spaces.
func (s *CouponService) FindActive(ctx context.Context, code string) (*models.Coupon, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, invalidf("Coupon code is required")
	}

	var coupon models.Coupon
	err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Coupon not found or is inactive")
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon %s: %w", code, err)
	}
	return &coupon, nil
}

// Validate prices cartTotal against an active coupon.
func (s *CouponService) Validate(ctx context.Context, code string, cartTotal float64) (*Quote, error) {
	if cartTotal < 0 || math.IsNaN(cartTotal) || math.IsInf(cartTotal, 0) {
		metrics.CouponValidations.WithLabelValues("invalid").Inc()
		return nil, invalidf("Cart total must be a non-negative number")
	}

	coupon, err := s.FindActive(ctx, code)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrNotFound) {
			result = "not_found"
		} else if errors.Is(err, ErrInvalid) {
			result = "invalid"
		}
		metrics.CouponValidations.WithLabelValues(result).Inc()
		return nil, err
	}

	discount, final := ApplyDiscount(cartTotal, coupon.DiscountType, coupon.DiscountValue)
	metrics.CouponValidations.WithLabelValues("valid").Inc()

	return &Quote{
		Coupon: CouponSummary{
			Code:          coupon.Code,
			Description:   coupon.Description,
			DiscountType:  coupon.DiscountType,
			DiscountValue: coupon.DiscountValue,
		},
		DiscountAmount: discount,
		FinalTotal:     final,
	}, nil
}

// ListActive returns the coupons shown on the storefront.
func (s *CouponService) ListActive(ctx context.Context) ([]models.Coupon, error) {
	coupons := []models.Coupon{}
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("code").Find(&coupons).Error
	if err != nil {
		return nil, fmt.Errorf("list active coupons: %w", err)
	}
	return coupons, nil
}

func (s *CouponService) ListAll(ctx context.Context) ([]models.Coupon, error) {
	coupons := []models.Coupon{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

func validateDiscount(discountType string, value float64) error {
	switch discountType {
	case models.DiscountPercentage:
		if value < 0 || value > 100 {
			return invalidf("Percentage discount must be between 0 and 100")
		}
	case models.DiscountFixed:
		if value < 0 {
			return invalidf("Fixed discount must not be negative")
		}
	default:
		return invalidf("Discount type must be %q or %q", models.DiscountPercentage, models.DiscountFixed)
	}
	return nil
}

// Create stores a new coupon. Codes are stored upper-cased and must be unique.
func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	code := normalizeCode(in.Code)
	if code == "" {
		return nil, invalidf("Coupon code is required")
	}
	if err := validateDiscount(in.DiscountType, in.DiscountValue); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Coupon{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check coupon code: %w", err)
	}
	if count > 0 {
		return nil, conflictf("Coupon code %s already exists", code)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	coupon := models.Coupon{
		Code:          code,
		Description:   strings.TrimSpace(in.Description),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		IsActive:      active,
	}
	if err := db.Create(&coupon).Error; err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{"coupon": coupon.Code, "type": coupon.DiscountType}).Info("coupon created")
	return &coupon, nil
}

// Update applies a partial change to a coupon.
func (s *CouponService) Update(ctx context.Context, id uint, patch CouponPatch) (*models.Coupon, error) {
	db := s.db.WithContext(ctx)

	var coupon models.Coupon
	err := db.First(&coupon, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Coupon not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon %d: %w", id, err)
	}

	if patch.Description != nil {
		coupon.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DiscountType != nil {
		coupon.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		coupon.DiscountValue = *patch.DiscountValue
	}
	if patch.IsActive != nil {
		coupon.IsActive = *patch.IsActive
	}
	if err := validateDiscount(coupon.DiscountType, coupon.DiscountValue); err != nil {
		return nil, err
	}

	if err := db.Save(&coupon).Error; err != nil {
		return nil, fmt.Errorf("update coupon %d: %w", id, err)
	}
	return &coupon, nil
}
