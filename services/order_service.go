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

// OrderNotifier is told about order events after they are committed.
type OrderNotifier interface {
	OrderCreated(order models.Order)
	OrderStatusChanged(order models.Order)
	OrderAcknowledged(order models.Order)
}

// DeliveryZone limits checkout to addresses within RadiusKm of the restaurant.
type DeliveryZone struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Contains reports whether p lies inside the zone.
func (z DeliveryZone) Contains(p models.GeoPoint) bool {
	return utils.HaversineKm(z.Latitude, z.Longitude, p.Latitude, p.Longitude) <= z.RadiusKm
}

type CheckoutLine struct {
	MenuItemID   uint
	Quantity     int
	Variant      string
	Instructions string
}

// CheckoutInput is what a customer submits. ClientTotal and ClientFinal are
// only compared against the server totals and never stored.
type CheckoutInput struct {
	CustomerName string
	Address      string
	Items        []CheckoutLine
	CouponCode   string
	Location     *models.GeoPoint
	ClientTotal  *float64
	ClientFinal  *float64
}

var transitions = map[string][]string{
	models.OrderReceived:       {models.OrderPreparing, models.OrderRejected},
	models.OrderPreparing:      {models.OrderReady},
	models.OrderReady:          {models.OrderOutForDelivery},
	models.OrderOutForDelivery: {models.OrderDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validStatus(status string) bool {
	for _, s := range models.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type OrderService struct {
	db       *gorm.DB
	coupons  *CouponService
	notifier OrderNotifier
	zone     *DeliveryZone
}

// NewOrderService creates an OrderService. notifier may be nil.
func NewOrderService(db *gorm.DB, coupons *CouponService, notifier OrderNotifier) *OrderService {
	return &OrderService{db: db, coupons: coupons, notifier: notifier}
}

// WithDeliveryZone enables the delivery radius check at checkout.
func (s *OrderService) WithDeliveryZone(zone DeliveryZone) *OrderService {
	s.zone = &zone
	return s
}

// CreateOrder prices the cart from the current menu, applies the coupon and
// stores the order as Received.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, in CheckoutInput) (*models.Order, error) {
	customerName := strings.TrimSpace(in.CustomerName)
	address := strings.TrimSpace(in.Address)
	if customerName == "" {
		return nil, invalidf("Customer name is required")
	}
	if address == "" {
		return nil, invalidf("Address is required")
	}
	if len(in.Items) == 0 {
		return nil, invalidf("Order must contain at least one item")
	}
	if in.Location != nil && s.zone != nil && !s.zone.Contains(*in.Location) {
		return nil, invalidf("Delivery address is outside our delivery radius")
	}

	var coupon *models.Coupon
	if strings.TrimSpace(in.CouponCode) != "" {
		c, err := s.coupons.FindActive(ctx, in.CouponCode)
		if errors.Is(err, ErrNotFound) {
			return nil, invalidf("Coupon not found or is inactive")
		}
		if err != nil {
			return nil, err
		}
		coupon = c
	}

	order := models.Order{
		UserID:       userID,
		CustomerName: customerName,
		Address:      address,
		Location:     in.Location,
		Status:       models.OrderReceived,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(in.Items))
		for _, line := range in.Items {
			ids = append(ids, line.MenuItemID)
		}
		var menuItems []models.MenuItem
		if err := tx.Where("id IN ?", ids).Find(&menuItems).Error; err != nil {
			return fmt.Errorf("load menu items: %w", err)
		}
		byID := make(map[uint]models.MenuItem, len(menuItems))
		for _, m := range menuItems {
			byID[m.ID] = m
		}

		var subtotal float64
		for _, line := range in.Items {
			menuItem, ok := byID[line.MenuItemID]
			if !ok {
				return invalidf("Menu item %d does not exist", line.MenuItemID)
			}
			if line.Quantity < 1 {
				return invalidf("Quantity for %s must be at least 1", menuItem.Name)
			}
			variant := strings.ToLower(strings.TrimSpace(line.Variant))
			if variant == "" {
				variant = models.VariantFull
			}
			price, ok := menuItem.Price.For(variant)
			if !ok {
				return invalidf("%s is not available as %q", menuItem.Name, variant)
			}

			item := models.OrderItem{
				MenuItemID:   menuItem.ID,
				Name:         menuItem.Name,
				Quantity:     line.Quantity,
				Variant:      variant,
				PriceAtOrder: price,
				Instructions: strings.TrimSpace(line.Instructions),
			}
			subtotal += item.Subtotal()
			order.Items = append(order.Items, item)
		}

		order.TotalPrice = roundMoney(subtotal)
		order.FinalPrice = order.TotalPrice
		if coupon != nil {
			_, order.FinalPrice = ApplyDiscount(order.TotalPrice, coupon.DiscountType, coupon.DiscountValue)
			order.AppliedCoupon = coupon.Snapshot()
		}

		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"order_id": order.ID, "user_id": userID, "final_price": order.FinalPrice}
	if mismatch(in.ClientTotal, order.TotalPrice) || mismatch(in.ClientFinal, order.FinalPrice) {
		utils.InfoLogger.WithFields(fields).Warn("client totals differ from server pricing, server totals kept")
	}
	utils.InfoLogger.WithFields(fields).Info("order created")

	metrics.OrdersCreated.Inc()
	if s.notifier != nil {
		s.notifier.OrderCreated(order)
	}
	return &order, nil
}

func mismatch(client *float64, server float64) bool {
	return client != nil && math.Abs(*client-server) > 0.005
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders of user %d: %w", userID, err)
	}
	return orders, nil
}

// ListAll returns every order with its items and customer, newest first.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) find(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find order %d: %w", id, err)
	}
	return &order, nil
}

// UpdateStatus moves an order along its lifecycle. Leaving Received also
// acknowledges the order. Setting the current status again changes nothing.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	status = strings.TrimSpace(status)
	if !validStatus(status) {
		return nil, invalidf("Invalid status %q", status)
	}

	db := s.db.WithContext(ctx)
	order, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if !CanTransition(order.Status, status) {
		return nil, invalidf("Cannot change order status from %s to %s", order.Status, status)
	}

	from := order.Status
	updates := map[string]interface{}{"status": status}
	if from == models.OrderReceived {
		updates["is_acknowledged"] = true
	}
	res := db.Model(&models.Order{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, invalidf("Order %d changed concurrently, reload and retry", id)
	}

	order.Status = status
	if from == models.OrderReceived {
		order.IsAcknowledged = true
	}

	utils.InfoLogger.WithFields(logrus.Fields{"order_id": id, "from": from, "to": status}).Info("order status changed")
	metrics.OrderTransitions.WithLabelValues(status).Inc()
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(*order)
	}
	return order, nil
}

// Acknowledge marks an order as seen by staff without changing its status.
func (s *OrderService) Acknowledge(ctx context.Context, id uint) (*models.Order, error) {
	db := s.db.WithContext(ctx)
	order, err := s.find(db, id)
	if err != nil {
		return nil, err
	}
	if order.IsAcknowledged {
		return order, nil
	}

	if err := db.Model(&models.Order{}).Where("id = ?", id).Update("is_acknowledged", true).Error; err != nil {
		return nil, fmt.Errorf("acknowledge order %d: %w", id, err)
	}
	order.IsAcknowledged = true

	if s.notifier != nil {
		s.notifier.OrderAcknowledged(*order)
	}
	return order, nil
}
