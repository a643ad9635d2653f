package models

import "time"

const (
	OrderReceived       = "Received"
	OrderPreparing      = "Preparing"
	OrderReady          = "Ready"
	OrderOutForDelivery = "Out for Delivery"
	OrderDelivered      = "Delivered"
	OrderRejected       = "Rejected"
)

// OrderStatuses lists every status in lifecycle order, Rejected last.
var OrderStatuses = []string{
	OrderReceived,
	OrderPreparing,
	OrderReady,
	OrderOutForDelivery,
	OrderDelivered,
	OrderRejected,
}

// CouponSnapshot freezes the coupon terms applied to an order at checkout.
type CouponSnapshot struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
}

// GeoPoint is an optional delivery location.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"index;not null" json:"userId"`
	User           *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"user,omitempty"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	TotalPrice     float64         `gorm:"type:decimal(10,2);not null;default:0" json:"totalPrice"`
	FinalPrice     float64         `gorm:"type:decimal(10,2);not null;default:0" json:"finalPrice"`
	AppliedCoupon  *CouponSnapshot `gorm:"type:text;serializer:json" json:"appliedCoupon,omitempty"`
	CustomerName   string          `gorm:"type:varchar(255);not null" json:"customerName"`
	Address        string          `gorm:"type:text" json:"address"`
	Location       *GeoPoint       `gorm:"type:text;serializer:json" json:"location,omitempty"`
	Status         string          `gorm:"type:varchar(30);index;not null;default:'Received'" json:"status"`
	IsAcknowledged bool            `gorm:"not null;default:false" json:"isAcknowledged"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// IsTerminal reports whether the order can no longer change status.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderDelivered || o.Status == OrderRejected
}
