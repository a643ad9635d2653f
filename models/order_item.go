package models

type OrderItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	OrderID      uint    `gorm:"index;not null" json:"orderId"`
	MenuItemID   uint    `gorm:"not null" json:"menuItemId"`
	Name         string  `gorm:"type:varchar(255);not null" json:"name"`
	Quantity     int     `gorm:"not null" json:"quantity"`
	Variant      string  `gorm:"type:varchar(10);not null;default:'full'" json:"variant"`
	PriceAtOrder float64 `gorm:"type:decimal(10,2);not null" json:"priceAtOrder"`
	Instructions string  `gorm:"type:text" json:"instructions"`
}

// Subtotal is the line total at the snapshotted price.
func (i OrderItem) Subtotal() float64 {
	return i.PriceAtOrder * float64(i.Quantity)
}
