package models

import "time"

const (
	VariantHalf = "half"
	VariantFull = "full"

	DefaultCategory = "Uncategorized"
)

// Price holds the per-variant price of a menu item. Half is optional.
type Price struct {
	Half *float64 `gorm:"column:half" json:"half,omitempty"`
	Full float64  `gorm:"column:full;not null" json:"full"`
}

// For returns the price of the given variant and whether the item offers it.
func (p Price) For(variant string) (float64, bool) {
	switch variant {
	case VariantFull:
		return p.Full, true
	case VariantHalf:
		if p.Half == nil {
			return 0, false
		}
		return *p.Half, true
	}
	return 0, false
}

type MenuItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       Price     `gorm:"embedded;embeddedPrefix:price_" json:"price"`
	ImageUrl    string    `gorm:"type:varchar(512)" json:"imageUrl"`
	Category    string    `gorm:"type:varchar(100);index;not null;default:'Uncategorized'" json:"category"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
