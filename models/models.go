package models

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&MenuItem{},
		&Order{},
		&OrderItem{},
		&Complaint{},
		&Coupon{},
	}
}
