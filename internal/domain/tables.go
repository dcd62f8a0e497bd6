package domain

var Tables = []interface{}{
	// Identity
	&User{},
	&Role{},
	&UserRole{},
	// Catalog
	&Category{},
	&Brand{},
	&Product{},
	&Banner{},
	&ProductReview{},
	&ProductChatMessage{},
	// Shop
	&CartItem{},
	&Voucher{},
	&Order{},
	&OrderItem{},
}
