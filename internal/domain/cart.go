package domain

// ProductSnapshot is a product as captured when it was added to the cart.
// It holds only value fields so that copying the struct copies the snapshot.
type ProductSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	SellerID    string  `json:"sellerId,omitempty"`
	SellerName  string  `json:"sellerName,omitempty"`
}

// CartLine is one (product, quantity) pair in the cart
type CartLine struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal is quantity times the snapshot price.
func (l CartLine) LineTotal() float64 {
	return float64(l.Quantity) * l.Product.Price
}

// CloneLines copies a line slice. A nil input yields an empty, non-nil slice.
func CloneLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
