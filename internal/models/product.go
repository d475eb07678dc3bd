package models

// Product is a catalogue entry managed through the admin API.
type Product struct {
	ID          string         `json:"_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Stock       int            `json:"stock"`
	Category    string         `json:"category"`
	Seller      string         `json:"seller"`
	Images      []ProductImage `json:"images,omitempty"`
}

// ProductImage is a stored product picture.
type ProductImage struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// ReviewRequest posts a shopper's review of a product.
type ReviewRequest struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	ProductID string `json:"productId"`
}
