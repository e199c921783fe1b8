package entity

// Product is the catalog record served by the storefront backend.
type Product struct {
	ID            string   `json:"_id" bson:"_id"`
	Name          string   `json:"name" bson:"name"`
	Description   string   `json:"description,omitempty" bson:"description,omitempty"`
	Price         float64  `json:"price" bson:"price"`
	OriginalPrice float64  `json:"original_price,omitempty" bson:"original_price,omitempty"`
	Images        []string `json:"images,omitempty" bson:"images,omitempty"`
	Sizes         []string `json:"sizes,omitempty" bson:"sizes,omitempty"`
	Category      string   `json:"category,omitempty" bson:"category,omitempty"`
	Subcategory   string   `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Material      string   `json:"material,omitempty" bson:"material,omitempty"`
	Stock         int      `json:"stock,omitempty" bson:"stock,omitempty"`
}

func (p *Product) HasSize(size string) bool {
	if len(p.Sizes) == 0 {
		return true
	}
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
