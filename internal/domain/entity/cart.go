package entity

import (
	"errors"
)

var (
	ErrInvalidProduct  = errors.New("cart item product must have an id")
	ErrEmptySize       = errors.New("cart item size cannot be empty")
	ErrInvalidQuantity = errors.New("cart item quantity must be positive")
)

// LineItem is one (product, size) pairing in the cart. Product is held by
// reference so price changes on the product show up in the cart total.
type LineItem struct {
	Product  *Product `json:"product"`
	Size     string   `json:"size"`
	Quantity int      `json:"quantity"`
}

func NewLineItem(product *Product, size string, quantity int) (*LineItem, error) {
	if product == nil || product.ID == "" {
		return nil, ErrInvalidProduct
	}
	if size == "" {
		return nil, ErrEmptySize
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &LineItem{Product: product, Size: size, Quantity: quantity}, nil
}

func (i LineItem) Matches(productID, size string) bool {
	return i.Product != nil && i.Product.ID == productID && i.Size == size
}

func (i LineItem) Subtotal() float64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.Price * float64(i.Quantity)
}

type Cart struct {
	Items []LineItem `json:"items"`
}

func NewCart() Cart {
	return Cart{Items: make([]LineItem, 0)}
}

// IndexOf returns the position of the (productID, size) line item or -1.
func (c Cart) IndexOf(productID, size string) int {
	for i, item := range c.Items {
		if item.Matches(productID, size) {
			return i
		}
	}
	return -1
}

func (c Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

func (c Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone copies the item slice. Product pointers are shared.
func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}
