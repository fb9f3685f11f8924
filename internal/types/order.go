// Package types provides the domain types shared by the procurement-call packages.
package types

import (
	"fmt"
	"strings"
)

// Supplier is a vendor that can be called to place an order.
// Field names follow the supplier CSV columns.
type Supplier struct {
	SupplierID    string `json:"supplierId" validate:"required"`
	SupplierName  string `json:"supplierName"`
	PhoneNumber   string `json:"phoneNumber" validate:"required"`
	Specialty     string `json:"specialty" validate:"required"`
	ContactPerson string `json:"contactPerson,omitempty"`
}

// Product is an item of the product catalog.
type Product struct {
	ProductID          string `json:"productId" validate:"required"`
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription,omitempty"` // Description handed to the dialogue model
	UnitOfMeasure      string `json:"unitOfMeasure,omitempty"`
}

// OrderItem is one requested line item.
type OrderItem struct {
	Product  Product `json:"product"`
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Notes    string  `json:"notes,omitempty"`
}

// DisplayName returns the product name, or its id when no name is known.
func (p Product) DisplayName() string {
	if p.ProductName != "" {
		return p.ProductName
	}
	return p.ProductID
}

// Describe renders the item as a short phrase, e.g. "5 kg x Tomatoes (ripe)".
func (i OrderItem) Describe() string {
	var sb strings.Builder
	if i.Quantity != nil {
		sb.WriteString(fmt.Sprintf("%d ", *i.Quantity))
		if i.Product.UnitOfMeasure != "" {
			sb.WriteString(i.Product.UnitOfMeasure)
			sb.WriteString(" ")
		}
		sb.WriteString("x ")
	}
	sb.WriteString(i.Product.DisplayName())
	if i.Notes != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", i.Notes))
	}
	return sb.String()
}

// DescribeItems joins the descriptions of all items with ", ".
func DescribeItems(items []OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Describe())
	}
	return strings.Join(parts, ", ")
}
