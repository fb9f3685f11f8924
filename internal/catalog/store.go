package catalog

import (
	"sync"

	"github.com/jonathan/procurement-caller/internal/types"
)

// Store keeps the imported suppliers and products in memory.
// An import replaces the previous data set, as the original CSV upload did.
type Store struct {
	mu        sync.RWMutex
	suppliers []types.Supplier
	products  map[string]types.Product
	order     []string
}

// NewStore creates an empty catalog.
func NewStore() *Store {
	return &Store{products: make(map[string]types.Product)}
}

// ReplaceSuppliers swaps in a new supplier list.
func (s *Store) ReplaceSuppliers(suppliers []types.Supplier) {
	cp := append([]types.Supplier(nil), suppliers...)
	s.mu.Lock()
	s.suppliers = cp
	s.mu.Unlock()
}

// ReplaceProducts swaps in a new product list. Later duplicates of a
// ProductID overwrite earlier ones.
func (s *Store) ReplaceProducts(products []types.Product) {
	byID := make(map[string]types.Product, len(products))
	order := make([]string, 0, len(products))
	for _, p := range products {
		if _, seen := byID[p.ProductID]; !seen {
			order = append(order, p.ProductID)
		}
		byID[p.ProductID] = p
	}

	s.mu.Lock()
	s.products = byID
	s.order = order
	s.mu.Unlock()
}

// Suppliers returns a copy of the supplier list in import order.
func (s *Store) Suppliers() []types.Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Supplier(nil), s.suppliers...)
}

// Products returns the products in import order.
func (s *Store) Products() []types.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

// Product looks up a product by id.
func (s *Store) Product(id string) (types.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// HydrateItems fills in product details for items that only carry a
// ProductID. Items with unknown ids are returned unchanged.
func (s *Store) HydrateItems(items []types.OrderItem) []types.OrderItem {
	out := make([]types.OrderItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Product.ProductName != "" {
			continue
		}
		if p, ok := s.Product(item.Product.ProductID); ok {
			out[i].Product = p
		}
	}
	return out
}
