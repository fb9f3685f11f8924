// Package catalog holds supplier and product master data and selects which
// supplier to call for an order.
package catalog

import "github.com/jonathan/procurement-caller/internal/types"

// MatchSuppliers returns the suppliers whose specialty equals the target
// exactly (case-sensitive), preserving the pool order.
// Returns *NoMatchError when nothing matches.
func MatchSuppliers(specialty string, pool []types.Supplier) ([]types.Supplier, error) {
	var matches []types.Supplier
	for _, s := range pool {
		if s.Specialty == specialty {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return nil, &NoMatchError{Specialty: specialty}
	}
	return matches, nil
}

// SelectSupplier picks the supplier to call: the first match in pool order.
func SelectSupplier(specialty string, pool []types.Supplier) (types.Supplier, error) {
	matches, err := MatchSuppliers(specialty, pool)
	if err != nil {
		return types.Supplier{}, err
	}
	return matches[0], nil
}
