package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/procurement-caller/internal/catalog"
)

const (
	maxCSVBody          = 10 << 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// handleImportSuppliers replaces the supplier catalog with the CSV body.
func (s *Server) handleImportSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := catalog.ParseSuppliersCSV(http.MaxBytesReader(w, r.Body, maxCSVBody))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.catalog.ReplaceSuppliers(suppliers)
	s.jsonResponse(w, http.StatusOK, map[string]int{"imported": len(suppliers)})
}

// handleImportProducts replaces the product catalog with the CSV body.
func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := catalog.ParseProductsCSV(http.MaxBytesReader(w, r.Body, maxCSVBody))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.catalog.ReplaceProducts(products)
	s.jsonResponse(w, http.StatusOK, map[string]int{"imported": len(products)})
}

func (s *Server) handleListSuppliers(w http.ResponseWriter, _ *http.Request) {
	list := s.catalog.Suppliers()
	s.jsonResponse(w, http.StatusOK, map[string]any{"suppliers": list, "count": len(list)})
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	list := s.catalog.Products()
	s.jsonResponse(w, http.StatusOK, map[string]any{"products": list, "count": len(list)})
}

// handleCallHistory lists archived calls, newest first.
func (s *Server) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.errorFor(w, &ErrUnavailable{Feature: "call history"})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorFor(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	calls, err := s.history.ListCalls(r.Context(), limit)
	if err != nil {
		s.errorFor(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"calls": calls, "count": len(calls)})
}
