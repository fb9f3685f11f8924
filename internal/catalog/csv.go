package catalog

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jonathan/procurement-caller/internal/types"
)

// Column order of the supplier and product CSV files. The first row of a
// file is a header and is skipped.
var (
	SupplierColumns = []string{"SupplierID", "SupplierName", "PhoneNumber", "Specialty", "ContactPerson"}
	ProductColumns  = []string{"ProductID", "ProductName", "ProductDescription_for_AI", "UnitOfMeasure"}
)

// ParseSuppliersCSV reads supplier records. Missing trailing columns are left empty.
func ParseSuppliersCSV(r io.Reader) ([]types.Supplier, error) {
	rows, err := readRows(r, len(SupplierColumns))
	if err != nil {
		return nil, err
	}

	suppliers := make([]types.Supplier, 0, len(rows))
	for i, row := range rows {
		if row[0] == "" {
			return nil, &CSVError{Line: i + 2, Message: "SupplierID is empty"}
		}
		suppliers = append(suppliers, types.Supplier{
			SupplierID:    row[0],
			SupplierName:  row[1],
			PhoneNumber:   row[2],
			Specialty:     row[3],
			ContactPerson: row[4],
		})
	}
	return suppliers, nil
}

// ParseProductsCSV reads product records. Missing trailing columns are left empty.
func ParseProductsCSV(r io.Reader) ([]types.Product, error) {
	rows, err := readRows(r, len(ProductColumns))
	if err != nil {
		return nil, err
	}

	products := make([]types.Product, 0, len(rows))
	for i, row := range rows {
		if row[0] == "" {
			return nil, &CSVError{Line: i + 2, Message: "ProductID is empty"}
		}
		products = append(products, types.Product{
			ProductID:          row[0],
			ProductName:        row[1],
			ProductDescription: row[2],
			UnitOfMeasure:      row[3],
		})
	}
	return products, nil
}

// readRows returns the data rows (header excluded), each padded to width
// columns with trimmed values. Blank lines are skipped.
func readRows(r io.Reader, width int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &CSVError{Message: "failed to read record", Cause: err}
		}
		if header {
			header = false
			continue
		}
		if isBlank(record) {
			continue
		}

		row := make([]string, width)
		for i := 0; i < width && i < len(record); i++ {
			row[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
