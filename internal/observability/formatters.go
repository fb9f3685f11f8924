// Package observability renders catalog, job and call summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/procurement-caller/internal/db"
	"github.com/jonathan/procurement-caller/internal/jobs"
	"github.com/jonathan/procurement-caller/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to n runes. fmt's width counts bytes.
func pad(s string, n int) string {
	if c := utf8.RuneCountInString(s); c < n {
		return s + strings.Repeat(" ", n-c)
	}
	return s
}

// PrintSuppliers lists suppliers in catalog order.
func (p *Printer) PrintSuppliers(suppliers []types.Supplier) {
	var sb strings.Builder
	if len(suppliers) == 0 {
		sb.WriteString("No suppliers")
	}
	for i, s := range suppliers {
		sb.WriteString(fmt.Sprintf("%s  %s\n", s.SupplierID, s.SupplierName))
		sb.WriteString(fmt.Sprintf("    %s · %s", s.Specialty, s.PhoneNumber))
		if s.ContactPerson != "" {
			sb.WriteString(fmt.Sprintf(" · %s", s.ContactPerson))
		}
		if i < len(suppliers)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("SUPPLIERS (%d)", len(suppliers)), sb.String())
}

// PrintProducts lists the first products of the catalog.
func (p *Printer) PrintProducts(products []types.Product) {
	var sb strings.Builder
	if len(products) == 0 {
		sb.WriteString("No products")
	}
	count := min(len(products), maxItemsToShow)
	for i := 0; i < count; i++ {
		prod := products[i]
		sb.WriteString(fmt.Sprintf("• %s  %s", prod.ProductID, prod.DisplayName()))
		if prod.UnitOfMeasure != "" {
			sb.WriteString(fmt.Sprintf(" [%s]", prod.UnitOfMeasure))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(products) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more products", len(products)-maxItemsToShow))
	}
	p.printBox(fmt.Sprintf("PRODUCTS (%d)", len(products)), sb.String())
}

// PrintJob outputs the status, order and transcript of a job.
func (p *Printer) PrintJob(snap jobs.Snapshot) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", snap.ID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", snap.Status))
	if snap.FailureReason != "" {
		sb.WriteString(fmt.Sprintf("Reason:   %s\n", snap.FailureReason))
	}
	sb.WriteString(fmt.Sprintf("Supplier: %s (%s)\n", snap.Supplier.SupplierName, snap.Supplier.PhoneNumber))
	sb.WriteString(fmt.Sprintf("Order:    %s\n", types.DescribeItems(snap.Items)))
	writeExtracted(&sb, snap.ExtractedData)
	writeTranscript(&sb, snap.Transcript)
	p.printBox("CALL JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCallHistory outputs one line per archived call.
func (p *Printer) PrintCallHistory(calls []db.CallRecord) {
	var sb strings.Builder
	if len(calls) == 0 {
		sb.WriteString("No archived calls")
	}
	for i, c := range calls {
		sb.WriteString(fmt.Sprintf("%s  %s\n", c.EndedAt.Format(time.DateTime), c.Status))
		sb.WriteString(fmt.Sprintf("    %s → %s", c.SupplierName, deref(c.ConfirmationID, "no confirmation")))
		if i < len(calls)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("CALL HISTORY (%d)", len(calls)), sb.String())
}

func writeExtracted(sb *strings.Builder, data *types.ExtractedData) {
	if data == nil {
		return
	}
	sb.WriteString(fmt.Sprintf("Confirmed: %s\n", deref(data.ConfirmationID, "-")))
	sb.WriteString(fmt.Sprintf("Delivery:  %s\n", deref(data.DeliveryEstimate, "-")))
}

func writeTranscript(sb *strings.Builder, transcript []types.TranscriptEntry) {
	if len(transcript) == 0 {
		return
	}
	sb.WriteString("\nTranscript:\n")
	for _, entry := range transcript {
		sb.WriteString(fmt.Sprintf("  %-8s %s\n", entry.Speaker+":", entry.Text))
	}
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
