package dialogue

import (
	"fmt"

	"github.com/jonathan/procurement-caller/internal/llm"
	"github.com/jonathan/procurement-caller/internal/prompts"
	"github.com/jonathan/procurement-caller/internal/types"
)

// Order is the fixed context of a call: who is called and what is ordered.
type Order struct {
	Supplier types.Supplier
	Items    []types.OrderItem
	Language types.Language
}

func (o Order) templateData(marker string) map[string]string {
	contact := o.Supplier.ContactPerson
	if contact == "" {
		contact = o.Supplier.SupplierName
	}
	return map[string]string{
		"SupplierName":  o.Supplier.SupplierName,
		"ContactPerson": contact,
		"Items":         types.DescribeItems(o.Items),
		"Marker":        marker,
		"Payload":       llm.OrderConfirmationSchema().PromptContract(),
	}
}

// SystemInstruction describes the goal of the call and the termination convention.
func SystemInstruction(order Order, marker string) (string, error) {
	text, err := prompts.Render(prompts.KeySystemInstruction, string(order.Language), order.templateData(marker))
	if err != nil {
		return "", fmt.Errorf("failed to build system instruction: %w", err)
	}
	return text, nil
}

// OpeningLine is the first utterance of the agent, listing the requested items.
func OpeningLine(order Order) (string, error) {
	text, err := prompts.Render(prompts.KeyOpening, string(order.Language), order.templateData(""))
	if err != nil {
		return "", fmt.Errorf("failed to build opening line: %w", err)
	}
	return text, nil
}

// ApologyLine is spoken before hanging up after an internal failure.
func ApologyLine(lang types.Language) string {
	return fixedLine(prompts.KeyApology, lang, "I'm sorry, we're having technical difficulties. Goodbye.")
}

// NoResponseLine is spoken before hanging up when the supplier stays silent.
func NoResponseLine(lang types.Language) string {
	return fixedLine(prompts.KeyNoResponse, lang, "I didn't hear a response. Goodbye.")
}

func fixedLine(key string, lang types.Language, fallback string) string {
	text, err := prompts.Render(key, string(lang), nil)
	if err != nil {
		return fallback
	}
	return text
}
