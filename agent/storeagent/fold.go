package storeagent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

// Gateway tool names the agent knows how to interpret.
const (
	ToolInvoiceLookup = "invoice_lookup"
	ToolInvoiceRefund = "invoice_refund"
	ToolMediaLookup   = "media_lookup"
)

// OutcomeKind discriminates the folded tool result.
type OutcomeKind int

const (
	OutcomeRefund OutcomeKind = iota
	OutcomeLookup
	OutcomeMedia
	OutcomeUnknown
)

// PurchaseLine is one row of an invoice lookup result.
type PurchaseLine struct {
	InvoiceLineID     int64   `json:"invoice_line_id"`
	TrackName         string  `json:"track_name"`
	ArtistName        string  `json:"artist_name"`
	PurchaseDate      string  `json:"purchase_date"`
	QuantityPurchased int64   `json:"quantity_purchased"`
	PricePerUnit      float64 `json:"price_per_unit"`
}

// ToolOutcome is the tagged union decoded from a gateway result immediately
// after invocation. Exactly one of the payload fields is meaningful,
// selected by Kind.
type ToolOutcome struct {
	Kind OutcomeKind
	Tool string

	Refunded float64        // OutcomeRefund
	Lines    []PurchaseLine // OutcomeLookup
	Text     string         // OutcomeMedia
}

// foldToolResult decodes the gateway's opaque text content into a typed
// outcome based on the tool name. Unknown names yield OutcomeUnknown rather
// than an error so the caller can surface them explicitly.
func foldToolResult(tool string, content string) (ToolOutcome, error) {
	switch tool {
	case ToolInvoiceRefund:
		total, err := strconv.ParseFloat(strings.TrimSpace(content), 64)
		if err != nil {
			return ToolOutcome{}, fmt.Errorf("%w: refund total %q is not a number", contractx.ErrSchemaViolation, content)
		}
		return ToolOutcome{Kind: OutcomeRefund, Tool: tool, Refunded: total}, nil

	case ToolInvoiceLookup:
		var lines []PurchaseLine
		if err := json.Unmarshal([]byte(content), &lines); err != nil {
			return ToolOutcome{}, fmt.Errorf("%w: decode lookup result: %v", contractx.ErrSchemaViolation, err)
		}
		return ToolOutcome{Kind: OutcomeLookup, Tool: tool, Lines: lines}, nil

	case ToolMediaLookup:
		return ToolOutcome{Kind: OutcomeMedia, Tool: tool, Text: content}, nil

	default:
		return ToolOutcome{Kind: OutcomeUnknown, Tool: tool}, nil
	}
}
