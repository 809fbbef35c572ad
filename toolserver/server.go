package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	contractx "github.com/avelar/tunedesk/agent/contract"
	"github.com/avelar/tunedesk/toolserver/invoice"
	"github.com/avelar/tunedesk/toolserver/media"
)

// Tool names served by the gateway.
const (
	ToolInvoiceLookup = "invoice_lookup"
	ToolInvoiceRefund = "invoice_refund"
	ToolMediaLookup   = "media_lookup"
)

// NewGateway builds the in-process tool gateway over the invoice ledger and
// media QnA services.
func NewGateway(invoices *invoice.Service, medias *media.Service) (*Registry, error) {
	r := NewRegistry()

	if err := r.Register(lookupSpec(), lookupHandler(invoices)); err != nil {
		return nil, err
	}
	if err := r.Register(refundSpec(), refundHandler(invoices)); err != nil {
		return nil, err
	}
	if err := r.Register(mediaSpec(), mediaHandler(medias)); err != nil {
		return nil, err
	}
	return r, nil
}

func lookupSpec() contractx.ToolSpec {
	return contractx.ToolSpec{
		Name:        ToolInvoiceLookup,
		Description: "Look up invoice line IDs based on customer and optional filters.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_first_name": map[string]any{"type": "string", "description": "Customer's first name."},
				"customer_last_name":  map[string]any{"type": "string", "description": "Customer's last name."},
				"customer_phone":      map[string]any{"type": "string", "description": "Customer's phone number, exactly as the customer wrote it."},
				"track_name":          map[string]any{"type": "string", "description": "(Optional) Name of the track."},
				"album_title":         map[string]any{"type": "string", "description": "(Optional) Title of the album."},
				"artist_name":         map[string]any{"type": "string", "description": "(Optional) Name of the artist."},
				"purchase_date_iso_8601": map[string]any{
					"type":        "string",
					"description": "(Optional) Purchase date in ISO 8601 format (YYYY-MM-DD).",
				},
			},
			"required": []string{"customer_first_name", "customer_last_name", "customer_phone"},
		},
	}
}

func refundSpec() contractx.ToolSpec {
	return contractx.ToolSpec{
		Name:        ToolInvoiceRefund,
		Description: "Process a refund for the specified invoice or invoice lines.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"invoice_id": map[string]any{"type": "integer", "description": "(Optional) The Invoice ID to refund."},
				"invoice_line_ids": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer"},
					"description": "(Optional) List of Invoice Line IDs to refund.",
				},
				"mock": map[string]any{
					"type":        "boolean",
					"description": "If true, do not actually delete records (for testing purposes).",
					"default":     true,
				},
			},
			"required": []string{},
		},
	}
}

func mediaSpec() contractx.ToolSpec {
	return contractx.ToolSpec{
		Name:        ToolMediaLookup,
		Description: "Answer general questions about tracks, albums, and artists sold at the store.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "The customer's music question."},
			},
			"required": []string{"query"},
		},
	}
}

func lookupHandler(svc *invoice.Service) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		params := invoice.LookupParams{
			FirstName:       stringArg(args, "customer_first_name"),
			LastName:        stringArg(args, "customer_last_name"),
			Phone:           stringArg(args, "customer_phone"),
			TrackName:       stringArg(args, "track_name"),
			AlbumTitle:      stringArg(args, "album_title"),
			ArtistName:      stringArg(args, "artist_name"),
			PurchaseDateISO: stringArg(args, "purchase_date_iso_8601"),
		}

		rows, err := svc.Lookup(ctx, params)
		if err != nil {
			return "", err
		}

		encoded, err := json.Marshal(rows)
		if err != nil {
			return "", fmt.Errorf("encode lookup result: %w", err)
		}
		return string(encoded), nil
	}
}

func refundHandler(svc *invoice.Service) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		params := invoice.RefundParams{
			Mock: true,
		}
		if v, ok := args["mock"].(bool); ok {
			params.Mock = v
		}
		if id, ok := intArg(args, "invoice_id"); ok {
			params.InvoiceID = &id
		}

		if raw, ok := args["invoice_line_ids"].([]any); ok {
			for _, item := range raw {
				id, ok := asInt(item)
				if !ok {
					return "", fmt.Errorf("%w: invoice_line_ids must be integers", contractx.ErrValidation)
				}
				params.InvoiceLineIDs = append(params.InvoiceLineIDs, id)
			}
		}

		total, err := svc.Refund(ctx, params)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", total), nil
	}
}

func mediaHandler(svc *media.Service) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query := stringArg(args, "query")
		if query == "" {
			return "", fmt.Errorf("%w: 'query' parameter is required for %s", contractx.ErrValidation, ToolMediaLookup)
		}
		return svc.Answer(ctx, query)
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string) (int64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	return asInt(v)
}

// asInt accepts the numeric shapes JSON decoding can produce.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
