package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

// LookupParams filters the purchase ledger. First name, last name, and phone
// are required and matched exactly; in particular the phone number is
// compared byte-for-byte as the user provided it, with no normalization.
type LookupParams struct {
	FirstName string
	LastName  string
	Phone     string

	TrackName       string
	AlbumTitle      string
	ArtistName      string
	PurchaseDateISO string
}

func (p LookupParams) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("%w: customer_first_name is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: customer_last_name is required", contractx.ErrValidation)
	}
	if p.Phone == "" {
		return fmt.Errorf("%w: customer_phone is required", contractx.ErrValidation)
	}
	return nil
}

// RefundParams selects what to refund: an entire invoice, individual lines,
// or both. Neither form selected refunds nothing.
type RefundParams struct {
	InvoiceID      *int64
	InvoiceLineIDs []int64
	Mock           bool
}

// PurchaseLineRow is one lookup result row in ledger order.
type PurchaseLineRow struct {
	InvoiceLineID     int64   `bun:"invoice_line_id" json:"invoice_line_id"`
	TrackName         string  `bun:"track_name" json:"track_name"`
	ArtistName        string  `bun:"artist_name" json:"artist_name"`
	PurchaseDate      string  `bun:"purchase_date" json:"purchase_date"`
	QuantityPurchased int64   `bun:"quantity_purchased" json:"quantity_purchased"`
	PricePerUnit      float64 `bun:"price_per_unit" json:"price_per_unit"`
}

// Service executes lookup and refund operations against the purchase ledger.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("ledger db is required")
	}
	return &Service{db: db}, nil
}

// Lookup returns all invoice lines matching the given customer identity and
// optional exact-match filters. A non-matching identity yields an empty
// result set, never an error.
func (s *Service) Lookup(ctx context.Context, p LookupParams) ([]PurchaseLineRow, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	q := s.db.NewSelect().
		TableExpr(`"InvoiceLine" AS il`).
		ColumnExpr(`il."InvoiceLineId" AS invoice_line_id`).
		ColumnExpr(`t."Name" AS track_name`).
		ColumnExpr(`art."Name" AS artist_name`).
		ColumnExpr(`i."InvoiceDate" AS purchase_date`).
		ColumnExpr(`il."Quantity" AS quantity_purchased`).
		ColumnExpr(`il."UnitPrice" AS price_per_unit`).
		Join(`JOIN "Invoice" AS i ON il."InvoiceId" = i."InvoiceId"`).
		Join(`JOIN "Customer" AS c ON i."CustomerId" = c."CustomerId"`).
		Join(`JOIN "Track" AS t ON il."TrackId" = t."TrackId"`).
		Join(`JOIN "Album" AS alb ON t."AlbumId" = alb."AlbumId"`).
		Join(`JOIN "Artist" AS art ON alb."ArtistId" = art."ArtistId"`).
		Where(`c."FirstName" = ?`, p.FirstName).
		Where(`c."LastName" = ?`, p.LastName).
		Where(`c."Phone" = ?`, p.Phone)

	if p.TrackName != "" {
		q = q.Where(`t."Name" = ?`, p.TrackName)
	}
	if p.AlbumTitle != "" {
		q = q.Where(`alb."Title" = ?`, p.AlbumTitle)
	}
	if p.ArtistName != "" {
		q = q.Where(`art."Name" = ?`, p.ArtistName)
	}
	if p.PurchaseDateISO != "" {
		q = q.Where(`date(i."InvoiceDate") = date(?)`, p.PurchaseDateISO)
	}

	rows := make([]PurchaseLineRow, 0)
	if err := q.Order("invoice_line_id ASC").Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("lookup invoice lines: %w", err)
	}
	return rows, nil
}

// Refund computes the refundable total: the invoice-level total when an
// invoice id is given, plus SUM(UnitPrice * Quantity) over any given line
// ids. With Mock set it only computes; otherwise it deletes the invoice
// lines before the parent invoice (referential-integrity ordering), then the
// ad hoc lines, all in one transaction.
func (s *Service) Refund(ctx context.Context, p RefundParams) (float64, error) {
	if p.InvoiceID == nil && len(p.InvoiceLineIDs) == 0 {
		return 0, nil
	}

	var total float64

	if p.InvoiceID != nil {
		var invoiceTotal float64
		err := s.db.NewSelect().
			TableExpr(`"Invoice" AS i`).
			ColumnExpr(`i."Total"`).
			Where(`i."InvoiceId" = ?`, *p.InvoiceID).
			Scan(ctx, &invoiceTotal)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("fetch invoice total: %w", err)
		}
		total += invoiceTotal
	}

	if len(p.InvoiceLineIDs) > 0 {
		var lineTotal sql.NullFloat64
		err := s.db.NewSelect().
			TableExpr(`"InvoiceLine" AS il`).
			ColumnExpr(`SUM(il."UnitPrice" * il."Quantity")`).
			Where(`il."InvoiceLineId" IN (?)`, bun.In(p.InvoiceLineIDs)).
			Scan(ctx, &lineTotal)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sum invoice lines: %w", err)
		}
		if lineTotal.Valid {
			total += lineTotal.Float64
		}
	}

	if p.Mock {
		return total, nil
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if p.InvoiceID != nil {
			if _, err := tx.NewDelete().
				Model((*InvoiceLine)(nil)).
				Where(`"InvoiceId" = ?`, *p.InvoiceID).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete invoice lines: %w", err)
			}
			if _, err := tx.NewDelete().
				Model((*Invoice)(nil)).
				Where(`"InvoiceId" = ?`, *p.InvoiceID).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete invoice: %w", err)
			}
		}
		if len(p.InvoiceLineIDs) > 0 {
			if _, err := tx.NewDelete().
				Model((*InvoiceLine)(nil)).
				Where(`"InvoiceLineId" IN (?)`, bun.In(p.InvoiceLineIDs)).
				Exec(ctx); err != nil {
				return fmt.Errorf("delete ad hoc invoice lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}
