package invoice

import (
	"time"

	"github.com/uptrace/bun"
)

// Ledger models over the Chinook-style purchase schema. Column names follow
// the upstream database exactly.

type Customer struct {
	bun.BaseModel `bun:"table:Customer"`

	CustomerID int64  `bun:"CustomerId,pk,autoincrement"`
	FirstName  string `bun:"FirstName"`
	LastName   string `bun:"LastName"`
	Phone      string `bun:"Phone"`
}

type Invoice struct {
	bun.BaseModel `bun:"table:Invoice"`

	InvoiceID   int64     `bun:"InvoiceId,pk,autoincrement"`
	CustomerID  int64     `bun:"CustomerId"`
	InvoiceDate time.Time `bun:"InvoiceDate"`
	Total       float64   `bun:"Total"`
}

type InvoiceLine struct {
	bun.BaseModel `bun:"table:InvoiceLine"`

	InvoiceLineID int64   `bun:"InvoiceLineId,pk,autoincrement"`
	InvoiceID     int64   `bun:"InvoiceId"`
	TrackID       int64   `bun:"TrackId"`
	UnitPrice     float64 `bun:"UnitPrice"`
	Quantity      int64   `bun:"Quantity"`
}

type Track struct {
	bun.BaseModel `bun:"table:Track"`

	TrackID int64  `bun:"TrackId,pk,autoincrement"`
	Name    string `bun:"Name"`
	AlbumID int64  `bun:"AlbumId"`
}

type Album struct {
	bun.BaseModel `bun:"table:Album"`

	AlbumID  int64  `bun:"AlbumId,pk,autoincrement"`
	Title    string `bun:"Title"`
	ArtistID int64  `bun:"ArtistId"`
}

type Artist struct {
	bun.BaseModel `bun:"table:Artist"`

	ArtistID int64  `bun:"ArtistId,pk,autoincrement"`
	Name     string `bun:"Name"`
}
