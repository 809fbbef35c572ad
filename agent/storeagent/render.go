package storeagent

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// renderPurchaseTable produces the human-readable rendering of lookup
// results used for the follow-up message.
func renderPurchaseTable(lines []PurchaseLine) string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Invoice Line ID", "Track", "Artist", "Purchase Date", "Quantity", "Unit Price"})
	for _, l := range lines {
		table.Append([]string{
			strconv.FormatInt(l.InvoiceLineID, 10),
			l.TrackName,
			l.ArtistName,
			l.PurchaseDate,
			strconv.FormatInt(l.QuantityPurchased, 10),
			strconv.FormatFloat(l.PricePerUnit, 'f', 2, 64),
		})
	}
	table.Render()
	return strings.TrimRight(sb.String(), "\n")
}
