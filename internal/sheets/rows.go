package sheets

import (
	"saldo/internal/core"
)

// Header is the first row of every mirrored tab.
var Header = []any{"Data", "Descrição", "Categoria", "Status", "Valor"}

// lastColumn is the column of Header's last cell.
const lastColumn = "E"

// SheetTitle names the tab a period is mirrored to, e.g. "2024-03".
func SheetTitle(period core.Period) string {
	return period.String()
}

// BuildRows lays out a period as a header row, one row per record in the
// given order and a total row summing every record regardless of status.
func BuildRows(records []core.Expense) [][]any {
	rows := make([][]any, 0, len(records)+2)
	rows = append(rows, Header)

	var total core.Money
	for _, e := range records {
		rows = append(rows, []any{
			e.Date.String(),
			e.Description,
			e.Category.Label(),
			e.Status.Label(),
			e.Amount.Float64(),
		})
		total = total.Add(e.Amount)
	}

	rows = append(rows, []any{"", "Total", "", "", total.Float64()})
	return rows
}
