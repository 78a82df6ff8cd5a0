package calculator

import (
	"github.com/shopspring/decimal"

	"rfm-segments/pkg/models"
)

// Clean retire les lignes sans client puis les factures annulées, et calcule
// Value = Quantity × UnitPrice sur les lignes conservées.
// Le slice d'entrée n'est pas modifié ; un résultat vide est valide.
func Clean(lines []models.OrderLine) ([]models.OrderLine, models.CleanStats) {
	stats := models.CleanStats{RowsRead: len(lines)}
	out := make([]models.OrderLine, 0, len(lines))

	for _, l := range lines {
		if !l.CustomerID.Valid || l.CustomerID.String == "" {
			stats.DroppedNullCustomer++
			continue
		}
		if l.IsCancelled() {
			stats.DroppedCancelled++
			continue
		}
		l.Value = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		out = append(out, l)
	}

	stats.RowsKept = len(out)
	return out, stats
}
