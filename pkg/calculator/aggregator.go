package calculator

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"rfm-segments/pkg/models"
)

const day = 24 * time.Hour

// progress est satisfait par *progressbar.ProgressBar.
type progress interface {
	Add(num int) error
}

type customerAcc struct {
	last     time.Time
	invoices map[string]struct{}
	monetary decimal.Decimal
}

// Aggregate regroupe des lignes nettoyées par client et calcule récence,
// fréquence et montant. Les clients dont le montant net est <= 0 sont exclus
// (second retour = nombre d'exclus). Le résultat est trié par identifiant client.
func Aggregate(lines []models.OrderLine, ref time.Time) ([]models.CustomerMetrics, int, error) {
	return aggregate(lines, ref, nil)
}

func aggregate(lines []models.OrderLine, ref time.Time, bar progress) ([]models.CustomerMetrics, int, error) {
	acc := make(map[string]*customerAcc)
	for _, l := range lines {
		if bar != nil {
			_ = bar.Add(1)
		}
		if !l.CustomerID.Valid {
			continue
		}
		a, ok := acc[l.CustomerID.String]
		if !ok {
			a = &customerAcc{invoices: make(map[string]struct{})}
			acc[l.CustomerID.String] = a
		}
		if l.InvoiceDate.After(a.last) {
			a.last = l.InvoiceDate
		}
		a.invoices[l.Invoice] = struct{}{}
		a.monetary = a.monetary.Add(l.Value)
	}

	ids := make([]string, 0, len(acc))
	for id := range acc {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareCustomerIDs)

	out := make([]models.CustomerMetrics, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		a := acc[id]
		if a.last.After(ref) {
			return nil, 0, fmt.Errorf("%w: customer %s invoiced at %s, reference %s",
				ErrInvoiceAfterReference, id, a.last.Format(time.RFC3339), ref.Format(time.RFC3339))
		}
		if !a.monetary.IsPositive() {
			dropped++
			continue
		}
		out = append(out, models.CustomerMetrics{
			CustomerID: id,
			Recency:    recencyDays(ref, a.last),
			Frequency:  len(a.invoices),
			Monetary:   a.monetary,
		})
	}
	return out, dropped, nil
}

// recencyDays : jours entiers écoulés entre la dernière facture et la référence.
func recencyDays(ref, last time.Time) int {
	return int(ref.Sub(last) / day)
}

// compareCustomerIDs trie numériquement quand les deux identifiants sont des
// entiers (12346 < 123460), lexicographiquement sinon.
func compareCustomerIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(na, nb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return cmp.Compare(a, b)
}
