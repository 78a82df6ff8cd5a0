package calculator

import (
	"fmt"
	"slices"
	"sort"
	"strconv"

	"rfm-segments/pkg/models"
)

// Bins est le nombre de quantiles (quintiles) par métrique.
const Bins = 5

// Score découpe récence, fréquence et montant en quintiles sur toute la
// population et construit le code composite récence+fréquence.
//
// Récence : labels inversés (récence la plus basse → 5).
// Fréquence : découpée sur le rang "first" pour départager les égalités.
// Montant : score calculé mais absent du code composite.
func Score(metrics []models.CustomerMetrics) ([]models.ScoredCustomer, error) {
	n := len(metrics)
	if n < Bins {
		return nil, fmt.Errorf("%w: %d customers, need at least %d", ErrInsufficientPopulation, n, Bins)
	}

	recency := make([]float64, n)
	frequency := make([]int, n)
	monetary := make([]float64, n)
	for i, m := range metrics {
		recency[i] = float64(m.Recency)
		frequency[i] = m.Frequency
		monetary[i] = m.Monetary.InexactFloat64()
	}

	rScores, err := qcut(recency, true)
	if err != nil {
		return nil, fmt.Errorf("recency: %w", err)
	}
	fScores, err := qcut(rankFirst(frequency), false)
	if err != nil {
		return nil, fmt.Errorf("frequency: %w", err)
	}
	mScores, err := qcut(monetary, false)
	if err != nil {
		return nil, fmt.Errorf("monetary: %w", err)
	}

	out := make([]models.ScoredCustomer, n)
	for i, m := range metrics {
		out[i] = models.ScoredCustomer{
			CustomerMetrics: m,
			RecencyScore:    rScores[i],
			FrequencyScore:  fScores[i],
			MonetaryScore:   mScores[i],
			Score:           strconv.Itoa(rScores[i]) + strconv.Itoa(fScores[i]),
		}
	}
	return out, nil
}

// qcut affecte chaque valeur à un des Bins quantiles (1 = plus bas).
// Intervalles fermés à droite, borne basse incluse dans le premier.
func qcut(values []float64, inverted bool) ([]int, error) {
	edges, err := binEdges(values)
	if err != nil {
		return nil, err
	}
	upper := edges[1:]
	scores := make([]int, len(values))
	for i, v := range values {
		b := sort.SearchFloat64s(upper, v) + 1
		if b > Bins {
			b = Bins
		}
		if inverted {
			b = Bins + 1 - b
		}
		scores[i] = b
	}
	return scores, nil
}

// binEdges renvoie les Bins+1 bornes de quantile ; elles doivent être strictement croissantes.
func binEdges(values []float64) ([]float64, error) {
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	edges := make([]float64, Bins+1)
	for k := range edges {
		edges[k] = quantile(sorted, float64(k)/Bins)
	}
	for k := 1; k < len(edges); k++ {
		if edges[k] <= edges[k-1] {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateBinEdges, edges)
		}
	}
	return edges, nil
}

// quantile par interpolation linéaire sur un slice trié.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	w := pos - float64(lo)
	a, b := sorted[lo], sorted[hi]
	// forme symétrique : a == b donne exactement a
	if w < 0.5 {
		return a + (b-a)*w
	}
	return b - (b-a)*(1-w)
}

// rankFirst : rang 1..n, égalités départagées par ordre d'apparition.
func rankFirst(values []int) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})
	ranks := make([]float64, len(values))
	for r, i := range idx {
		ranks[i] = float64(r + 1)
	}
	return ranks
}
