package calculator

import (
	"cmp"
	"slices"

	"rfm-segments/pkg/models"
)

// Summarize calcule, par segment, l'effectif et moyenne/médiane/min/max des
// trois métriques. Tri : effectif décroissant puis nom de segment.
func Summarize(customers []models.SegmentedCustomer) []models.SegmentSummary {
	type columns struct {
		recency, frequency, monetary []float64
	}
	bySegment := make(map[models.Segment]*columns)
	for _, c := range customers {
		col, ok := bySegment[c.Segment]
		if !ok {
			col = &columns{}
			bySegment[c.Segment] = col
		}
		col.recency = append(col.recency, float64(c.Recency))
		col.frequency = append(col.frequency, float64(c.Frequency))
		col.monetary = append(col.monetary, c.Monetary.InexactFloat64())
	}

	out := make([]models.SegmentSummary, 0, len(bySegment))
	for seg, col := range bySegment {
		out = append(out, models.SegmentSummary{
			Segment:   seg,
			Count:     len(col.recency),
			Recency:   describe(col.recency),
			Frequency: describe(col.frequency),
			Monetary:  describe(col.monetary),
		})
	}
	slices.SortFunc(out, func(a, b models.SegmentSummary) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Segment, b.Segment)
	})
	return out
}

func describe(values []float64) models.Stats {
	if len(values) == 0 {
		return models.Stats{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return models.Stats{
		Mean:   sum / float64(len(sorted)),
		Median: quantile(sorted, 0.5),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
