package calculator

import (
	"fmt"

	"rfm-segments/pkg/models"
)

// segmentRule couvre un rectangle de scores récence × fréquence.
type segmentRule struct {
	rMin, rMax int
	fMin, fMax int
	segment    models.Segment
}

func (r segmentRule) matches(recency, frequency int) bool {
	return recency >= r.rMin && recency <= r.rMax &&
		frequency >= r.fMin && frequency <= r.fMax
}

// segmentRules : évaluées dans l'ordre, la première règle qui correspond gagne.
// La table couvre les 25 codes de 11 à 55.
var segmentRules = []segmentRule{
	{1, 2, 1, 2, models.SegmentHibernating},
	{1, 2, 3, 4, models.SegmentAtRisk},
	{1, 2, 5, 5, models.SegmentCantLoose},
	{3, 3, 1, 2, models.SegmentAboutToSleep},
	{3, 3, 3, 3, models.SegmentNeedAttention},
	{3, 4, 4, 5, models.SegmentLoyalCustomers},
	{4, 4, 1, 1, models.SegmentPromising},
	{5, 5, 1, 1, models.SegmentNewCustomers},
	{4, 5, 2, 3, models.SegmentPotentialLoyalists},
	{5, 5, 4, 5, models.SegmentChampions},
}

// SegmentFor renvoie le segment d'un code composite, ex: "55" → champions.
func SegmentFor(code string) (models.Segment, error) {
	if len(code) != 2 {
		return "", fmt.Errorf("%w: %q", ErrUnmappedScore, code)
	}
	recency, frequency := int(code[0]-'0'), int(code[1]-'0')
	for _, rule := range segmentRules {
		if rule.matches(recency, frequency) {
			return rule.segment, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnmappedScore, code)
}

// Segment associe un segment à chaque client scoré.
// Un code sans segment est une erreur : aucun client n'est exporté sans segment.
func Segment(scored []models.ScoredCustomer) ([]models.SegmentedCustomer, error) {
	out := make([]models.SegmentedCustomer, len(scored))
	for i, c := range scored {
		seg, err := SegmentFor(c.Score)
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", c.CustomerID, err)
		}
		out[i] = models.SegmentedCustomer{ScoredCustomer: c, Segment: seg}
	}
	return out, nil
}

// Filter garde les clients des segments demandés, dans l'ordre d'entrée.
func Filter(customers []models.SegmentedCustomer, segments ...models.Segment) []models.SegmentedCustomer {
	want := make(map[models.Segment]bool, len(segments))
	for _, s := range segments {
		want[s] = true
	}
	var out []models.SegmentedCustomer
	for _, c := range customers {
		if want[c.Segment] {
			out = append(out, c)
		}
	}
	return out
}
