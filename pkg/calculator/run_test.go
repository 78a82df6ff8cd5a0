package calculator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rfm-segments/pkg/models"
)

// dataset : 20 clients, client i a une récence i, (i%4)+1 factures et un
// montant i+0.5 ; plus une ligne sans client et une annulation.
func dataset() []models.OrderLine {
	var lines []models.OrderLine
	for i := 1; i <= 20; i++ {
		id := fmt.Sprintf("%d", 12345+i)
		for k := 0; k <= i%4; k++ {
			price := "0"
			if k == 0 {
				price = fmt.Sprintf("%d.5", i)
			}
			lines = append(lines, line(fmt.Sprintf("5%02d%d", i, k), id, 1, price, daysBefore(i+k)))
		}
	}
	lines = append(lines,
		line("581000", "", 5, "3.00", daysBefore(1)),
		line("C581001", "12346", -1, "1.5", daysBefore(1)),
	)
	return lines
}

func TestRun(t *testing.T) {
	cfg := models.Config{ReferenceDate: refDate, RunID: "run-1"}

	res, err := Run(context.Background(), dataset(), cfg, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	require.Len(t, res.Customers, 20)
	assert.Equal(t, 1, res.Stats.DroppedNullCustomer)
	assert.Equal(t, 1, res.Stats.DroppedCancelled)
	assert.Equal(t, 20, res.Stats.SegmentedCustomers)
	assert.Equal(t, 0, res.Stats.DroppedNonPositive)

	total := 0
	for _, s := range res.Summary {
		total += s.Count
	}
	assert.Equal(t, 20, total)

	for _, c := range res.Customers {
		assert.True(t, c.Monetary.IsPositive())
		assert.GreaterOrEqual(t, c.Recency, 0)
		assert.NotEmpty(t, c.Segment)
	}

	// client 12346 : facture la plus récente, une seule facture
	first := res.Customers[0]
	assert.Equal(t, "12346", first.CustomerID)
	assert.Equal(t, 1, first.Recency)
	assert.Equal(t, 2, first.Frequency)
	assert.Equal(t, 5, first.RecencyScore)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := models.Config{ReferenceDate: refDate}

	a, err := Run(context.Background(), dataset(), cfg, nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), dataset(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Customers, b.Customers)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestRun_MissingReferenceDate(t *testing.T) {
	_, err := Run(context.Background(), dataset(), models.Config{}, nil)

	assert.ErrorIs(t, err, ErrMissingReferenceDate)
}

func TestRun_PropagatesScoringErrors(t *testing.T) {
	lines := []models.OrderLine{line("1", "1", 1, "1", refDate)}

	_, err := Run(context.Background(), lines, models.Config{ReferenceDate: refDate}, nil)

	assert.ErrorIs(t, err, ErrInsufficientPopulation)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, dataset(), models.Config{ReferenceDate: refDate}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_LogsStages(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	logger := zap.New(core).With(zap.String("run_id", "abc"))

	_, err := Run(context.Background(), dataset(), models.Config{ReferenceDate: refDate, RunID: "abc"}, logger)
	require.NoError(t, err)

	cleaned := logs.FilterMessage("lignes nettoyées").All()
	require.Len(t, cleaned, 1)
	assert.Equal(t, "abc", cleaned[0].ContextMap()["run_id"])
	for _, entry := range logs.All() {
		n := 0
		for _, f := range entry.Context {
			if f.Key == "run_id" {
				n++
			}
		}
		assert.Equal(t, 1, n, entry.Message)
	}
	assert.NotEmpty(t, logs.FilterMessage("segment").All())
}

func TestParseReferenceDate_Valid(t *testing.T) {
	got, err := ParseReferenceDate("2011-12-11")
	require.NoError(t, err)
	assert.True(t, got.Equal(refDate), "got %v", got)

	got, err = ParseReferenceDate("2011-12-11T10:30:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2011, 12, 11, 9, 30, 0, 0, time.UTC), got)
}

func TestParseReferenceDate_Invalid(t *testing.T) {
	_, err := ParseReferenceDate("11/12/2011")
	assert.Error(t, err)

	_, err = ParseReferenceDate("  ")
	assert.ErrorIs(t, err, ErrMissingReferenceDate)
}
