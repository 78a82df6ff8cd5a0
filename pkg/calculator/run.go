package calculator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"rfm-segments/pkg/models"
)

// Run enchaîne nettoyage → agrégation → scores → segments → synthèse.
// Chaque étape consomme la sortie complète de la précédente.
// logger porte déjà le run_id : Run ne l'ajoute pas.
func Run(ctx context.Context, lines []models.OrderLine, cfg models.Config, logger *zap.Logger) (*models.Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReferenceDate.IsZero() {
		return nil, ErrMissingReferenceDate
	}

	cleaned, stats := Clean(lines)
	logger.Info("lignes nettoyées",
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("dropped_null_customer", stats.DroppedNullCustomer),
		zap.Int("dropped_cancelled", stats.DroppedCancelled),
		zap.Int("rows_kept", stats.RowsKept),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bar := newProgressBar(cfg.Progress, len(cleaned), "agrégation")
	metrics, dropped, err := aggregate(cleaned, cfg.ReferenceDate, bar)
	_ = bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	stats.Customers = len(metrics) + dropped
	stats.DroppedNonPositive = dropped
	logger.Info("métriques client calculées",
		zap.Int("customers", len(metrics)),
		zap.Int("dropped_non_positive", dropped),
		zap.Time("reference_date", cfg.ReferenceDate),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored, err := Score(metrics)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	segmented, err := Segment(scored)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	stats.SegmentedCustomers = len(segmented)

	summary := Summarize(segmented)
	for _, s := range summary {
		logger.Debug("segment",
			zap.String("segment", string(s.Segment)),
			zap.Int("count", s.Count),
			zap.Float64("recency_mean", s.Recency.Mean),
			zap.Float64("frequency_mean", s.Frequency.Mean),
			zap.Float64("monetary_mean", s.Monetary.Mean),
		)
	}

	return &models.Result{
		RunID:     cfg.RunID,
		Customers: segmented,
		Summary:   summary,
		Stats:     stats,
	}, nil
}

func newProgressBar(visible bool, total int, description string) *progressbar.ProgressBar {
	if visible {
		return progressbar.Default(int64(total), description)
	}
	return progressbar.DefaultSilent(int64(total), description)
}

var referenceLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseReferenceDate("2011-12-11") -> 2011-12-11 00:00 UTC
// Formats acceptés : date seule, date+heure, RFC3339.
func ParseReferenceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingReferenceDate
	}
	for _, layout := range referenceLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("format attendu YYYY-MM-DD (ex: 2011-12-11): %q", s)
}
