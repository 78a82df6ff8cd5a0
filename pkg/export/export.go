package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/models"
)

// FileName returns the export file name for a segment, e.g. loyal_customers.csv.
func FileName(segment models.Segment) string {
	return string(segment) + ".csv"
}

// WriteCSV writes the customer ids with a leading 0-based index column:
//
//	,customer_id
//	0,12346
//	1,12347
func WriteCSV(w io.Writer, customers []models.SegmentedCustomer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", "customer_id"}); err != nil {
		return err
	}
	for i, c := range customers {
		if err := cw.Write([]string{strconv.Itoa(i), c.CustomerID}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Written describes one exported file.
type Written struct {
	Segment   models.Segment `json:"segment"`
	Customers int            `json:"customers"`
	Location  string         `json:"location"`
}

// Segments writes one file per requested segment name to sink. Every name is
// checked before anything is written, so an unknown name exports nothing.
// A segment with no customers still produces a header-only file.
func Segments(ctx context.Context, sink Sink, customers []models.SegmentedCustomer, names []string, logger *zap.Logger) ([]Written, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	segments := make([]models.Segment, 0, len(names))
	for _, name := range names {
		seg, ok := models.ParseSegment(name)
		if !ok {
			return nil, fmt.Errorf("unknown segment %q", name)
		}
		segments = append(segments, seg)
	}

	written := make([]Written, 0, len(segments))
	for _, seg := range segments {
		members := calculator.Filter(customers, seg)

		var buf bytes.Buffer
		if err := WriteCSV(&buf, members); err != nil {
			return written, fmt.Errorf("encode %s: %w", seg, err)
		}
		name := FileName(seg)
		if err := sink.Put(ctx, name, buf.Bytes()); err != nil {
			return written, err
		}
		w := Written{Segment: seg, Customers: len(members), Location: sink.Location(name)}
		logger.Info("segment exported",
			zap.String("segment", string(seg)),
			zap.Int("customers", w.Customers),
			zap.String("location", w.Location),
		)
		written = append(written, w)
	}
	return written, nil
}
