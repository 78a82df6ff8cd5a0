package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"rfm-segments/pkg/models"
)

var (
	// ErrEmptyFile is returned when the input has no header row
	ErrEmptyFile = errors.New("file is empty")

	// ErrUnsupportedEncoding is returned for an unknown encoding name
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// CSVOption configures ReadCSV
type CSVOption func(*csvOptions)

type csvOptions struct {
	delimiter rune
	encoding  string
}

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(o *csvOptions) {
		o.delimiter = d
	}
}

// WithEncoding sets the input encoding: utf-8 (default), latin1 or windows-1252
func WithEncoding(name string) CSVOption {
	return func(o *csvOptions) {
		o.encoding = name
	}
}

// decoder wraps r so that it yields UTF-8.
func decoder(r io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
}

// ReadCSV reads order lines from a header-first CSV stream. A UTF-8 BOM is
// stripped, empty rows are skipped, and the first unparsable row aborts the read.
func ReadCSV(r io.Reader, opts ...CSVOption) ([]models.OrderLine, error) {
	o := csvOptions{delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}

	dec, err := decoder(r, o.encoding)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(dec)
	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.Comma = o.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var lines []models.OrderLine
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", rowNum, err)
		}
		if isEmpty(record) {
			continue
		}
		l, err := parseRow(rowNum, record, cols)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func isEmpty(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
