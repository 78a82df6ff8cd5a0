// Package source reads order lines from CSV, XLSX and SQL sources.
package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"rfm-segments/pkg/models"
)

// RowError reports a value that could not be parsed in a specific row.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d, column '%s': %s (%q)", e.Row, e.Column, e.Message, e.Value)
	}
	return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
}

// MissingColumnsError lists required columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// columnAliases maps each canonical column to the header names accepted for
// it (Online Retail I and II spell a few of them differently).
var columnAliases = map[string][]string{
	models.ColInvoice:     {"Invoice", "InvoiceNo", "invoice", "invoice_no"},
	models.ColStockCode:   {"StockCode", "stock_code"},
	models.ColDescription: {"Description", "description"},
	models.ColQuantity:    {"Quantity", "quantity"},
	models.ColInvoiceDate: {"InvoiceDate", "invoice_date"},
	models.ColPrice:       {"Price", "UnitPrice", "price", "unit_price"},
	models.ColCustomerID:  {"Customer ID", "CustomerID", "customer_id"},
	models.ColCountry:     {"Country", "country"},
}

// optionalColumns may be absent from the header.
var optionalColumns = map[string]bool{
	models.ColStockCode:   true,
	models.ColDescription: true,
	models.ColCountry:     true,
}

// resolveColumns maps canonical column names to their index in header.
func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	cols := make(map[string]int, len(models.Columns))
	var missing []string
	for _, col := range models.Columns {
		found := false
		for _, alias := range columnAliases[col] {
			if i, ok := index[alias]; ok {
				cols[col] = i
				found = true
				break
			}
		}
		if !found && !optionalColumns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return cols, nil
}

// parseRow converts one record into an order line. rowNum is 1-indexed and
// counts the header row.
func parseRow(rowNum int, record []string, cols map[string]int) (models.OrderLine, error) {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	l := models.OrderLine{
		Invoice:     get(models.ColInvoice),
		StockCode:   get(models.ColStockCode),
		Description: get(models.ColDescription),
		CustomerID:  models.NewCustomerID(get(models.ColCustomerID)),
		Country:     get(models.ColCountry),
	}
	if l.Invoice == "" {
		return l, RowError{Row: rowNum, Column: models.ColInvoice, Message: "required"}
	}

	raw := get(models.ColQuantity)
	qty, err := parseQuantity(raw)
	if err != nil {
		return l, RowError{Row: rowNum, Column: models.ColQuantity, Message: "invalid integer", Value: raw}
	}
	l.Quantity = qty

	raw = get(models.ColPrice)
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return l, RowError{Row: rowNum, Column: models.ColPrice, Message: "invalid decimal", Value: raw}
	}
	l.UnitPrice = price

	raw = get(models.ColInvoiceDate)
	at, err := parseTimestamp(raw)
	if err != nil {
		return l, RowError{Row: rowNum, Column: models.ColInvoiceDate, Message: "invalid timestamp", Value: raw}
	}
	l.InvoiceDate = at

	return l, nil
}

func parseQuantity(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %s", s)
	}
	return int(f), nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"2006-01-02",
}

// parseTimestamp accepts the usual export layouts and Excel serial dates.
// Timestamps carry no zone in the source data and are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return t.Round(time.Second).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp layout: %s", s)
}
