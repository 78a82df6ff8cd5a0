package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rfm-segments/pkg/models"
)

// DefaultSheet is the 2010-2011 sheet of the Online Retail II workbook.
const DefaultSheet = "Year 2010-2011"

// ReadXLSX reads order lines from one sheet of a workbook. An empty sheet
// name selects the first sheet. Cell values are read raw, so dates arrive as
// Excel serial numbers.
func ReadXLSX(r io.Reader, sheet string) ([]models.OrderLine, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrEmptyFile
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var lines []models.OrderLine
	rowNum := 1
	for rows.Next() {
		rowNum++
		record, err := rows.Columns()
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
	if err := rows.Error(); err != nil {
		return nil, err
	}
	return lines, nil
}
