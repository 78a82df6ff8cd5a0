package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"rfm-segments/pkg/models"
)

var refDate = time.Date(2011, 12, 11, 0, 0, 0, 0, time.UTC)

func line(invoice, customer string, qty int, price string, at time.Time) models.OrderLine {
	l := models.OrderLine{
		Invoice:     invoice,
		StockCode:   "85123A",
		Description: "WHITE HANGING HEART T-LIGHT HOLDER",
		Quantity:    qty,
		InvoiceDate: at,
		UnitPrice:   decimal.RequireFromString(price),
		Country:     "United Kingdom",
		CustomerID:  models.NewCustomerID(customer),
	}
	return l
}

func daysBefore(n int) time.Time {
	return refDate.AddDate(0, 0, -n)
}

func metric(id string, recency, frequency int, monetary string) models.CustomerMetrics {
	return models.CustomerMetrics{
		CustomerID: id,
		Recency:    recency,
		Frequency:  frequency,
		Monetary:   decimal.RequireFromString(monetary),
	}
}
