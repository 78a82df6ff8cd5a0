package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfm-segments/pkg/models"
)

func TestProfile(t *testing.T) {
	a := line("536365", "17850", 6, "2.55", refDate)
	b := line("536366", "", 10, "1.00", refDate)
	b.StockCode, b.Description = "22633", "HAND WARMER UNION JACK"
	c := line("536367", "13047", 10, "1.00", time.Time{})
	c.StockCode, c.Description, c.Country = "22632", "", ""

	p := Profile([]models.OrderLine{a, b, c}, 2)

	assert.Equal(t, 3, p.Rows)
	assert.Equal(t, 3, p.DistinctProducts)
	assert.Equal(t, 1, p.Missing[models.ColCustomerID])
	assert.Equal(t, 1, p.Missing[models.ColDescription])
	assert.Equal(t, 1, p.Missing[models.ColCountry])
	assert.Equal(t, 0, p.Missing[models.ColStockCode])
	assert.Len(t, p.Missing, len(models.NullableColumns))
	for _, col := range []string{models.ColInvoice, models.ColQuantity, models.ColInvoiceDate, models.ColPrice} {
		assert.NotContains(t, p.Missing, col)
	}

	require.Len(t, p.TopProducts, 2)
	assert.Equal(t, "22632", p.TopProducts[0].StockCode)
	assert.Equal(t, "22633", p.TopProducts[1].StockCode)
	assert.Equal(t, 10, p.TopProducts[1].Quantity)
}
