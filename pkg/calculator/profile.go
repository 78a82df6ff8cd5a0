package calculator

import (
	"cmp"
	"slices"

	"rfm-segments/pkg/models"
)

// Profile décrit le jeu brut avant nettoyage : valeurs manquantes par
// colonne nullable, nombre de produits distincts et les topN produits par
// quantité. Les autres colonnes ne sont jamais vides après chargement.
func Profile(lines []models.OrderLine, topN int) models.DatasetProfile {
	p := models.DatasetProfile{
		Rows:    len(lines),
		Missing: make(map[string]int, len(models.NullableColumns)),
	}
	for _, col := range models.NullableColumns {
		p.Missing[col] = 0
	}

	type productKey struct{ code, description string }
	quantities := make(map[productKey]int)
	codes := make(map[string]struct{})

	for _, l := range lines {
		if l.StockCode == "" {
			p.Missing[models.ColStockCode]++
		}
		if l.Description == "" {
			p.Missing[models.ColDescription]++
		}
		if !l.CustomerID.Valid {
			p.Missing[models.ColCustomerID]++
		}
		if l.Country == "" {
			p.Missing[models.ColCountry]++
		}
		if l.StockCode != "" {
			codes[l.StockCode] = struct{}{}
		}
		quantities[productKey{l.StockCode, l.Description}] += l.Quantity
	}
	p.DistinctProducts = len(codes)

	products := make([]models.ProductCount, 0, len(quantities))
	for k, q := range quantities {
		products = append(products, models.ProductCount{StockCode: k.code, Description: k.description, Quantity: q})
	}
	slices.SortFunc(products, func(a, b models.ProductCount) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.StockCode, b.StockCode); c != 0 {
			return c
		}
		return cmp.Compare(a.Description, b.Description)
	})
	if topN >= 0 && len(products) > topN {
		products = products[:topN]
	}
	p.TopProducts = products
	return p
}
