package models

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

/*
LOAD → types simples pour les lignes de commande brutes (fichier ou base).
*/

// Colonnes du fichier Online Retail II.
const (
	ColInvoice     = "Invoice"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColPrice       = "Price"
	ColCustomerID  = "Customer ID"
	ColCountry     = "Country"
)

// Columns dans l'ordre du fichier source.
var Columns = []string{
	ColInvoice, ColStockCode, ColDescription, ColQuantity,
	ColInvoiceDate, ColPrice, ColCustomerID, ColCountry,
}

// NullableColumns peuvent être vides dans une ligne chargée. Les lecteurs
// rejettent toute ligne où une autre colonne manque.
var NullableColumns = []string{
	ColStockCode, ColDescription, ColCustomerID, ColCountry,
}

// CancelledInvoicePrefix marque une facture annulée (ex: "C536379").
const CancelledInvoicePrefix = "C"

// OrderLine représente une ligne de facture telle qu'elle est lue depuis la source.
type OrderLine struct {
	Invoice     string
	StockCode   string
	Description string
	Quantity    int // négatif pour les retours
	InvoiceDate time.Time
	UnitPrice   decimal.Decimal
	CustomerID  sql.NullString
	Country     string

	// Value = Quantity × UnitPrice, renseigné par le nettoyage.
	Value decimal.Decimal
}

// IsCancelled indique si la facture porte le préfixe d'annulation.
func (l OrderLine) IsCancelled() bool {
	return strings.HasPrefix(l.Invoice, CancelledInvoicePrefix)
}

/*
COMPUTE → métriques, scores et segments par client
*/

// CustomerMetrics contient les trois métriques RFM d'un client.
type CustomerMetrics struct {
	CustomerID string          `json:"customer_id"`
	Recency    int             `json:"recency"`   // jours depuis la dernière facture
	Frequency  int             `json:"frequency"` // nombre de factures distinctes
	Monetary   decimal.Decimal `json:"monetary"`  // somme des Value, toujours > 0
}

// ScoredCustomer ajoute les scores de quintile (1..5) et le code composite.
type ScoredCustomer struct {
	CustomerMetrics
	RecencyScore   int    `json:"recency_score"`
	FrequencyScore int    `json:"frequency_score"`
	MonetaryScore  int    `json:"monetary_score"`
	Score          string `json:"rfm_score"` // recency_score + frequency_score, ex: "45"
}

// SegmentedCustomer est un client scoré avec son segment marketing.
type SegmentedCustomer struct {
	ScoredCustomer
	Segment Segment `json:"segment"`
}

// Segment est un des 10 segments marketing.
type Segment string

const (
	SegmentHibernating        Segment = "hibernating"
	SegmentAtRisk             Segment = "at_risk"
	SegmentCantLoose          Segment = "cant_loose"
	SegmentAboutToSleep       Segment = "about_to_sleep"
	SegmentNeedAttention      Segment = "need_attention"
	SegmentLoyalCustomers     Segment = "loyal_customers"
	SegmentPromising          Segment = "promising"
	SegmentNewCustomers       Segment = "new_customers"
	SegmentPotentialLoyalists Segment = "potential_loyalists"
	SegmentChampions          Segment = "champions"
)

// Segments liste les segments dans l'ordre de la table de correspondance.
var Segments = []Segment{
	SegmentHibernating,
	SegmentAtRisk,
	SegmentCantLoose,
	SegmentAboutToSleep,
	SegmentNeedAttention,
	SegmentLoyalCustomers,
	SegmentPromising,
	SegmentNewCustomers,
	SegmentPotentialLoyalists,
	SegmentChampions,
}

// ParseSegment valide un nom de segment.
func ParseSegment(name string) (Segment, bool) {
	for _, s := range Segments {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Stats : moyenne, médiane, min et max d'une métrique.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SegmentSummary agrège les métriques des clients d'un segment.
type SegmentSummary struct {
	Segment   Segment `json:"segment"`
	Count     int     `json:"count"`
	Recency   Stats   `json:"recency"`
	Frequency Stats   `json:"frequency"`
	Monetary  Stats   `json:"monetary"`
}

// CleanStats compte les lignes retirées à chaque étape.
type CleanStats struct {
	RowsRead            int `json:"rows_read"`
	DroppedNullCustomer int `json:"dropped_null_customer"`
	DroppedCancelled    int `json:"dropped_cancelled"`
	RowsKept            int `json:"rows_kept"`
	Customers           int `json:"customers"`
	DroppedNonPositive  int `json:"dropped_non_positive"`
	SegmentedCustomers  int `json:"segmented_customers"`
}

// Result est la sortie complète d'un run.
type Result struct {
	RunID     string              `json:"run_id"`
	Customers []SegmentedCustomer `json:"customers"`
	Summary   []SegmentSummary    `json:"summary"`
	Stats     CleanStats          `json:"stats"`
}

// ProductCount compte les quantités vendues par produit.
type ProductCount struct {
	StockCode   string `json:"stock_code"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// DatasetProfile résume le jeu de données brut avant nettoyage.
type DatasetProfile struct {
	Rows             int            `json:"rows"`
	Missing          map[string]int `json:"missing"`
	DistinctProducts int            `json:"distinct_products"`
	TopProducts      []ProductCount `json:"top_products"`
}

/*
CONFIG → paramètres d'un run
*/
// Config contient les paramètres passés à la fonction de calcul.
type Config struct {
	ReferenceDate time.Time // "aujourd'hui" pour la récence, >= toutes les factures
	Progress      bool      // barre de progression sur stderr
	RunID         string
}

// NewCustomerID normalise un identifiant client lu depuis un tableur ou une
// base : "12346.0", "12346.00", "1.2346e+04" → "12346", vide → NULL.
// Un identifiant non entier ou non numérique est gardé tel quel.
func NewCustomerID(raw string) sql.NullString {
	id := strings.TrimSpace(raw)
	if id == "" || strings.EqualFold(id, "nan") {
		return sql.NullString{}
	}
	if d, err := decimal.NewFromString(id); err == nil && d.IsInteger() {
		id = d.String()
	}
	return sql.NullString{String: id, Valid: true}
}
