package calculator

import "errors"

var (
	// ErrInsufficientPopulation : moins de 5 clients, impossible de former des quintiles.
	ErrInsufficientPopulation = errors.New("population too small for quintile binning")

	// ErrDuplicateBinEdges : deux bornes de quintile identiques (trop de valeurs égales).
	ErrDuplicateBinEdges = errors.New("duplicate quintile bin edges")

	// ErrUnmappedScore : un code composite ne correspond à aucun segment.
	ErrUnmappedScore = errors.New("rfm score maps to no segment")

	// ErrInvoiceAfterReference : une facture est postérieure à la date de référence.
	ErrInvoiceAfterReference = errors.New("invoice dated after reference date")

	// ErrMissingReferenceDate : date de référence absente de la configuration.
	ErrMissingReferenceDate = errors.New("reference date is required")
)
