package services

import (
	"errors"

	"github.com/diewo77/go-quotes/internal/repository"
)

var (
	ErrMissingSelection = errors.New("missing_selection")
	ErrNoValidItems     = errors.New("no_valid_items")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrDuplicateNumber  = errors.New("duplicate_number_for_issuer")
	ErrNameRequired     = errors.New("name_required")
	ErrPersistence      = errors.New("persistence_failure")

	ErrQuoteNotFound = repository.ErrQuoteNotFound
	ErrPartyNotFound = repository.ErrPartyNotFound
)

var codes = []error{
	ErrMissingSelection,
	ErrNoValidItems,
	ErrInvalidAmount,
	ErrDuplicateNumber,
	ErrNameRequired,
	ErrQuoteNotFound,
	ErrPartyNotFound,
	ErrPersistence,
}

// Code returns the stable error code for err, or "internal_error" when err
// is not one of the package errors.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c) {
			return c.Error()
		}
	}
	return "internal_error"
}
