package services

import (
	"errors"
)

// Validation failures of the order workflow. They never change state.
var (
	ErrNoSupplier         = errors.New("no supplier selected")
	ErrCatalogNotReady    = errors.New("catalog is not loaded")
	ErrNoUnit             = errors.New("item has no unit of measure")
	ErrInvalidQuantity    = errors.New("quantity must be a positive whole number")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrPaymentTypeMissing = errors.New("payment type is required")
	ErrUnknownLine        = errors.New("cart line does not exist")
	ErrUnknownItem        = errors.New("item is not in the supplier catalog")
	ErrBusy               = errors.New("another order operation is in progress")
	ErrNotSubmitted       = errors.New("no submitted order to send")
	ErrCannotSend         = errors.New("order can only be sent while created")
	ErrInvalidFilter      = errors.New("invalid list filter")
)

// validationMessages are shown to users next to the offending control
var validationMessages = map[error]string{
	ErrNoSupplier:         "Odaberite dobavljača.",
	ErrCatalogNotReady:    "Artikli dobavljača se još učitavaju.",
	ErrNoUnit:             "Artikl nema jedinicu mjere.",
	ErrInvalidQuantity:    "Količina mora biti pozitivan cijeli broj.",
	ErrEmptyCart:          "Dodajte barem jedan artikl.",
	ErrPaymentTypeMissing: "Odaberite tip plaćanja.",
	ErrUnknownLine:        "Stavka ne postoji.",
	ErrUnknownItem:        "Artikl nije u katalogu dobavljača.",
	ErrBusy:               "Narudžba se upravo obrađuje.",
	ErrNotSubmitted:       "Nema spremljene narudžbe za slanje.",
	ErrCannotSend:         "Narudžba je već poslana.",
	ErrInvalidFilter:      "Neispravan filter.",
}

// IsValidation reports whether err is one of the workflow validation errors
func IsValidation(err error) bool {
	for sentinel := range validationMessages {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// ValidationMessage returns the user-facing text for a validation error
func ValidationMessage(err error) (string, bool) {
	for sentinel, msg := range validationMessages {
		if errors.Is(err, sentinel) {
			return msg, true
		}
	}
	return "", false
}
