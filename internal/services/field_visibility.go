package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TermCash     = "cash"
	TermDeferred = "deferred"

	FieldCashAccount    = "cash_account"
	FieldAPAccount      = "ap_account"
	FieldDepositAccount = "deposit_account"
)

// SupplierInvoiceForm is the part of the supplier-invoice admin form that
// drives which account rows are offered.
type SupplierInvoiceForm struct {
	PaymentTerms string `json:"payment_terms"`
	// DepositTotal is the raw input; a comma is accepted as decimal point.
	DepositTotal *string `json:"deposit_total"`
	// IsAddForm is true while the invoice has not been saved yet
	IsAddForm bool `json:"is_add_form"`
}

type FieldState struct {
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
	// Clear asks the renderer to reset the field to its empty value
	Clear bool   `json:"clear"`
	Class string `json:"class"`
}

type FieldVisibility struct {
	Mode   string                `json:"mode"`
	Fields map[string]FieldState `json:"fields"`
}

// ComputeFieldVisibility derives the state of the cash, payables and deposit
// account rows from the payment terms and deposit total.
func ComputeFieldVisibility(form SupplierInvoiceForm) FieldVisibility {
	depositActive := depositIsActive(form.DepositTotal)

	termClass := "term-neutral"
	switch form.PaymentTerms {
	case TermCash:
		termClass = "term-cash"
	case TermDeferred:
		termClass = "term-deferred"
	}

	cash := FieldState{Visible: true, Enabled: true, Class: termClass}
	ap := FieldState{Visible: true, Enabled: true, Class: termClass}
	switch form.PaymentTerms {
	case TermCash:
		ap = FieldState{Clear: form.IsAddForm, Class: termClass}
	case TermDeferred:
		cash = FieldState{Clear: form.IsAddForm, Class: termClass}
	}

	out := FieldVisibility{
		Mode: "EDIT",
		Fields: map[string]FieldState{
			FieldCashAccount: cash,
			FieldAPAccount:   ap,
		},
	}
	if form.IsAddForm {
		out.Mode = "ADD"
	}

	// without a deposit total input the deposit row is left alone
	if form.DepositTotal != nil {
		deposit := FieldState{Class: "term-neutral"}
		if depositActive {
			deposit.Visible = true
			deposit.Enabled = true
			if form.PaymentTerms == TermCash || form.PaymentTerms == TermDeferred {
				deposit.Class = termClass
			}
		} else {
			deposit.Clear = form.IsAddForm
		}
		out.Fields[FieldDepositAccount] = deposit
	}
	return out
}

func depositIsActive(raw *string) bool {
	if raw == nil {
		return false
	}
	value := strings.TrimSpace(strings.Replace(*raw, ",", ".", 1))
	if value == "" {
		return false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// StatusHighlight reports whether a purchase order row or status field gets
// the received highlight; both the code and the Croatian label match.
func StatusHighlight(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "received", "primljena":
		return true
	}
	return false
}
