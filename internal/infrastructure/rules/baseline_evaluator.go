// Package rules evaluates compliance checks over extracted invoice fields.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/document"
)

// centTolerance absorbs rounding drift between stated and derived amounts
var centTolerance = decimal.New(1, -2)

var _ appdocument.RuleEvaluator = (*BaselineEvaluator)(nil)

// BaselineEvaluator runs the built-in mandatory-content checks for German
// invoices. Deployments with a rule catalogue service use HTTPEvaluator
// instead; this one keeps single-binary setups working.
type BaselineEvaluator struct {
	maxInvoiceAge time.Duration
	now           func() time.Time
}

// NewBaselineEvaluator creates the built-in evaluator
func NewBaselineEvaluator() *BaselineEvaluator {
	return &BaselineEvaluator{
		maxInvoiceAge: 10 * 365 * 24 * time.Hour,
		now:           time.Now,
	}
}

// Evaluate returns the ordered check list for one field snapshot. The list
// order is stable so results diff cleanly between versions.
func (e *BaselineEvaluator) Evaluate(_ context.Context, fields document.ExtractedFields, direction document.Direction) ([]document.Check, error) {
	checks := []document.Check{
		e.checkCounterpart(fields),
		e.checkInvoiceNumber(fields),
		e.checkInvoiceDate(fields),
		e.checkDeliveryDate(fields),
		e.checkAmountsPresent(fields),
		e.checkAmountsConsistent(fields),
		e.checkVatRate(fields),
		e.checkCurrency(fields),
	}
	if direction == document.DirectionIncoming {
		checks = append(checks, e.checkVendorTaxID(fields))
	}
	return checks, nil
}

func valid(ruleID, message string) document.Check {
	return document.Check{RuleID: ruleID, Severity: document.SeverityValid, Message: message}
}

func (e *BaselineEvaluator) checkCounterpart(f document.ExtractedFields) document.Check {
	if f.CounterpartName == "" {
		return document.Check{
			RuleID:   "counterpart-name",
			Severity: document.SeverityInvalid,
			Message:  "Counterpart name is missing",
			LegalRef: "§14 Abs. 4 Nr. 1 UStG",
		}
	}
	return valid("counterpart-name", "Counterpart name present")
}

func (e *BaselineEvaluator) checkInvoiceNumber(f document.ExtractedFields) document.Check {
	if f.InvoiceNumber == "" {
		return document.Check{
			RuleID:   "invoice-number",
			Severity: document.SeverityInvalid,
			Message:  "Invoice number is missing",
			LegalRef: "§14 Abs. 4 Nr. 4 UStG",
		}
	}
	return valid("invoice-number", "Invoice number present")
}

func (e *BaselineEvaluator) checkInvoiceDate(f document.ExtractedFields) document.Check {
	const ruleID = "invoice-date"
	if f.InvoiceDate == nil {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityInvalid,
			Message:  "Invoice date is missing",
			LegalRef: "§14 Abs. 4 Nr. 3 UStG",
		}
	}
	now := e.now()
	if f.InvoiceDate.After(now.Add(24 * time.Hour)) {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityWarning,
			Message:  fmt.Sprintf("Invoice date %s lies in the future", f.InvoiceDate.Format("2006-01-02")),
		}
	}
	if f.InvoiceDate.Before(now.Add(-e.maxInvoiceAge)) {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityWarning,
			Message:  fmt.Sprintf("Invoice date %s is implausibly old", f.InvoiceDate.Format("2006-01-02")),
		}
	}
	return valid(ruleID, "Invoice date plausible")
}

func (e *BaselineEvaluator) checkDeliveryDate(f document.ExtractedFields) document.Check {
	if f.DeliveryDate == nil {
		return document.Check{
			RuleID:   "delivery-date",
			Severity: document.SeverityWarning,
			Message:  "Delivery or performance date is missing",
			LegalRef: "§14 Abs. 4 Nr. 6 UStG",
		}
	}
	return valid("delivery-date", "Delivery date present")
}

func (e *BaselineEvaluator) checkAmountsPresent(f document.ExtractedFields) document.Check {
	const ruleID = "amounts-present"
	if f.NetAmount == nil && f.GrossAmount == nil {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityInvalid,
			Message:  "Neither net nor gross amount could be determined",
			LegalRef: "§14 Abs. 4 Nr. 7 UStG",
		}
	}
	if f.NetAmount == nil || f.VatAmount == nil || f.GrossAmount == nil {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityWarning,
			Message:  "Amount set is incomplete",
		}
	}
	return valid(ruleID, "All amounts present")
}

func (e *BaselineEvaluator) checkAmountsConsistent(f document.ExtractedFields) document.Check {
	const ruleID = "amounts-consistent"
	if f.NetAmount == nil || f.VatAmount == nil || f.GrossAmount == nil {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityPending,
			Message:  "Consistency not checkable without all three amounts",
		}
	}
	diff := f.NetAmount.Add(*f.VatAmount).Sub(*f.GrossAmount).Abs()
	if diff.GreaterThan(centTolerance) {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityInvalid,
			Message: fmt.Sprintf("Net %s + VAT %s is %s, not the stated gross %s",
				f.NetAmount.StringFixed(2), f.VatAmount.StringFixed(2),
				f.NetAmount.Add(*f.VatAmount).StringFixed(2), f.GrossAmount.StringFixed(2)),
		}
	}
	return valid(ruleID, "Amounts are consistent")
}

func (e *BaselineEvaluator) checkVatRate(f document.ExtractedFields) document.Check {
	const ruleID = "vat-rate"
	// Multi-rate invoices carry their rates in the breakdown lines.
	if len(f.VatBreakdown) > 1 {
		return valid(ruleID, "Multi-rate breakdown present")
	}
	if f.VatRate == nil {
		return document.Check{
			RuleID:   ruleID,
			Severity: document.SeverityWarning,
			Message:  "VAT rate is missing",
			LegalRef: "§14 Abs. 4 Nr. 8 UStG",
		}
	}
	if f.NetAmount != nil && f.VatAmount != nil && f.NetAmount.IsPositive() {
		implied := f.NetAmount.Mul(f.VatRate.Div(decimal.NewFromInt(100))).Round(2)
		if implied.Sub(*f.VatAmount).Abs().GreaterThan(centTolerance) {
			return document.Check{
				RuleID:   ruleID,
				Severity: document.SeverityWarning,
				Message: fmt.Sprintf("Stated VAT %s differs from %s%% of net",
					f.VatAmount.StringFixed(2), f.VatRate.StringFixed(0)),
			}
		}
	}
	return valid(ruleID, "VAT rate consistent")
}

func (e *BaselineEvaluator) checkCurrency(f document.ExtractedFields) document.Check {
	if f.Currency == "" {
		return document.Check{
			RuleID:   "currency",
			Severity: document.SeverityWarning,
			Message:  "Currency could not be determined",
		}
	}
	return valid("currency", "Currency present")
}

func (e *BaselineEvaluator) checkVendorTaxID(f document.ExtractedFields) document.Check {
	if f.CounterpartTaxID == "" {
		return document.Check{
			RuleID:   "vendor-tax-id",
			Severity: document.SeverityWarning,
			Message:  "Vendor tax id is missing",
			LegalRef: "§14 Abs. 4 Nr. 2 UStG",
		}
	}
	return valid("vendor-tax-id", "Vendor tax id present")
}
