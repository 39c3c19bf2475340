package document

import (
	"fmt"
	"strings"

	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/ledgerdocs/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// hundred is the divisor turning a percentage rate into a factor
var hundred = decimal.NewFromInt(100)

// NormalizeExtraction validates the loosely-shaped extractor output once at
// the pipeline boundary and turns it into a typed field snapshot:
// amounts parsed to canonical decimals, missing totals derived, the legal
// delivery-date fallback applied.
func NormalizeExtraction(raw *RawExtraction) (document.ExtractedFields, error) {
	if raw == nil {
		return document.ExtractedFields{}, shared.NewDomainError("EMPTY_EXTRACTION", "Extractor returned no fields")
	}

	fields := document.ExtractedFields{
		CounterpartName:    strings.TrimSpace(raw.CounterpartName),
		CounterpartTaxID:   strings.TrimSpace(raw.CounterpartTaxID),
		CounterpartAddress: strings.TrimSpace(raw.CounterpartAddress),
		CounterpartEmail:   strings.TrimSpace(raw.CounterpartEmail),
		CounterpartIBAN:    strings.TrimSpace(raw.CounterpartIBAN),
		InvoiceNumber:      strings.TrimSpace(raw.InvoiceNumber),
		InvoiceDate:        raw.InvoiceDate,
		DeliveryDate:       raw.DeliveryDate,
		DueDate:            raw.DueDate,
		Currency:           strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Category:           strings.TrimSpace(raw.Category),
	}

	var err error
	if fields.NetAmount, err = parseOptionalAmount(raw.NetAmount, "net_amount"); err != nil {
		return fields, err
	}
	if fields.VatAmount, err = parseOptionalAmount(raw.VatAmount, "vat_amount"); err != nil {
		return fields, err
	}
	if fields.GrossAmount, err = parseOptionalAmount(raw.GrossAmount, "gross_amount"); err != nil {
		return fields, err
	}
	if fields.VatRate, err = parseOptionalAmount(raw.VatRate, "vat_rate"); err != nil {
		return fields, err
	}
	if fields.VatBreakdown, err = normalizeBreakdown(raw.VatBreakdown); err != nil {
		return fields, err
	}

	deriveAmounts(&fields)

	// The invoice date counts as performance date when no other date is
	// stated; a present delivery date is preserved verbatim.
	if fields.DeliveryDate == nil && fields.InvoiceDate != nil {
		d := *fields.InvoiceDate
		fields.DeliveryDate = &d
	}

	return fields, nil
}

// ParseAmount parses an extraction amount into a canonical decimal. String
// inputs may be localized: "1.234,56", "1,234.56", "1234.56" and "1234,56"
// must all parse. The last separator wins as the decimal point.
func ParseAmount(raw RawAmount) (decimal.Decimal, error) {
	if raw.Number != nil {
		return *raw.Number, nil
	}

	text := strings.TrimSpace(raw.Text)
	text = strings.TrimPrefix(text, "€")
	text = strings.TrimSpace(strings.TrimSuffix(text, "€"))
	if text == "" {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Amount is empty")
	}

	lastComma := strings.LastIndexByte(text, ',')
	lastDot := strings.LastIndexByte(text, '.')

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 1.234,56: dot groups, comma decimal
			text = strings.ReplaceAll(text, ".", "")
			text = strings.Replace(text, ",", ".", 1)
		} else {
			// 1,234.56: comma groups, dot decimal
			text = strings.ReplaceAll(text, ",", "")
		}
	case lastComma >= 0:
		// 1234,56: single comma is the decimal point; multiple commas
		// (1,234,567) are grouping.
		if strings.Count(text, ",") == 1 {
			text = strings.Replace(text, ",", ".", 1)
		} else {
			text = strings.ReplaceAll(text, ",", "")
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Cannot parse amount %q", raw.Text))
	}
	return d, nil
}

func parseOptionalAmount(raw *RawAmount, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := ParseAmount(*raw)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", field, err)
	}
	return &d, nil
}

func normalizeBreakdown(raw []RawVatLine) ([]document.VatLine, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	lines := make([]document.VatLine, 0, len(raw))
	for i, rl := range raw {
		var line document.VatLine
		for _, part := range []struct {
			raw  *RawAmount
			dst  *decimal.Decimal
			name string
		}{
			{rl.Rate, &line.Rate, "rate"},
			{rl.Net, &line.Net, "net"},
			{rl.Vat, &line.Vat, "vat"},
			{rl.Gross, &line.Gross, "gross"},
		} {
			if part.raw == nil {
				continue
			}
			d, err := ParseAmount(*part.raw)
			if err != nil {
				return nil, fmt.Errorf("vat breakdown line %d %s: %w", i, part.name, err)
			}
			*part.dst = d
		}
		if line.Gross.IsZero() {
			line.Gross = line.Net.Add(line.Vat).Round(2)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// deriveAmounts fills missing totals. A multi-line breakdown seeds the
// aggregates from its sub-totals first; single-rate derivation then computes
// any one of {net, vat, gross} from the other two plus the rate, rounding to
// the cent at every step.
func deriveAmounts(fields *document.ExtractedFields) {
	if len(fields.VatBreakdown) > 1 {
		net, vat, gross := decimal.Zero, decimal.Zero, decimal.Zero
		for _, line := range fields.VatBreakdown {
			net = net.Add(line.Net)
			vat = vat.Add(line.Vat)
			gross = gross.Add(line.Gross)
		}
		net, vat, gross = net.Round(2), vat.Round(2), gross.Round(2)
		if fields.NetAmount == nil {
			fields.NetAmount = &net
		}
		if fields.VatAmount == nil {
			fields.VatAmount = &vat
		}
		if fields.GrossAmount == nil {
			fields.GrossAmount = &gross
		}
	}

	net, vat, gross, rate := fields.NetAmount, fields.VatAmount, fields.GrossAmount, fields.VatRate

	switch {
	case net != nil && vat != nil && gross == nil:
		g := net.Add(*vat).Round(2)
		fields.GrossAmount = &g
	case net != nil && gross != nil && vat == nil:
		v := gross.Sub(*net).Round(2)
		fields.VatAmount = &v
	case vat != nil && gross != nil && net == nil:
		n := gross.Sub(*vat).Round(2)
		fields.NetAmount = &n
	case net != nil && rate != nil && vat == nil && gross == nil:
		v := net.Mul(*rate).Div(hundred).Round(2)
		g := net.Add(v).Round(2)
		fields.VatAmount = &v
		fields.GrossAmount = &g
	case gross != nil && rate != nil && net == nil && vat == nil:
		factor := decimal.NewFromInt(1).Add(rate.Div(hundred))
		n := gross.Div(factor).Round(2)
		v := gross.Sub(n).Round(2)
		fields.NetAmount = &n
		fields.VatAmount = &v
	}
}

// OverallConfidence computes the mean of all positive numeric per-field
// scores. Zero or absent scores carry no signal and are excluded; with no
// positive scores the overall confidence is zero.
func OverallConfidence(scores map[string]float64) float64 {
	var sum float64
	var n int
	for _, score := range scores {
		if score > 0 {
			sum += score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
