package document

import (
	"testing"
	"time"

	"github.com/ledgerdocs/backend/internal/domain/document"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(s string) *RawAmount {
	return &RawAmount{Text: s}
}

func num(t *testing.T, s string) *RawAmount {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &RawAmount{Number: &d}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1.234.567,89", "1234567.89"},
		{"1,234,567.89", "1234567.89"},
		{"1,234,567", "1234567"},
		{"0,00", "0"},
		{"19", "19"},
		{" 1.234,56 €", "1234.56"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(RawAmount{Text: tt.in})
			require.NoError(t, err)
			want, _ := decimal.NewFromString(tt.want)
			assert.True(t, got.Equal(want), "got %s want %s", got, want)
		})
	}

	t.Run("numeric passthrough", func(t *testing.T) {
		d := decimal.NewFromFloat(42.5)
		got, err := ParseAmount(RawAmount{Number: &d})
		require.NoError(t, err)
		assert.True(t, got.Equal(d))
	})

	t.Run("garbage fails", func(t *testing.T) {
		_, err := ParseAmount(RawAmount{Text: "n/a"})
		assert.Error(t, err)
	})

	t.Run("empty fails", func(t *testing.T) {
		_, err := ParseAmount(RawAmount{})
		assert.Error(t, err)
	})
}

func TestNormalizeExtraction_SingleRateDerivation(t *testing.T) {
	t.Run("net and rate derive vat and gross", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{
			NetAmount: amt("100.00"),
			VatRate:   num(t, "20"),
		})
		require.NoError(t, err)
		require.NotNil(t, fields.VatAmount)
		require.NotNil(t, fields.GrossAmount)
		assert.Equal(t, "20", fields.VatAmount.String())
		assert.Equal(t, "120", fields.GrossAmount.String())
	})

	t.Run("gross and rate derive net and vat", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{
			GrossAmount: amt("119,00"),
			VatRate:     num(t, "19"),
		})
		require.NoError(t, err)
		require.NotNil(t, fields.NetAmount)
		assert.Equal(t, "100", fields.NetAmount.String())
		assert.Equal(t, "19", fields.VatAmount.String())
	})

	t.Run("net and gross derive vat", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{
			NetAmount:   amt("100.00"),
			GrossAmount: amt("107.00"),
		})
		require.NoError(t, err)
		require.NotNil(t, fields.VatAmount)
		assert.Equal(t, "7", fields.VatAmount.String())
	})

	t.Run("rounding to the cent at each step", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{
			NetAmount: amt("33.33"),
			VatRate:   num(t, "19"),
		})
		require.NoError(t, err)
		assert.Equal(t, "6.33", fields.VatAmount.String())
		assert.Equal(t, "39.66", fields.GrossAmount.String())
	})
}

func TestNormalizeExtraction_MultiRateBreakdown(t *testing.T) {
	fields, err := NormalizeExtraction(&RawExtraction{
		VatBreakdown: []RawVatLine{
			{Rate: num(t, "10"), Net: amt("50.00"), Vat: amt("5.00")},
			{Rate: num(t, "20"), Net: amt("30.00"), Vat: amt("6.00")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, fields.NetAmount)
	require.NotNil(t, fields.VatAmount)
	require.NotNil(t, fields.GrossAmount)
	assert.Equal(t, "80", fields.NetAmount.String())
	assert.Equal(t, "11", fields.VatAmount.String())
	assert.Equal(t, "91", fields.GrossAmount.String())
	assert.Len(t, fields.VatBreakdown, 2)
}

func TestNormalizeExtraction_BreakdownDoesNotOverrideExtractedTotals(t *testing.T) {
	fields, err := NormalizeExtraction(&RawExtraction{
		GrossAmount: amt("95.00"),
		VatBreakdown: []RawVatLine{
			{Net: amt("50.00"), Vat: amt("5.00")},
			{Net: amt("30.00"), Vat: amt("6.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "95", fields.GrossAmount.String())
	assert.Equal(t, "80", fields.NetAmount.String())
}

func TestNormalizeExtraction_DateFallback(t *testing.T) {
	invoiceDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	deliveryDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("absent delivery date defaults to invoice date", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{InvoiceDate: &invoiceDate})
		require.NoError(t, err)
		require.NotNil(t, fields.DeliveryDate)
		assert.True(t, fields.DeliveryDate.Equal(invoiceDate))
	})

	t.Run("present delivery date is preserved verbatim", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{
			InvoiceDate:  &invoiceDate,
			DeliveryDate: &deliveryDate,
		})
		require.NoError(t, err)
		assert.True(t, fields.DeliveryDate.Equal(deliveryDate))
	})

	t.Run("no invoice date leaves delivery date absent", func(t *testing.T) {
		fields, err := NormalizeExtraction(&RawExtraction{})
		require.NoError(t, err)
		assert.Nil(t, fields.DeliveryDate)
	})
}

func TestNormalizeExtraction_RejectsBadAmount(t *testing.T) {
	_, err := NormalizeExtraction(&RawExtraction{NetAmount: amt("abc")})
	assert.Error(t, err)

	_, err = NormalizeExtraction(nil)
	assert.Error(t, err)
}

func TestOverallConfidence(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   float64
	}{
		{"mean of positive scores", map[string]float64{"a": 0.8, "b": 0.6}, 0.7},
		{"zero scores excluded", map[string]float64{"a": 0.9, "b": 0, "c": 0.7}, 0.8},
		{"negative scores excluded", map[string]float64{"a": 1.0, "b": -1}, 1.0},
		{"no scores", nil, 0},
		{"all zero", map[string]float64{"a": 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverallConfidence(tt.scores), 1e-9)
		})
	}
}

func TestNormalizeExtraction_TrimsAndUppercases(t *testing.T) {
	fields, err := NormalizeExtraction(&RawExtraction{
		CounterpartName: "  ACME GmbH ",
		Currency:        " eur ",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME GmbH", fields.CounterpartName)
	assert.Equal(t, "EUR", fields.Currency)
	assert.IsType(t, document.ExtractedFields{}, fields)
}
