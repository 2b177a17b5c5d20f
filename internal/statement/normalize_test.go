package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_DayFirstWins(t *testing.T) {
	d, err := ParseDate("01/03/2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 3, int(d.Month()))
	assert.Equal(t, 1, d.Day())
}

func TestParseDate_Patterns(t *testing.T) {
	for _, s := range []string{"01-03-2024", "2024-03-01", "01.03.2024", "20240301", "2024/03/01"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, d.Year(), s)
		assert.Equal(t, 3, int(d.Month()), s)
		assert.Equal(t, 1, d.Day(), s)
	}
}

func TestParseDate_USFallback(t *testing.T) {
	// Day-first is impossible here, so the month-first pattern applies.
	d, err := ParseDate("03/25/2024")
	require.NoError(t, err)
	assert.Equal(t, 3, int(d.Month()))
	assert.Equal(t, 25, d.Day())
}

func TestParseDate_Unparseable(t *testing.T) {
	_, err := ParseDate("not a date")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestParseAmount_Latin(t *testing.T) {
	d, err := ParseAmount("1.234,56")
	require.NoError(t, err)
	assert.Equal(t, "1234.56", d.String())
}

func TestParseAmount_US(t *testing.T) {
	d, err := ParseAmount("1,234.56")
	require.NoError(t, err)
	assert.Equal(t, "1234.56", d.String())
}

func TestParseAmount_SingleCommaDecimal(t *testing.T) {
	d, err := ParseAmount("1234,5")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", d.String())
}

func TestParseAmount_TripleGroupingIsThousands(t *testing.T) {
	d, err := ParseAmount("150.000")
	require.NoError(t, err)
	assert.Equal(t, "150000", d.String())

	d, err = ParseAmount("1,234")
	require.NoError(t, err)
	assert.Equal(t, "1234", d.String())
}

func TestParseAmount_LeadingZeroIsDecimal(t *testing.T) {
	d, err := ParseAmount("0.500")
	require.NoError(t, err)
	assert.Equal(t, "0.5", d.String())

	d, err = ParseAmount("0,500")
	require.NoError(t, err)
	assert.Equal(t, "0.5", d.String())
}

func TestParseAmount_MultipleSeparators(t *testing.T) {
	d, err := ParseAmount("1.234.567")
	require.NoError(t, err)
	assert.Equal(t, "1234567", d.String())
}

func TestParseAmount_NegativeAndCurrencyNoise(t *testing.T) {
	d, err := ParseAmount("$ -1.234,56")
	require.NoError(t, err)
	assert.Equal(t, "-1234.56", d.String())

	// Trailing minus marks debits in cartola layouts.
	d, err = ParseAmount("150.000-")
	require.NoError(t, err)
	assert.Equal(t, "-150000", d.String())
}

func TestParseAmount_NoDigits(t *testing.T) {
	_, err := ParseAmount("n/a")
	assert.Error(t, err)
}

func TestCategorize(t *testing.T) {
	assert.Equal(t, "transfer", Categorize("TRANSFERENCIA A PROVEEDOR"))
	assert.Equal(t, "fee", Categorize("Comision mantencion cuenta"))
	assert.Equal(t, "tax", Categorize("PAGO IMPUESTO IVA"))
	assert.Equal(t, "payroll", Categorize("pago sueldo marzo"))
	assert.Equal(t, "other", Categorize("PAGO CLIENTE ABC"))
}
