package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func pix() *Method {
	return &Method{ID: 1, Name: "PIX"}
}

func cash() *Method {
	return &Method{ID: 2, Name: "Dinheiro", Category: CategoryCash}
}

func baseInput() ReceiptInput {
	return ReceiptInput{
		RegisterOpen:     true,
		Method:           cash(),
		GrossAmount:      d("150.00"),
		Discount:         decimal.Zero,
		Interest:         decimal.Zero,
		RemainingBalance: d("300.00"),
	}
}

func TestValidateAcceptsPartialPixReceipt(t *testing.T) {
	in := baseInput()
	in.Method = pix()
	in.AuthCode = "  ABC123 "

	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.NetAmount.Equal(d("150.00")))
	assert.True(t, out.Partial)
	require.NotNil(t, out.AuthCode)
	assert.Equal(t, "ABC123", *out.AuthCode)
	assert.Nil(t, out.Justification)
}

func TestValidateExactRemainderIsNotPartial(t *testing.T) {
	in := baseInput()
	in.GrossAmount = d("300.00")

	out, err := Validate(in)
	require.NoError(t, err)
	assert.False(t, out.Partial)
}

func TestValidateNetAmountFormula(t *testing.T) {
	in := baseInput()
	in.GrossAmount = d("200.00")
	in.Discount = d("20.00")
	in.Interest = d("5.50")
	in.Justification = "acordo com paciente"

	out, err := Validate(in)
	require.NoError(t, err)
	assert.True(t, out.NetAmount.Equal(d("185.50")), out.NetAmount.String())
	assert.True(t, out.NetAmount.Equal(NetAmount(in.GrossAmount, in.Discount, in.Interest)))
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ReceiptInput)
		codes  []string
	}{
		{
			name:   "no open register",
			mutate: func(in *ReceiptInput) { in.RegisterOpen = false },
			codes:  []string{"no_open_register"},
		},
		{
			name:   "missing method",
			mutate: func(in *ReceiptInput) { in.Method = nil },
			codes:  []string{"missing_payment_method"},
		},
		{
			name:   "pix without auth code",
			mutate: func(in *ReceiptInput) { in.Method = pix(); in.AuthCode = "   " },
			codes:  []string{"missing_auth_code"},
		},
		{
			name: "explicit electronic category",
			mutate: func(in *ReceiptInput) {
				in.Method = &Method{ID: 3, Name: "Maquininha", Category: CategoryElectronic}
			},
			codes: []string{"missing_auth_code"},
		},
		{
			name:   "discount without justification",
			mutate: func(in *ReceiptInput) { in.Discount = d("20.00") },
			codes:  []string{"missing_justification"},
		},
		{
			name:   "interest without justification",
			mutate: func(in *ReceiptInput) { in.Interest = d("1.00"); in.Justification = " " },
			codes:  []string{"missing_justification"},
		},
		{
			name:   "zero net",
			mutate: func(in *ReceiptInput) { in.GrossAmount = decimal.Zero },
			codes:  []string{"invalid_amount"},
		},
		{
			name:   "fractional cents",
			mutate: func(in *ReceiptInput) { in.GrossAmount = d("10.005") },
			codes:  []string{"invalid_amount"},
		},
		{
			name:   "overpayment",
			mutate: func(in *ReceiptInput) { in.GrossAmount = d("300.01") },
			codes:  []string{"overpayment"},
		},
		{
			name: "every rule at once",
			mutate: func(in *ReceiptInput) {
				in.RegisterOpen = false
				in.Method = nil
				in.GrossAmount = d("10.00")
				in.Discount = d("20.00")
			},
			codes: []string{"no_open_register", "missing_payment_method", "missing_justification", "invalid_amount"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)

			_, err := Validate(in)
			require.Error(t, err)

			var failure *ValidationFailure
			require.True(t, errors.As(err, &failure))
			got := make([]string, 0, len(failure.Violations))
			for _, v := range failure.Violations {
				got = append(got, v.Code)
			}
			assert.Equal(t, tc.codes, got)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestValidationFailureMatchesSentinels(t *testing.T) {
	in := baseInput()
	in.Discount = d("20.00")

	_, err := Validate(in)
	assert.ErrorIs(t, err, ErrMissingJustification)
	assert.NotErrorIs(t, err, ErrOverpayment)
}

func TestIsElectronic(t *testing.T) {
	cases := []struct {
		method Method
		want   bool
	}{
		{Method{Name: "Cartão de Crédito"}, true},
		{Method{Name: "cartao debito"}, true},
		{Method{Name: "PIX"}, true},
		{Method{Name: "Débito"}, true},
		{Method{Name: "Dinheiro"}, false},
		{Method{Name: "Boleto"}, false},
		{Method{Name: "PIX", Category: CategoryOther}, false},
		{Method{Name: "Dinheiro", Category: CategoryElectronic}, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsElectronic(tc.method, nil), tc.method.Name)
	}

	assert.True(t, IsElectronic(Method{Name: "Boleto"}, []string{"boleto"}))
}
