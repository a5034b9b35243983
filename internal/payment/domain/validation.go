package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/clinicledger/internal/apperr"
)

// DefaultElectronicKeywords classify methods with an unset category.
var DefaultElectronicKeywords = []string{
	"cartão", "cartao",
	"pix",
	"débito", "debito",
	"crédito", "credito",
}

// ReceiptInput is a proposed receipt against one installment. Method is nil
// when the operator has not selected one.
type ReceiptInput struct {
	RegisterOpen     bool
	Method           *Method
	GrossAmount      decimal.Decimal
	Discount         decimal.Decimal
	Interest         decimal.Decimal
	AuthCode         string
	Justification    string
	RemainingBalance decimal.Decimal

	// ElectronicKeywords overrides DefaultElectronicKeywords when non-empty.
	ElectronicKeywords []string
}

// Validated is an accepted receipt.
type Validated struct {
	Method        Method
	GrossAmount   decimal.Decimal
	Discount      decimal.Decimal
	Interest      decimal.Decimal
	NetAmount     decimal.Decimal
	AuthCode      *string
	Justification *string
	// Partial is set when the net amount leaves part of the balance open.
	Partial bool
}

type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationFailure lists every rule a receipt broke.
type ValidationFailure struct {
	Violations []Violation
}

func (f *ValidationFailure) Error() string {
	codes := make([]string, 0, len(f.Violations))
	for _, v := range f.Violations {
		codes = append(codes, v.Code)
	}
	return "receipt rejected: " + strings.Join(codes, ", ")
}

func (f *ValidationFailure) ErrorKind() apperr.Kind { return apperr.KindValidation }

// Is matches the rule sentinels, so errors.Is(err, ErrOverpayment) holds when
// overpayment is among the violations.
func (f *ValidationFailure) Is(target error) bool {
	var sentinel *apperr.Error
	if !errors.As(target, &sentinel) {
		return false
	}
	return f.Has(sentinel.Code)
}

func (f *ValidationFailure) Has(code string) bool {
	for _, v := range f.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (f *ValidationFailure) add(field string, rule *apperr.Error) {
	f.Violations = append(f.Violations, Violation{Field: field, Code: rule.Code, Message: rule.Message})
}

// NetAmount is gross minus discount plus interest.
func NetAmount(gross, discount, interest decimal.Decimal) decimal.Decimal {
	return gross.Sub(discount).Add(interest)
}

// IsElectronic reports whether method needs an authorization code. An explicit
// category wins; an unset category falls back to keyword matching on the name.
func IsElectronic(method Method, keywords []string) bool {
	switch method.Category {
	case CategoryElectronic:
		return true
	case CategoryCash, CategoryOther:
		return false
	}

	if len(keywords) == 0 {
		keywords = DefaultElectronicKeywords
	}
	name := strings.ToLower(method.Name)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Validate checks every receipt rule and reports all violations together.
// It has no side effects.
func Validate(in ReceiptInput) (Validated, error) {
	failure := &ValidationFailure{}

	authCode := strings.TrimSpace(in.AuthCode)
	justification := strings.TrimSpace(in.Justification)

	if !in.RegisterOpen {
		failure.add("cash_register", ErrNoOpenRegister)
	}

	if in.Method == nil {
		failure.add("payment_method_id", ErrMissingMethod)
	} else if IsElectronic(*in.Method, in.ElectronicKeywords) && authCode == "" {
		failure.add("auth_code", ErrMissingAuthCode)
	}

	if (in.Discount.IsPositive() || in.Interest.IsPositive()) && justification == "" {
		failure.add("justification", ErrMissingJustification)
	}

	for _, part := range []struct {
		field string
		value decimal.Decimal
	}{
		{"gross_amount", in.GrossAmount},
		{"discount", in.Discount},
		{"interest", in.Interest},
	} {
		if part.value.IsNegative() || !part.value.Equal(part.value.Round(2)) {
			failure.add(part.field, ErrInvalidAmount)
		}
	}

	net := NetAmount(in.GrossAmount, in.Discount, in.Interest)
	if !net.IsPositive() {
		failure.add("net_amount", ErrInvalidAmount)
	}
	if net.GreaterThan(in.RemainingBalance) {
		failure.add("net_amount", ErrOverpayment)
	}

	if len(failure.Violations) > 0 {
		return Validated{}, failure
	}

	out := Validated{
		Method:      *in.Method,
		GrossAmount: in.GrossAmount,
		Discount:    in.Discount,
		Interest:    in.Interest,
		NetAmount:   net,
		Partial:     net.LessThan(in.RemainingBalance),
	}
	if authCode != "" {
		out.AuthCode = &authCode
	}
	if justification != "" {
		out.Justification = &justification
	}
	return out, nil
}
