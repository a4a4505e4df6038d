// Package checkout validates and sanitizes checkout requests before they are
// submitted to the payment processor.
package checkout

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/podpay/fee-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Field-level error codes surfaced to the caller. The UI maps these to
// human-readable messages; they never reach end users directly.
const (
	CodeRequired      = "REQUIRED"
	CodeInvalidEmail  = "INVALID_EMAIL"
	CodeInvalidMethod = "INVALID_METHOD"
	CodeInvalidDoc    = "INVALID_DOCUMENT"
	CodeNegativePrice = "NEGATIVE_PRICE"
	CodeNameTooShort  = "NAME_TOO_SHORT"
	CodeTotalMismatch = "TOTAL_MISMATCH"
)

// totalTolerance is the accepted drift between the submitted total and the
// itemized sum, in reais.
const totalTolerance = 0.01

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// FieldError is one validation failure with its field-level code.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

// ValidationErrors aggregates every failure found in one payload.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "checkout validation failed: " + strings.Join(parts, ", ")
}

// OrderBump is an optional add-on product. Quantity is always forced to 1.
type OrderBump struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Payload is one checkout request as constructed by the front end.
// Monetary fields arrive in reais; the sanitized form is cents-rounded.
type Payload struct {
	ProductID     string      `json:"product_id"`
	ProductName   string      `json:"product_name"`
	ProductPrice  float64     `json:"product_price"`
	Quantity      int         `json:"quantity"`
	OrderBumps    []OrderBump `json:"order_bumps,omitempty"`
	TotalAmount   float64     `json:"total_amount"`
	BuyerName     string      `json:"buyer_name"`
	BuyerEmail    string      `json:"buyer_email"`
	BuyerPhone    string      `json:"buyer_phone"`
	BuyerDocument string      `json:"buyer_document"`
	PaymentMethod string      `json:"payment_method"`
	CardTermDays  int         `json:"card_term_days,omitempty"`
}

// Validate checks the payload and returns its sanitized form: monetary fields
// rounded to cents, email trimmed and lower-cased, phone and document reduced
// to digits, order-bump quantities forced to 1.
//
// The submitted total must match the itemized sum within a cent; a tampered
// total is rejected with TOTAL_MISMATCH before anything reaches the
// processor.
func Validate(p Payload) (Payload, error) {
	var errs ValidationErrors

	p.ProductID = strings.TrimSpace(p.ProductID)
	p.ProductName = strings.TrimSpace(p.ProductName)
	p.BuyerName = strings.TrimSpace(p.BuyerName)
	p.BuyerEmail = strings.ToLower(strings.TrimSpace(p.BuyerEmail))
	p.BuyerPhone = domain.NormalizeDocument(p.BuyerPhone)
	p.BuyerDocument = domain.NormalizeDocument(p.BuyerDocument)
	p.PaymentMethod = strings.ToLower(strings.TrimSpace(p.PaymentMethod))

	if p.ProductID == "" {
		errs = append(errs, FieldError{Field: "product_id", Code: CodeRequired})
	}
	if p.ProductName == "" {
		errs = append(errs, FieldError{Field: "product_name", Code: CodeRequired})
	}
	if p.ProductPrice < 0 {
		errs = append(errs, FieldError{Field: "product_price", Code: CodeNegativePrice})
	}
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
	if len(p.BuyerName) < 2 {
		errs = append(errs, FieldError{Field: "buyer_name", Code: CodeNameTooShort})
	}
	if !emailRegex.MatchString(p.BuyerEmail) {
		errs = append(errs, FieldError{Field: "buyer_email", Code: CodeInvalidEmail})
	}
	if p.BuyerDocument != "" && !domain.IsValidDocument(p.BuyerDocument) {
		errs = append(errs, FieldError{Field: "buyer_document", Code: CodeInvalidDoc})
	}
	if !domain.IsValidMethod(p.PaymentMethod) {
		errs = append(errs, FieldError{Field: "payment_method", Code: CodeInvalidMethod})
	}

	itemized := p.ProductPrice * float64(p.Quantity)
	for i := range p.OrderBumps {
		p.OrderBumps[i].Quantity = 1
		p.OrderBumps[i].Name = strings.TrimSpace(p.OrderBumps[i].Name)
		if p.OrderBumps[i].Price < 0 {
			errs = append(errs, FieldError{
				Field: fmt.Sprintf("order_bumps[%d].price", i),
				Code:  CodeNegativePrice,
			})
			continue
		}
		itemized += p.OrderBumps[i].Price
	}

	if math.Abs(p.TotalAmount-itemized) > totalTolerance {
		errs = append(errs, FieldError{Field: "total_amount", Code: CodeTotalMismatch})
	}

	if len(errs) > 0 {
		return Payload{}, errs
	}

	p.ProductPrice = roundReais(p.ProductPrice)
	for i := range p.OrderBumps {
		p.OrderBumps[i].Price = roundReais(p.OrderBumps[i].Price)
	}
	p.TotalAmount = roundReais(p.TotalAmount)
	return p, nil
}

// TotalCents returns the sanitized total in centavos.
func (p Payload) TotalCents() int64 {
	return domain.FromDecimal(decimal.NewFromFloat(p.TotalAmount))
}

func roundReais(v float64) float64 {
	f, _ := domain.RoundCents(decimal.NewFromFloat(v)).Float64()
	return f
}
