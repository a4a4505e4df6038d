package checkout

import (
	"testing"

	"github.com/podpay/fee-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() Payload {
	return Payload{
		ProductID:     "prod-1",
		ProductName:   "Curso de Marketing",
		ProductPrice:  197.00,
		Quantity:      1,
		TotalAmount:   197.00,
		BuyerName:     "Maria Silva",
		BuyerEmail:    "maria@example.com",
		BuyerPhone:    "(11) 98765-4321",
		BuyerDocument: "111.444.777-35",
		PaymentMethod: domain.MethodPix,
	}
}

func TestValidate_SanitizesPayload(t *testing.T) {
	p := validPayload()
	p.BuyerEmail = "  MARIA@Example.COM "
	p.BuyerName = "  Maria Silva  "

	got, err := Validate(p)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", got.BuyerEmail)
	assert.Equal(t, "Maria Silva", got.BuyerName)
	assert.Equal(t, "11987654321", got.BuyerPhone)
	assert.Equal(t, "11144477735", got.BuyerDocument)
	assert.Equal(t, int64(197_00), got.TotalCents())
}

func TestValidate_TotalWithOrderBumps(t *testing.T) {
	p := validPayload()
	p.OrderBumps = []OrderBump{
		{ProductID: "bump-1", Name: "Ebook", Price: 27.90, Quantity: 5},
		{ProductID: "bump-2", Name: "Mentoria", Price: 0.10, Quantity: 0},
	}
	p.TotalAmount = 225.00 // 197.00 + 27.90 + 0.10

	got, err := Validate(p)
	require.NoError(t, err)
	assert.Equal(t, int64(225_00), got.TotalCents())
	for _, b := range got.OrderBumps {
		assert.Equal(t, 1, b.Quantity, "bump quantity is always forced to 1")
	}
}

func TestValidate_TotalMismatch(t *testing.T) {
	p := validPayload()
	p.OrderBumps = []OrderBump{{ProductID: "bump-1", Name: "Ebook", Price: 27.90}}
	p.TotalAmount = 224.88 // itemized is 224.90

	_, err := Validate(p)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "total_amount", verrs[0].Field)
	assert.Equal(t, CodeTotalMismatch, verrs[0].Code)
}

func TestValidate_ToleratesOneCentDrift(t *testing.T) {
	p := validPayload()
	p.TotalAmount = 197.01

	_, err := Validate(p)
	assert.NoError(t, err)
}

func TestValidate_QuantityMultipliesPrice(t *testing.T) {
	p := validPayload()
	p.Quantity = 3
	p.TotalAmount = 591.00

	got, err := Validate(p)
	require.NoError(t, err)
	assert.Equal(t, int64(591_00), got.TotalCents())
}

func TestValidate_ZeroQuantityDefaultsToOne(t *testing.T) {
	p := validPayload()
	p.Quantity = 0

	got, err := Validate(p)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)
}

func TestValidate_FieldErrors(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Payload)
		field    string
		wantCode string
	}{
		{name: "missing_product_id", mutate: func(p *Payload) { p.ProductID = " " }, field: "product_id", wantCode: CodeRequired},
		{name: "missing_product_name", mutate: func(p *Payload) { p.ProductName = "" }, field: "product_name", wantCode: CodeRequired},
		{name: "negative_price", mutate: func(p *Payload) { p.ProductPrice = -1; p.TotalAmount = -1 }, field: "product_price", wantCode: CodeNegativePrice},
		{name: "short_name", mutate: func(p *Payload) { p.BuyerName = "M" }, field: "buyer_name", wantCode: CodeNameTooShort},
		{name: "bad_email", mutate: func(p *Payload) { p.BuyerEmail = "not-an-email" }, field: "buyer_email", wantCode: CodeInvalidEmail},
		{name: "bad_document", mutate: func(p *Payload) { p.BuyerDocument = "111.111.111-11" }, field: "buyer_document", wantCode: CodeInvalidDoc},
		{name: "bad_method", mutate: func(p *Payload) { p.PaymentMethod = "cheque" }, field: "payment_method", wantCode: CodeInvalidMethod},
		{name: "negative_bump", mutate: func(p *Payload) {
			p.OrderBumps = []OrderBump{{ProductID: "b", Name: "B", Price: -5}}
		}, field: "order_bumps[0].price", wantCode: CodeNegativePrice},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(&p)

			_, err := Validate(p)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)

			found := false
			for _, fe := range verrs {
				if fe.Field == tc.field {
					assert.Equal(t, tc.wantCode, fe.Code)
					found = true
				}
			}
			assert.True(t, found, "expected error on field %s, got %v", tc.field, verrs)
		})
	}
}

func TestValidate_EmptyDocumentIsAccepted(t *testing.T) {
	p := validPayload()
	p.BuyerDocument = ""

	_, err := Validate(p)
	assert.NoError(t, err)
}
