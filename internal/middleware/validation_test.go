package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type paymentRequest struct {
	Lines       []lineRequest   `json:"lines" validate:"required,min=1,dive"`
	DownPayment decimal.Decimal `json:"down_payment" validate:"gt=0"`
	Email       string          `json:"email" validate:"omitempty,email"`
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{
			name: "valid",
			body: `{"lines":[{"product_id":"6f1c2d1e-6d3a-4c55-9b7e-2b1d7e3f4a10","quantity":1}],"down_payment":"1500.50"}`,
		},
		{
			name:   "bad line and zero down payment",
			body:   `{"lines":[{"product_id":"x","quantity":0}],"down_payment":"0"}`,
			fields: []string{"lines[0].product_id", "lines[0].quantity", "down_payment"},
		},
		{
			name:   "missing lines",
			body:   `{"down_payment":10,"email":"nope"}`,
			fields: []string{"lines", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req paymentRequest
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			err := DecodeAndValidate(httptest.NewRecorder(), r, &req)

			if tt.fields == nil {
				require.NoError(t, err)
				assert.True(t, decimal.RequireFromString("1500.5").Equal(req.DownPayment))
				return
			}

			formatted := FormatValidationErrors(err)
			var got []string
			for _, f := range formatted {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestDecodeAndValidate_RejectsUnknownFieldsAndBadJSON(t *testing.T) {
	for _, body := range []string{`{"lines":[],"discount":5}`, `{"lines":`} {
		var req paymentRequest
		err := DecodeAndValidate(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader(body)), &req)
		require.Error(t, err)
		assert.Empty(t, FormatValidationErrors(err), "decode errors are not field errors")
	}
}
