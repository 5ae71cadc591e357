package enrollment

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFeeScheduleQuote(t *testing.T) {
	tests := []struct {
		name     string
		fs       FeeSchedule
		want     Quote
		wantErr  error
	}{
		{
			name: "card payment",
			fs: FeeSchedule{
				WeeklyFee:       dec("45.00"),
				WeeksCount:      8,
				RegistrationFee: dec("25.00"),
				VATRate:         dec("0.19"),
				CardFee:         dec("2.50"),
				PaymentMethod:   PaymentCard,
			},
			want: Quote{
				Subtotal:      dec("70.00"),
				VATAmount:     dec("13.30"),
				CardFeeAmount: dec("2.50"),
				Total:         dec("85.80"),
			},
		},
		{
			name: "transfer payment waives card fee",
			fs: FeeSchedule{
				WeeklyFee:       dec("45.00"),
				WeeksCount:      8,
				RegistrationFee: dec("25.00"),
				VATRate:         dec("0.19"),
				CardFee:         dec("2.50"),
				PaymentMethod:   PaymentTransfer,
			},
			want: Quote{
				Subtotal:      dec("70.00"),
				VATAmount:     dec("13.30"),
				CardFeeAmount: dec("0.00"),
				Total:         dec("83.30"),
			},
		},
		{
			name: "vat rounds half-up",
			fs: FeeSchedule{
				WeeklyFee:       dec("33.33"),
				RegistrationFee: dec("0.00"),
				VATRate:         dec("0.19"),
				CardFee:         dec("2.50"),
				PaymentMethod:   PaymentTransfer,
			},
			want: Quote{
				Subtotal:      dec("33.33"),
				VATAmount:     dec("6.33"), // 6.3327 -> 6.33
				CardFeeAmount: dec("0.00"),
				Total:         dec("39.66"),
			},
		},
		{
			name: "zero fees",
			fs: FeeSchedule{
				PaymentMethod: PaymentTransfer,
			},
			want: Quote{
				Subtotal:      dec("0"),
				VATAmount:     dec("0"),
				CardFeeAmount: dec("0"),
				Total:         dec("0"),
			},
		},
		{
			name:    "unknown payment method",
			fs:      FeeSchedule{PaymentMethod: "cash"},
			wantErr: ErrInvalidPaymentMethod,
		},
		{
			name:    "empty payment method",
			fs:      FeeSchedule{},
			wantErr: ErrInvalidPaymentMethod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fs.Quote()
			if err != tt.wantErr {
				t.Fatalf("Quote() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			assertDecEq(t, "subtotal", got.Subtotal, tt.want.Subtotal)
			assertDecEq(t, "vat_amount", got.VATAmount, tt.want.VATAmount)
			assertDecEq(t, "card_fee_amount", got.CardFeeAmount, tt.want.CardFeeAmount)
			assertDecEq(t, "total", got.Total, tt.want.Total)

			// total is always the exact sum of its parts
			sum := got.Subtotal.Add(got.VATAmount).Add(got.CardFeeAmount)
			assertDecEq(t, "total == subtotal+vat+card_fee", got.Total, sum)
		})
	}
}

func TestFeeScheduleQuote_repeatable(t *testing.T) {
	fs := FeeSchedule{
		WeeklyFee:       dec("45.00"),
		RegistrationFee: dec("25.00"),
		VATRate:         dec("0.19"),
		CardFee:         dec("2.50"),
		PaymentMethod:   PaymentCard,
	}
	first, err := fs.Quote()
	if err != nil {
		t.Fatalf("Quote() failed: %v", err)
	}
	// no drift across repeated computation
	for i := 0; i < 100; i++ {
		got, err := fs.Quote()
		if err != nil {
			t.Fatalf("Quote() failed: %v", err)
		}
		assertDecEq(t, "total", got.Total, first.Total)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr error
	}{
		{in: "card", want: PaymentCard},
		{in: "transfer", want: PaymentTransfer},
		{in: " Card ", want: PaymentCard},
		{in: "cash", wantErr: ErrInvalidPaymentMethod},
		{in: "", wantErr: ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.in)
			if err != tt.wantErr {
				t.Fatalf("ParsePaymentMethod() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePaymentMethod() = %v, want %v", got, tt.want)
			}
		})
	}
}

func assertDecEq(t *testing.T, field string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}
