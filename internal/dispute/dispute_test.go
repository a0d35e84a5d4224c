package dispute

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidate_RefundIgnoresAmounts(t *testing.T) {
	// Остатки сумм от ранее выбранного SPLIT не должны влиять на REFUND.
	res, err := Validate(DecisionRefund, "garbage", "-50", amount("1000"), "full refund")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if res.Decision != DecisionRefund {
		t.Fatalf("Decision = %q, want REFUND", res.Decision)
	}
	if res.BuyerRefundAmount != nil || res.SellerPayoutAmount != nil {
		t.Fatalf("amounts must be omitted for REFUND, got %+v", res)
	}
	if res.Notes != "full refund" {
		t.Fatalf("Notes = %q, want %q", res.Notes, "full refund")
	}
}

func TestValidate_PayoutIgnoresAmounts(t *testing.T) {
	res, err := Validate(DecisionPayout, "999999", "not a number", amount("1000"), "")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if res.Decision != DecisionPayout {
		t.Fatalf("Decision = %q, want PAYOUT", res.Decision)
	}
	if res.BuyerRefundAmount != nil || res.SellerPayoutAmount != nil {
		t.Fatalf("amounts must be omitted for PAYOUT, got %+v", res)
	}
}

func TestValidate_SplitSuccess(t *testing.T) {
	res, err := Validate(DecisionSplit, "600", "400", amount("1000"), "partial fault")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if res.BuyerRefundAmount == nil || *res.BuyerRefundAmount != 600 {
		t.Fatalf("BuyerRefundAmount = %v, want 600", res.BuyerRefundAmount)
	}
	if res.SellerPayoutAmount == nil || *res.SellerPayoutAmount != 400 {
		t.Fatalf("SellerPayoutAmount = %v, want 400", res.SellerPayoutAmount)
	}
}

func TestValidate_SplitExactTotalAllowed(t *testing.T) {
	// Сумма, равная удержанной, допустима; границу нарушает только превышение.
	if _, err := Validate(DecisionSplit, "600", "400", amount("1000"), ""); err != nil {
		t.Fatalf("total equal to escrowed amount must pass, got %v", err)
	}
	if _, err := Validate(DecisionSplit, "1000", "0", amount("1000"), ""); err != nil {
		t.Fatalf("full refund via split must pass, got %v", err)
	}
}

func TestValidate_SplitErrors(t *testing.T) {
	tests := []struct {
		name    string
		buyer   string
		seller  string
		amount  string
		wantErr error
	}{
		{
			name:    "buyer amount not a number",
			buyer:   "abc",
			seller:  "100",
			amount:  "1000",
			wantErr: ErrInvalidBuyerAmount,
		},
		{
			name:    "buyer amount empty",
			buyer:   "",
			seller:  "100",
			amount:  "1000",
			wantErr: ErrInvalidBuyerAmount,
		},
		{
			name:    "buyer amount negative",
			buyer:   "-1",
			seller:  "100",
			amount:  "1000",
			wantErr: ErrInvalidBuyerAmount,
		},
		{
			name:    "seller amount not a number",
			buyer:   "100",
			seller:  "12.3.4",
			amount:  "1000",
			wantErr: ErrInvalidSellerAmount,
		},
		{
			name:    "seller amount negative",
			buyer:   "100",
			seller:  "-0.01",
			amount:  "1000",
			wantErr: ErrInvalidSellerAmount,
		},
		{
			name:    "total exceeds by one paisa",
			buyer:   "600",
			seller:  "400.01",
			amount:  "1000",
			wantErr: ErrTotalExceedsAmount,
		},
		{
			name:    "total exceeds",
			buyer:   "700",
			seller:  "400",
			amount:  "1000",
			wantErr: ErrTotalExceedsAmount,
		},
		{
			name:    "both amounts zero",
			buyer:   "0",
			seller:  "0",
			amount:  "1000",
			wantErr: ErrNoPositiveAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(DecisionSplit, tt.buyer, tt.seller, amount(tt.amount), "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate error = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Fatalf("IsValidationError(%v) = false, want true", err)
			}
		})
	}
}

func TestValidate_TotalExceedsMessageIncludesAmount(t *testing.T) {
	_, err := Validate(DecisionSplit, "700", "400", amount("1000"), "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "total exceeds escrowed amount of 1000.00" {
		t.Fatalf("error message = %q", got)
	}
}

func TestValidate_UnknownDecision(t *testing.T) {
	_, err := Validate(Decision("ESCALATE"), "", "", amount("1000"), "")
	if !errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("Validate error = %v, want ErrUnknownDecision", err)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	first, err := Validate(DecisionSplit, "600", "400", amount("1000"), "n")
	if err != nil {
		t.Fatalf("first Validate error: %v", err)
	}
	second, err := Validate(DecisionSplit, "600", "400", amount("1000"), "n")
	if err != nil {
		t.Fatalf("second Validate error: %v", err)
	}
	if *first.BuyerRefundAmount != *second.BuyerRefundAmount ||
		*first.SellerPayoutAmount != *second.SellerPayoutAmount {
		t.Fatalf("repeated validation produced different payloads: %+v vs %+v", first, second)
	}
}

func TestResolution_JSONPayload(t *testing.T) {
	res, err := Validate(DecisionSplit, "600", "400", amount("1000"), "damaged goods")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	for _, want := range []string{`"decision":"SPLIT"`, `"buyerRefundAmount":600`, `"sellerPayoutAmount":400`, `"notes":"damaged goods"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("payload %s missing %s", raw, want)
		}
	}

	refund, err := Validate(DecisionRefund, "", "", amount("1000"), "")
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	raw, err = json.Marshal(refund)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if strings.Contains(string(raw), "buyerRefundAmount") {
		t.Fatalf("REFUND payload must omit amounts: %s", raw)
	}
}

func TestIsValidationError_TransportError(t *testing.T) {
	if IsValidationError(errors.New("connection refused")) {
		t.Fatalf("transport errors must not be treated as validation errors")
	}
}
