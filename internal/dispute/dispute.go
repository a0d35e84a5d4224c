// Package dispute содержит валидацию решений оператора по спорным сделкам.
package dispute

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Decision описывает вид решения по спору.
type Decision string

const (
	// DecisionRefund — полный возврат удержанной суммы покупателю.
	DecisionRefund Decision = "REFUND"
	// DecisionPayout — полная выплата удержанной суммы продавцу.
	DecisionPayout Decision = "PAYOUT"
	// DecisionSplit — раздел удержанной суммы между сторонами.
	DecisionSplit Decision = "SPLIT"
)

// Ошибки валидации решения. Каждая показывается оператору как есть.
var (
	ErrUnknownDecision     = errors.New("unknown decision")
	ErrInvalidBuyerAmount  = errors.New("invalid buyer refund amount")
	ErrInvalidSellerAmount = errors.New("invalid seller payout amount")
	ErrTotalExceedsAmount  = errors.New("total exceeds escrowed amount")
	ErrNoPositiveAmount    = errors.New("at least one amount must be positive")
)

// IsValidationError сообщает, относится ли ошибка к валидации решения,
// а не к транспортному сбою.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnknownDecision) ||
		errors.Is(err, ErrInvalidBuyerAmount) ||
		errors.Is(err, ErrInvalidSellerAmount) ||
		errors.Is(err, ErrTotalExceedsAmount) ||
		errors.Is(err, ErrNoPositiveAmount)
}

// Resolution — готовая к отправке нагрузка решения по спору.
// Суммы присутствуют только для решения SPLIT; для REFUND и PAYOUT
// движение денег целиком определяет бэкенд.
type Resolution struct {
	Decision           Decision `json:"decision"`
	BuyerRefundAmount  *float64 `json:"buyerRefundAmount,omitempty"`
	SellerPayoutAmount *float64 `json:"sellerPayoutAmount,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// Validate проверяет решение оператора и собирает нагрузку для бэкенда.
// Для SPLIT суммы принимаются сырыми строками и разбираются здесь;
// для REFUND и PAYOUT значения сумм игнорируются полностью, даже если
// в полях остались данные от ранее выбранного SPLIT.
func Validate(decision Decision, buyerRefund, sellerPayout string, amount decimal.Decimal, notes string) (*Resolution, error) {
	switch decision {
	case DecisionRefund, DecisionPayout:
		return &Resolution{Decision: decision, Notes: notes}, nil
	case DecisionSplit:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecision, decision)
	}

	buyer, err := decimal.NewFromString(buyerRefund)
	if err != nil || buyer.IsNegative() {
		return nil, ErrInvalidBuyerAmount
	}

	seller, err := decimal.NewFromString(sellerPayout)
	if err != nil || seller.IsNegative() {
		return nil, ErrInvalidSellerAmount
	}

	if buyer.Add(seller).GreaterThan(amount) {
		return nil, fmt.Errorf("%w of %s", ErrTotalExceedsAmount, amount.StringFixed(2))
	}

	if buyer.IsZero() && seller.IsZero() {
		return nil, ErrNoPositiveAmount
	}

	buyerValue := buyer.InexactFloat64()
	sellerValue := seller.InexactFloat64()

	return &Resolution{
		Decision:           DecisionSplit,
		BuyerRefundAmount:  &buyerValue,
		SellerPayoutAmount: &sellerValue,
		Notes:              notes,
	}, nil
}
