package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/leonberkemeier/PortfolioSimulation/internal/domain"
)

// Status classifies the outcome of an order attempt. Rejections are
// ordinary results, not transport errors: a rejected order leaves the
// portfolio untouched and reports why.
type Status string

const (
	StatusSuccess              Status = "success"
	StatusInvalidAsset         Status = "invalid-asset"
	StatusInsufficientCash     Status = "insufficient-cash"
	StatusInsufficientHoldings Status = "insufficient-holdings"
	StatusPositionSizeLimit    Status = "position-size-limit"
	StatusAllocationLimit      Status = "allocation-limit"
	StatusValidationError      Status = "validation-error"
)

// OK reports whether the order executed.
func (s Status) OK() bool {
	return s == StatusSuccess
}

// Confirmation is the full result of an order attempt. Rejections echo the
// requested order so the caller never needs the original request to log or
// display the outcome; TransactionID points at the ledger row on success.
type Confirmation struct {
	Status        Status            `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	Message       string            `json:"message"`
	Timestamp     time.Time         `json:"timestamp"`
	TransactionID *int64            `json:"transaction_id,omitempty"`
	PortfolioID   int64             `json:"portfolio_id"`
	Side          domain.OrderSide  `json:"side"`
	AssetClass    domain.AssetClass `json:"asset_class"`
	Ticker        string            `json:"ticker"`
	Quantity      decimal.Decimal   `json:"quantity"`
	Price         decimal.Decimal   `json:"price"`
	Fee           decimal.Decimal   `json:"fee"`
	TotalCost     decimal.Decimal   `json:"total_cost"` // cash delta magnitude incl. fee
	CashAfter     decimal.Decimal   `json:"cash_after"`
	RealizedPL    *decimal.Decimal  `json:"realized_pl,omitempty"` // sells only, against avg entry
}

// rejected builds a rejection that echoes the requested order.
func rejected(req Request, status Status, reason string) Confirmation {
	return Confirmation{
		Status:      status,
		Reason:      reason,
		Message:     reason,
		Timestamp:   time.Now().UTC(),
		PortfolioID: req.PortfolioID,
		Side:        req.Side,
		AssetClass:  req.AssetClass,
		Ticker:      req.Ticker,
		Quantity:    req.Quantity,
	}
}

// rejectedAt is rejected with the resolved execution price attached.
func rejectedAt(req Request, price decimal.Decimal, status Status, reason string) Confirmation {
	c := rejected(req, status, reason)
	c.Price = price
	return c
}
