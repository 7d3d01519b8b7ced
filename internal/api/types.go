package api

import (
	"encoding/hex"
	"time"

	"github.com/stablex/driver/pkg/types"
)

// Snapshot is the JSON rendering of an AuctionReader's view at a batch,
// returned by GET /snapshot?batch=N and broadcast as a "snapshot" event.
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Batch     types.BatchIndex `json:"batch"`
	Orders    []OrderView      `json:"orders"`
	Balances  []BalanceView    `json:"balances"`
}

// OrderView is the wire rendering of a types.Order.
type OrderView struct {
	ID               types.OrderID    `json:"id"`
	Owner            string           `json:"owner"`
	BuyToken         types.TokenID    `json:"buy_token"`
	SellToken        types.TokenID    `json:"sell_token"`
	PriceNumerator   types.Amount     `json:"price_numerator"`
	PriceDenominator types.Amount     `json:"price_denominator"`
	RemainingAmount  types.Amount     `json:"remaining_amount"`
	ValidFrom        types.BatchIndex `json:"valid_from"`
	ValidUntil       types.BatchIndex `json:"valid_until"`
}

// BalanceView is the wire rendering of one (owner, token) balance.
type BalanceView struct {
	Owner  string        `json:"owner"`
	Token  types.TokenID `json:"token"`
	Amount types.Amount  `json:"amount"`
}

func newOrderView(o types.Order) OrderView {
	return OrderView{
		ID:               o.ID,
		Owner:            addressHex(o.Owner),
		BuyToken:         o.BuyToken,
		SellToken:        o.SellToken,
		PriceNumerator:   o.PriceNumerator,
		PriceDenominator: o.PriceDenominator,
		RemainingAmount:  o.RemainingAmount,
		ValidFrom:        o.ValidFrom,
		ValidUntil:       o.ValidUntil,
	}
}

func addressHex(a types.Address) string {
	return "0x" + hex.EncodeToString(a[:])
}

// NewSnapshot converts an AuctionData view into its wire rendering.
func NewSnapshot(batch types.BatchIndex, data types.AuctionData) Snapshot {
	orders := make([]OrderView, 0, len(data.Orders))
	for _, o := range data.Orders {
		orders = append(orders, newOrderView(o))
	}

	balances := make([]BalanceView, 0, len(data.Balances))
	for k, v := range data.Balances {
		balances = append(balances, BalanceView{Owner: addressHex(k.Owner), Token: k.Token, Amount: v})
	}

	return Snapshot{
		Orders:   orders,
		Balances: balances,
		Batch:    batch,
	}
}

// ReadinessStatus is the body of GET /healthz.
type ReadinessStatus struct {
	Ready bool `json:"ready"`
}
