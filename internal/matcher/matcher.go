// Package matcher implements the naive two-order uniform-price solver
// (§4.6, C6): it scans all order pairs for the first legally matchable
// pair, computes a single clearing price per token, and falls back to
// the trivial (no-op) solution when no pair matches or a fee-rounding
// step can't produce a consistent result. Reports failure through ok
// flags and the trivial solution rather than errors, and uses types.Amount's 256-bit
// arithmetic to give headroom above the wire format's 128-bit amounts.
package matcher

import (
	"math/big"

	"github.com/stablex/driver/pkg/types"
)

// BaseUnit and BasePrice are the §4.6 constants: every non-trivial
// solution pins the fee token's price to BasePrice.
var (
	BaseUnit  = types.AmountFromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	BasePrice = BaseUnit
)

// Fee is the optional per-trade fee (§4.6); only {Token: 0, Ratio: 1/1000}
// is used in practice but the solver is general over it.
type Fee = types.Fee

// Solve runs the naive matcher over orders and balances and returns a
// Solution, or the trivial solution if no legal match exists.
func Solve(orders []types.Order, balances map[types.BalanceKey]types.Amount, fee *Fee) types.Solution {
	match := findFirstMatch(orders, balances, fee)
	if match == nil {
		return types.TrivialSolution()
	}

	x, y := bufferForFee(match.x, fee), bufferForFee(match.y, fee)
	executions, prices := createExecutions(match.pairType, x, y)

	if fee == nil {
		return types.Solution{Prices: prices, Executions: executions}
	}
	return applyFee([2]matchOrder{x, y}, *fee, executions, prices)
}

// matchOrder is the matcher's view of one order: owner/id for attributing
// the execution, the two tokens, and the buy/sell amounts the solver
// operates on. These are the order's full (price_numerator,
// price_denominator) pair as surfaced by the orderbook snapshot — partial
// fills are already accounted for by remaining_amount gating which
// orders are active (§3), not by a second scaled view here.
type matchOrder struct {
	owner     types.Address
	id        types.OrderID
	buyToken  types.TokenID
	sellToken types.TokenID
	buyAmount types.Amount
	sellAmount types.Amount
}

func toMatchOrder(o types.Order) matchOrder {
	return matchOrder{
		owner:      o.Owner,
		id:         o.ID,
		buyToken:   o.BuyToken,
		sellToken:  o.SellToken,
		buyAmount:  o.PriceNumerator,
		sellAmount: o.PriceDenominator,
	}
}

type pairType int

const (
	lhsFullyFilled pairType = iota
	rhsFullyFilled
	bothFullyFilled
)

type match struct {
	pairType pairType
	x, y     matchOrder
}

// findFirstMatch iterates all ordered pairs (x, y) with x preceding y and
// returns the first pair satisfying §4.6 step 1's four conditions.
func findFirstMatch(orders []types.Order, balances map[types.BalanceKey]types.Amount, fee *Fee) *match {
	for i, xo := range orders {
		x := toMatchOrder(xo)
		for j := i + 1; j < len(orders); j++ {
			y := toMatchOrder(orders[j])
			if pt, ok := matchCompare(x, y, balances, fee); ok {
				return &match{pairType: pt, x: x, y: y}
			}
		}
	}
	return nil
}

func sufficientSellerFunds(o matchOrder, balances map[types.BalanceKey]types.Amount) bool {
	bal := balances[types.BalanceKey{Owner: o.owner, Token: o.sellToken}]
	return bal.Cmp(o.sellAmount) >= 0
}

func oppositeTokens(x, y matchOrder) bool {
	return x.buyToken == y.sellToken && x.sellToken == y.buyToken
}

func havePriceOverlap(x, y matchOrder) bool {
	if x.sellAmount.IsZero() || y.sellAmount.IsZero() {
		return false
	}
	lhs := mul256(x.buyAmount, y.buyAmount)
	rhs := mul256(y.sellAmount, x.sellAmount)
	return lhs.Cmp(rhs) <= 0
}

// mul256 multiplies two amounts without an intermediate division, safe
// because Amount is backed by a 256-bit integer and both operands are
// bounded to 128 bits on the wire (§4.1).
func mul256(a, b types.Amount) types.Amount {
	return types.MulDiv(a, b, types.NewAmount(1))
}

func tradesFeeToken(o matchOrder, fee Fee) bool {
	return o.buyToken == fee.Token || o.sellToken == fee.Token
}

func attracts(x, y matchOrder, fee *Fee) bool {
	if fee != nil {
		if x.sellToken != fee.Token && x.buyToken != fee.Token {
			return false
		}
	}
	return oppositeTokens(x, y) && havePriceOverlap(x, y)
}

func matchCompare(x, y matchOrder, balances map[types.BalanceKey]types.Amount, fee *Fee) (pairType, bool) {
	if !sufficientSellerFunds(x, balances) || !sufficientSellerFunds(y, balances) {
		return 0, false
	}
	if !attracts(x, y, fee) {
		return 0, false
	}
	if fee != nil && !tradesFeeToken(x, *fee) {
		return 0, false
	}

	switch {
	case x.buyAmount.Cmp(y.sellAmount) <= 0 && x.sellAmount.Cmp(y.buyAmount) <= 0:
		return lhsFullyFilled, true
	case x.buyAmount.Cmp(y.sellAmount) >= 0 && x.sellAmount.Cmp(y.buyAmount) >= 0:
		return rhsFullyFilled, true
	default:
		return bothFullyFilled, true
	}
}

// feeDenominator converts fee.ratio to the integer D used throughout the
// arithmetic (§9: "never propagate the float past config parsing").
func feeDenominator(fee Fee) types.Amount {
	return types.NewAmount(fee.Denominator())
}

// bufferForFee pre-inflates an order's amounts so the post-fee limit is
// still satisfied (§4.6 step 2).
func bufferForFee(o matchOrder, fee *Fee) matchOrder {
	if fee == nil {
		return o
	}
	d := feeDenominator(*fee)
	dMinus1 := d.Sub(types.NewAmount(1))

	switch fee.Token {
	case o.buyToken:
		o.buyAmount = types.MulDivCeil(o.buyAmount, d, dMinus1)
	case o.sellToken:
		o.sellAmount = types.MulDiv(o.sellAmount, dMinus1, d)
	}
	return o
}

// createExecutions classifies the matched pair and computes the
// pre-fee-application executions and price map, per §4.6 step 3's table.
func createExecutions(pt pairType, x, y matchOrder) ([]types.Execution, map[types.TokenID]types.Amount) {
	prices := make(map[types.TokenID]types.Amount, 2)

	mk := func(o matchOrder, sell, buy types.Amount) types.Execution {
		return types.Execution{Owner: o.owner, OrderID: o.id, ExecSell: sell, ExecBuy: buy}
	}

	switch pt {
	case lhsFullyFilled:
		prices[x.buyToken] = x.sellAmount
		prices[y.buyToken] = x.buyAmount
		return []types.Execution{
			mk(x, x.sellAmount, x.buyAmount),
			mk(y, x.buyAmount, x.sellAmount),
		}, prices

	case rhsFullyFilled:
		prices[x.sellToken] = y.sellAmount
		prices[y.sellToken] = y.buyAmount
		return []types.Execution{
			mk(x, y.buyAmount, y.sellAmount),
			mk(y, y.sellAmount, y.buyAmount),
		}, prices

	default: // bothFullyFilled
		prices[y.buyToken] = y.sellAmount
		prices[x.buyToken] = x.sellAmount
		return []types.Execution{
			mk(x, x.sellAmount, y.sellAmount),
			mk(y, y.sellAmount, x.sellAmount),
		}, prices
	}
}

// applyFee normalizes prices to pin the fee token at BasePrice (§4.6 step
// 4), then recomputes each execution's fee-bearing leg (§4.6 step 5),
// falling back to the trivial solution whenever normalization or
// rounding can't produce a consistent result.
func applyFee(orders [2]matchOrder, fee Fee, executions []types.Execution, prices map[types.TokenID]types.Amount) types.Solution {
	preNormalizedFeePrice, ok := prices[fee.Token]
	if !ok || preNormalizedFeePrice.IsZero() {
		return types.TrivialSolution()
	}

	normalized := make(map[types.TokenID]types.Amount, len(prices))
	for token, price := range prices {
		np, ok := normalizePrice(price, preNormalizedFeePrice)
		if !ok {
			return types.TrivialSolution()
		}
		normalized[token] = np
	}

	d := feeDenominator(fee)
	dMinus1 := d.Sub(types.NewAmount(1))

	out := make([]types.Execution, len(executions))
	copy(out, executions)

	for i, o := range orders {
		exec := out[i]
		if o.sellToken == fee.Token {
			buyPrice := normalized[o.buyToken]
			exec.ExecSell = executedSellAmount(d, dMinus1, exec.ExecBuy, buyPrice, BasePrice)
		} else {
			sellPrice := normalized[o.sellToken]
			execBuy, ok := executedBuyAmount(d, dMinus1, exec.ExecSell, BasePrice, sellPrice)
			if !ok {
				return types.TrivialSolution()
			}
			exec.ExecBuy = execBuy
		}
		out[i] = exec
	}

	return types.Solution{Prices: normalized, Executions: out}
}

// normalizePrice returns ceil(price*BasePrice/feePrice), or false if the
// result overflows 128 bits (§4.6 step 4).
func normalizePrice(price, feePrice types.Amount) (types.Amount, bool) {
	np := types.MulDivCeil(price, BasePrice, feePrice)
	if !np.FitsUint128() {
		return types.Amount{}, false
	}
	return np, true
}

// executedSellAmount computes the fee-token-sell-side execution (§4.6
// step 5, first branch): floor(floor(execBuy*buyPrice/(D-1))*D/sellPrice).
func executedSellAmount(d, dMinus1, execBuy, buyPrice, sellPrice types.Amount) types.Amount {
	t1 := types.MulDiv(execBuy, buyPrice, dMinus1)
	return types.MulDiv(t1, d, sellPrice)
}

// executedBuyAmount computes the fee-token-buy-side execution (§4.6 step
// 5, second branch) and verifies it round-trips through
// executedSellAmount, returning false if it doesn't — the signal to fall
// back to the trivial solution for an unsatisfiable rounding case.
func executedBuyAmount(d, dMinus1, execSell, buyPrice, sellPrice types.Amount) (types.Amount, bool) {
	t1 := types.MulDiv(execSell, sellPrice, d)
	execBuy := types.MulDivCeil(t1, dMinus1, buyPrice)

	if execSell.Cmp(executedSellAmount(d, dMinus1, execBuy, buyPrice, sellPrice)) != 0 {
		return types.Amount{}, false
	}
	return execBuy, true
}
