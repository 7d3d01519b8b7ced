package matcher

import (
	"math/big"
	"testing"

	"github.com/stablex/driver/pkg/types"
)

func owner(n byte) types.Address {
	var a types.Address
	a[19] = n
	return a
}

func u(n uint64) types.Amount { return types.NewAmount(n) }

// units returns n * BaseUnit, matching the Rust tests' "N * BASE_UNIT" literals.
func units(n uint64) types.Amount {
	return types.MulDiv(u(n), BaseUnit, u(1))
}

func order(own types.Address, id types.OrderID, sellTok, buyTok types.TokenID, sellAmt, buyAmt types.Amount) types.Order {
	return types.Order{
		ID: id, Owner: own, SellToken: sellTok, BuyToken: buyTok,
		PriceNumerator: buyAmt, PriceDenominator: sellAmt, RemainingAmount: sellAmt,
		ValidFrom: 0, ValidUntil: 1000,
	}
}

// balancesFor credits every order's owner with exactly its sell amount of
// its sell token, so every order is fundable without testing the
// insufficient-funds branch.
func balancesFor(orders []types.Order) map[types.BalanceKey]types.Amount {
	bals := make(map[types.BalanceKey]types.Amount)
	for _, o := range orders {
		key := types.BalanceKey{Owner: o.Owner, Token: o.SellToken}
		bals[key] = bals[key].Add(o.PriceDenominator)
	}
	return bals
}

func TestS1LhsFullyFilledNoFee(t *testing.T) {
	t.Parallel()

	o0 := order(owner(1), 0, 0, 1, units(52), units(4))
	o1 := order(owner(0), 0, 1, 0, units(15), units(180))
	orders := []types.Order{o0, o1}

	sol := Solve(orders, balancesFor(orders), nil)
	if sol.IsTrivial() {
		t.Fatal("expected non-trivial solution")
	}
	if sol.Prices[0].Cmp(units(4)) != 0 {
		t.Errorf("prices[0] = %s, want %s", sol.Prices[0], units(4))
	}
	if sol.Prices[1].Cmp(units(52)) != 0 {
		t.Errorf("prices[1] = %s, want %s", sol.Prices[1], units(52))
	}
	if len(sol.Executions) != 2 {
		t.Fatalf("got %d executions, want 2", len(sol.Executions))
	}
	if sol.Executions[0].ExecSell.Cmp(units(52)) != 0 || sol.Executions[0].ExecBuy.Cmp(units(4)) != 0 {
		t.Errorf("execution[0] = %+v", sol.Executions[0])
	}
	if sol.Executions[1].ExecSell.Cmp(units(4)) != 0 || sol.Executions[1].ExecBuy.Cmp(units(52)) != 0 {
		t.Errorf("execution[1] = %+v", sol.Executions[1])
	}
}

func TestS2LhsWithFee(t *testing.T) {
	t.Parallel()

	o0 := order(owner(1), 0, 0, 1, units(52), units(4))
	o1 := order(owner(0), 0, 1, 0, units(15), units(180))
	orders := []types.Order{o0, o1}
	fee := &Fee{Token: 0, Ratio: 0.001}

	sol := Solve(orders, balancesFor(orders), fee)
	checkSolution(t, orders, sol, fee)

	if sol.IsTrivial() {
		t.Fatal("expected non-trivial solution")
	}
	if sol.Prices[0].Cmp(BasePrice) != 0 {
		t.Errorf("prices[0] = %s, want BasePrice", sol.Prices[0])
	}
	for _, e := range sol.Executions {
		if e.Owner == owner(1) && e.ExecSell.Cmp(units(52)) > 0 {
			t.Errorf("o0 exec_sell %s exceeds sell amount %s", e.ExecSell, units(52))
		}
	}
}

func TestS3BothFullyMatched(t *testing.T) {
	t.Parallel()

	o0 := order(owner(1), 0, 2, 1, units(10), units(10))
	o1 := order(owner(1), 1, 1, 2, units(16), units(8))
	orders := []types.Order{o0, o1}

	sol := Solve(orders, balancesFor(orders), nil)
	if sol.IsTrivial() {
		t.Fatal("expected non-trivial solution")
	}
	if sol.Executions[0].ExecSell.Cmp(units(10)) != 0 || sol.Executions[0].ExecBuy.Cmp(units(16)) != 0 {
		t.Errorf("execution[0] = %+v", sol.Executions[0])
	}
	if sol.Executions[1].ExecSell.Cmp(units(16)) != 0 || sol.Executions[1].ExecBuy.Cmp(units(10)) != 0 {
		t.Errorf("execution[1] = %+v", sol.Executions[1])
	}
	if sol.Prices[1].Cmp(units(10)) != 0 {
		t.Errorf("prices[1] = %s, want %s", sol.Prices[1], units(10))
	}
	if sol.Prices[2].Cmp(units(16)) != 0 {
		t.Errorf("prices[2] = %s, want %s", sol.Prices[2], units(16))
	}
}

func TestS4InsufficientBalance(t *testing.T) {
	t.Parallel()

	o0 := order(owner(1), 0, 1, 2, units(52), units(4))
	o1 := order(owner(0), 0, 2, 1, units(15), units(180))
	orders := []types.Order{o0, o1}

	sol := Solve(orders, map[types.BalanceKey]types.Amount{}, nil)
	if !sol.IsTrivial() {
		t.Error("expected trivial solution when balances are zero")
	}
}

func TestS5NoPriceOverlap(t *testing.T) {
	t.Parallel()

	o0 := order(owner(1), 0, 1, 2, units(52), units(4))
	o1 := order(owner(0), 0, 2, 1, units(10), units(180))
	orders := []types.Order{o0, o1}

	sol := Solve(orders, balancesFor(orders), nil)
	if !sol.IsTrivial() {
		t.Error("expected trivial solution when there is no price overlap")
	}
}

func TestS6StablexRoundTripWithFee(t *testing.T) {
	t.Parallel()

	o0 := order(owner(0), 0, 0, 1, u(20000), u(9990))
	o1 := order(owner(0), 1, 1, 0, u(9990), u(19960))
	orders := []types.Order{o0, o1}
	fee := &Fee{Token: 0, Ratio: 0.001}

	sol := Solve(orders, balancesFor(orders), fee)
	if sol.IsTrivial() {
		t.Fatal("expected non-trivial solution")
	}

	checkSolution(t, orders, sol, fee)

	if sol.Executions[0].ExecSell.Cmp(u(20000)) != 0 || sol.Executions[0].ExecBuy.Cmp(u(9990)) != 0 {
		t.Errorf("o0 execution = %+v", sol.Executions[0])
	}
	if sol.Executions[1].ExecSell.Cmp(u(9990)) != 0 || sol.Executions[1].ExecBuy.Cmp(u(19961)) != 0 {
		t.Errorf("o1 execution = %+v, want sell=9990 buy=19961", sol.Executions[1])
	}
	if sol.Prices[0].Cmp(BasePrice) != 0 {
		t.Errorf("prices[0] = %s, want BasePrice", sol.Prices[0])
	}
	want1 := types.MulDiv(BasePrice, u(2), u(1))
	if sol.Prices[1].Cmp(want1) != 0 {
		t.Errorf("prices[1] = %s, want %s", sol.Prices[1], want1)
	}
}

func TestRetrethExampleNoFee(t *testing.T) {
	t.Parallel()

	orders := []types.Order{
		order(owner(0), 0, 3, 2, u(12), u(12)),
		order(owner(1), 0, 2, 3, u(20), u(22)),
		order(owner(2), 0, 3, 1, u(10), u(150)),
		order(owner(3), 0, 2, 1, u(15), u(180)),
		order(owner(4), 0, 1, 2, u(52), u(4)),
		order(owner(5), 0, 1, 3, u(280), u(20)),
	}

	sol := Solve(orders, balancesFor(orders), nil)
	if sol.IsTrivial() {
		t.Fatal("expected non-trivial solution")
	}
	if sol.Prices[1].Cmp(u(4)) != 0 || sol.Prices[2].Cmp(u(52)) != 0 {
		t.Errorf("prices = %v, want {1:4, 2:52}", sol.Prices)
	}
	checkSolution(t, orders, sol, nil)
}

func TestNoMatches(t *testing.T) {
	t.Parallel()

	orders := []types.Order{
		order(owner(1), 0, 1, 2, u(52), u(4)),
		order(owner(0), 0, 2, 1, u(10), u(180)),
	}
	sol := Solve(orders, balancesFor(orders), nil)
	if !sol.IsTrivial() {
		t.Error("expected trivial solution")
	}
}

func TestDoesNotTradeNonFeeTokens(t *testing.T) {
	t.Parallel()

	orders := []types.Order{
		order(owner(0), 0, 0, 1, u(20000), u(9990)),
		order(owner(0), 1, 1, 0, u(9990), u(19960)),
	}
	fee := &Fee{Token: 2, Ratio: 0.001}
	sol := Solve(orders, balancesFor(orders), fee)
	if !sol.IsTrivial() {
		t.Error("expected trivial solution: neither order touches the fee token")
	}
}

func TestEmptyOrders(t *testing.T) {
	t.Parallel()

	sol := Solve(nil, map[types.BalanceKey]types.Amount{}, nil)
	if !sol.IsTrivial() {
		t.Error("expected trivial solution for empty order set")
	}
}

func TestEmptySellVolume(t *testing.T) {
	t.Parallel()

	orders := []types.Order{
		order(owner(0), 0, 0, 1, types.Zero, types.Zero),
		order(owner(0), 1, 1, 0, types.Zero, types.Zero),
	}
	sol := Solve(orders, balancesFor(orders), nil)
	if !sol.IsTrivial() {
		t.Error("expected trivial solution when sell amounts are zero")
	}
}

func TestMultipleMatchesPicksFirst(t *testing.T) {
	t.Parallel()

	fee := &Fee{Token: 0, Ratio: 0.5}
	orders := []types.Order{
		order(owner(0), 0, 0, 1, units(20), units(10)),
		order(owner(1), 1, 1, 0, units(10), units(5)),
		order(owner(2), 2, 0, 2, units(20), units(10)),
		order(owner(3), 3, 2, 0, units(10), units(5)),
	}
	sol := Solve(orders, balancesFor(orders), fee)
	checkSolution(t, orders, sol, fee)

	// Orders 0 and 1 are the first matchable pair, so they are the ones traded.
	if sol.IsTrivial() {
		t.Fatal("expected non-trivial solution")
	}
	if len(sol.Executions) != 2 ||
		sol.Executions[0].Owner != owner(0) || sol.Executions[0].OrderID != 0 ||
		sol.Executions[1].Owner != owner(1) || sol.Executions[1].OrderID != 1 {
		t.Errorf("executions = %+v, want orders (owner 0, id 0) and (owner 1, id 1)", sol.Executions)
	}
}

// checkSolution verifies the limit price is honored and that every
// non-fee token conserves volume, independent of the exact rounding
// path taken.
func checkSolution(t *testing.T, orders []types.Order, sol types.Solution, fee *Fee) {
	t.Helper()
	if sol.IsTrivial() {
		return
	}

	if fee != nil {
		if sol.Prices[fee.Token].Cmp(BasePrice) != 0 {
			t.Errorf("fee token price = %s, want BasePrice", sol.Prices[fee.Token])
		}
	}

	execByOrder := make(map[types.OrderKey]types.Execution)
	for _, e := range sol.Executions {
		execByOrder[types.OrderKey{Owner: e.Owner, ID: e.OrderID}] = e
	}

	conservation := make(map[types.TokenID]*big.Int)
	add := func(token types.TokenID, delta *big.Int) {
		if conservation[token] == nil {
			conservation[token] = new(big.Int)
		}
		conservation[token].Add(conservation[token], delta)
	}

	for _, o := range orders {
		e, ok := execByOrder[types.OrderKey{Owner: o.Owner, ID: o.ID}]
		if !ok {
			continue
		}
		if e.ExecSell.Cmp(o.PriceDenominator) > 0 {
			t.Errorf("order %v exec_sell %s exceeds sell amount %s", o.ID, e.ExecSell, o.PriceDenominator)
		}
		lhs := types.MulDiv(e.ExecSell, o.PriceNumerator, u(1))
		rhs := types.MulDiv(e.ExecBuy, o.PriceDenominator, u(1))
		if lhs.Cmp(rhs) > 0 {
			t.Errorf("order %v limit not honored: %s > %s", o.ID, lhs, rhs)
		}
		add(o.BuyToken, e.ExecBuy.Big())
		add(o.SellToken, new(big.Int).Neg(e.ExecSell.Big()))
	}

	for token := range sol.Prices {
		if fee != nil && token == fee.Token {
			continue
		}
		if bal := conservation[token]; bal != nil && bal.Sign() != 0 {
			t.Errorf("token %d not conserved: balance %s", token, bal)
		}
	}
}
