// Package filter implements the orderbook filter (§4.8, C8): user/token
// allow-deny rules applied to a snapshot before it reaches the matcher.
package filter

import "github.com/stablex/driver/pkg/types"

// Mode selects how an AllowList restricts its set.
type Mode int

const (
	// All permits everything; Set is ignored.
	All Mode = iota
	// Only permits exactly the members of Set.
	Only
	// AllExcept permits everything except the members of Set.
	AllExcept
)

// AllowList is one of All, Only(set), or AllExcept(set), per §4.8.
type AllowList[T comparable] struct {
	Mode Mode
	Set  map[T]struct{}
}

// AllowAll returns the All variant.
func AllowAll[T comparable]() AllowList[T] {
	return AllowList[T]{Mode: All}
}

// AllowOnly returns the Only variant over members.
func AllowOnly[T comparable](members ...T) AllowList[T] {
	return AllowList[T]{Mode: Only, Set: toSet(members)}
}

// AllowAllExcept returns the AllExcept variant over members.
func AllowAllExcept[T comparable](members ...T) AllowList[T] {
	return AllowList[T]{Mode: AllExcept, Set: toSet(members)}
}

func toSet[T comparable](members []T) map[T]struct{} {
	s := make(map[T]struct{}, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Allows reports whether v is permitted by the list.
func (l AllowList[T]) Allows(v T) bool {
	switch l.Mode {
	case Only:
		_, ok := l.Set[v]
		return ok
	case AllExcept:
		_, ok := l.Set[v]
		return !ok
	default:
		return true
	}
}

// OrderbookFilter configures C8: a token allow-list applied to every
// order and balance, plus a per-user order allow-list.
type OrderbookFilter struct {
	Tokens AllowList[types.TokenID]
	Users  map[types.Address]AllowList[types.OrderID]
}

// Default permits everything — the no-op filter.
func Default() OrderbookFilter {
	return OrderbookFilter{Tokens: AllowAll[types.TokenID](), Users: nil}
}

// Apply trims data to the orders and balances this filter permits.
// Balances for filtered-out tokens are dropped along with their orders,
// per §4.8.
func (f OrderbookFilter) Apply(data types.AuctionData) types.AuctionData {
	out := types.AuctionData{
		Balances: make(map[types.BalanceKey]types.Amount),
		Orders:   make([]types.Order, 0, len(data.Orders)),
	}

	for _, o := range data.Orders {
		if !f.Tokens.Allows(o.BuyToken) || !f.Tokens.Allows(o.SellToken) {
			continue
		}
		if userList, ok := f.Users[o.Owner]; ok && !userList.Allows(o.ID) {
			continue
		}
		out.Orders = append(out.Orders, o)
	}

	for k, v := range data.Balances {
		if !f.Tokens.Allows(k.Token) {
			continue
		}
		out.Balances[k] = v
	}

	return out
}
