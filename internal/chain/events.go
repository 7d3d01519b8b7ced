// events.go decodes raw go-ethereum logs against the ABI in contract.go
// into the driver's own types.Event, following the same
// UnpackIntoInterface-plus-ParseTopics split abigen-generated bindings
// use for indexed vs non-indexed event fields.
package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/stablex/driver/pkg/types"
)

type tokenListingLog struct {
	Id    uint16
	Token common.Address
}

type orderPlacementLog struct {
	Owner            common.Address
	Index            uint16
	BuyToken         uint16
	SellToken        uint16
	ValidFrom        uint32
	ValidUntil       uint32
	PriceNumerator   *big.Int
	PriceDenominator *big.Int
}

type orderKeyLog struct {
	Owner common.Address
	Index uint16
}

type depositLog struct {
	User    common.Address
	Token   uint16
	Amount  *big.Int
	BatchId uint32
}

type withdrawLog struct {
	User   common.Address
	Token  uint16
	Amount *big.Int
}

type solutionSubmissionLog struct {
	Submitter common.Address
	BatchId   uint32
	Trades    []struct {
		Owner          common.Address
		OrderId        uint16
		ExecSellAmount *big.Int
		ExecBuyAmount  *big.Int
	}
}

// decodeLog converts one contract log into a types.Event with its chain
// coordinates populated; BlockTimestamp is left zero for the caller (the
// updater) to resolve via C5.
func decodeLog(lg ethtypes.Log) (types.Event, error) {
	if len(lg.Topics) == 0 {
		return types.Event{}, fmt.Errorf("log has no topics")
	}

	ev, err := batchExchangeABI.EventByID(lg.Topics[0])
	if err != nil {
		return types.Event{}, fmt.Errorf("unrecognized event topic %s: %w", lg.Topics[0], err)
	}

	base := types.Event{
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint64(lg.Index),
		BlockHash:   lg.BlockHash,
	}

	switch ev.Name {
	case "TokenListing":
		var out tokenListingLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{
			Kind:         types.EventTokenListing,
			TokenID:      types.TokenID(out.Id),
			TokenAddress: types.Address(out.Token),
		}

	case "OrderPlacement":
		var out orderPlacementLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{
			Kind:        types.EventOrderPlacement,
			Owner:       types.Address(out.Owner),
			OrderID:     types.OrderID(out.Index),
			BuyToken:    types.TokenID(out.BuyToken),
			SellToken:   types.TokenID(out.SellToken),
			ValidFrom:   types.BatchIndex(out.ValidFrom),
			ValidUntil:  types.BatchIndex(out.ValidUntil),
			Numerator:   types.AmountFromBig(out.PriceNumerator),
			Denominator: types.AmountFromBig(out.PriceDenominator),
		}

	case "OrderCancellation":
		var out orderKeyLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{Kind: types.EventOrderCancellation, Owner: types.Address(out.Owner), OrderID: types.OrderID(out.Index)}

	case "OrderDeletion":
		var out orderKeyLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{Kind: types.EventOrderDeletion, Owner: types.Address(out.Owner), OrderID: types.OrderID(out.Index)}

	case "Deposit":
		var out depositLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{Kind: types.EventDeposit, Owner: types.Address(out.User), Token: types.TokenID(out.Token), Amount: types.AmountFromBig(out.Amount), BatchID: types.BatchIndex(out.BatchId)}

	case "WithdrawRequest":
		var out depositLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{Kind: types.EventWithdrawRequest, Owner: types.Address(out.User), Token: types.TokenID(out.Token), Amount: types.AmountFromBig(out.Amount), BatchID: types.BatchIndex(out.BatchId)}

	case "Withdraw":
		var out withdrawLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		base.Data = types.EventData{Kind: types.EventWithdraw, Owner: types.Address(out.User), Token: types.TokenID(out.Token), Amount: types.AmountFromBig(out.Amount)}

	case "SolutionSubmission":
		var out solutionSubmissionLog
		if err := unpackLog(&out, ev.Name, lg); err != nil {
			return types.Event{}, err
		}
		trades := make([]types.Trade, len(out.Trades))
		for i, tr := range out.Trades {
			trades[i] = types.Trade{
				Owner:    types.Address(tr.Owner),
				OrderID:  types.OrderID(tr.OrderId),
				ExecSell: types.AmountFromBig(tr.ExecSellAmount),
				ExecBuy:  types.AmountFromBig(tr.ExecBuyAmount),
			}
		}
		base.Data = types.EventData{Kind: types.EventSolutionSubmission, Batch: types.BatchIndex(out.BatchId), Trades: trades}

	default:
		return types.Event{}, fmt.Errorf("unhandled event %s", ev.Name)
	}

	return base, nil
}

// unpackLog fills out's non-indexed fields from lg.Data and its indexed
// fields from lg.Topics[1:], the same split abigen-generated UnpackLog
// methods use.
func unpackLog(out interface{}, eventName string, lg ethtypes.Log) error {
	if err := batchExchangeABI.UnpackIntoInterface(out, eventName, lg.Data); err != nil {
		return fmt.Errorf("unpack %s data: %w", eventName, err)
	}
	indexed := make(abi.Arguments, 0)
	for _, arg := range batchExchangeABI.Events[eventName].Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) == 0 {
		return nil
	}
	if err := abi.ParseTopics(out, indexed, lg.Topics[1:]); err != nil {
		return fmt.Errorf("parse %s topics: %w", eventName, err)
	}
	return nil
}
