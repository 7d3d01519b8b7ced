package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/stablex/driver/pkg/types"
)

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(a.Bytes(), 32))
}

func uintTopic(v uint64) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32))
}

func buildLog(t *testing.T, eventName string, topics []common.Hash, nonIndexed []interface{}) ethtypes.Log {
	t.Helper()
	ev := batchExchangeABI.Events[eventName]
	data, err := ev.Inputs.NonIndexed().Pack(nonIndexed...)
	if err != nil {
		t.Fatalf("pack %s data: %v", eventName, err)
	}
	return ethtypes.Log{
		Topics:      append([]common.Hash{ev.ID}, topics...),
		Data:        data,
		BlockNumber: 42,
		Index:       3,
		BlockHash:   common.Hash{0xAB},
	}
}

func TestDecodeTokenListing(t *testing.T) {
	t.Parallel()

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	lg := buildLog(t, "TokenListing", []common.Hash{uintTopic(7)}, []interface{}{token})

	ev, err := decodeLog(lg)
	if err != nil {
		t.Fatalf("decodeLog: %v", err)
	}
	if ev.Data.Kind != types.EventTokenListing {
		t.Fatalf("kind = %v, want TokenListing", ev.Data.Kind)
	}
	if ev.Data.TokenID != 7 {
		t.Errorf("token id = %d, want 7", ev.Data.TokenID)
	}
	if ev.Data.TokenAddress != types.Address(token) {
		t.Errorf("token address = %x, want %x", ev.Data.TokenAddress, token)
	}
	if ev.BlockNumber != 42 || ev.LogIndex != 3 {
		t.Errorf("chain coordinates not carried through: %+v", ev)
	}
}

func TestDecodeOrderPlacement(t *testing.T) {
	t.Parallel()

	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")
	lg := buildLog(t, "OrderPlacement",
		[]common.Hash{addrTopic(owner), uintTopic(5)},
		[]interface{}{uint16(1), uint16(2), uint32(10), uint32(20), big.NewInt(100), big.NewInt(200)},
	)

	ev, err := decodeLog(lg)
	if err != nil {
		t.Fatalf("decodeLog: %v", err)
	}
	if ev.Data.Kind != types.EventOrderPlacement {
		t.Fatalf("kind = %v, want OrderPlacement", ev.Data.Kind)
	}
	if ev.Data.Owner != types.Address(owner) || ev.Data.OrderID != 5 {
		t.Errorf("owner/order id mismatch: %+v", ev.Data)
	}
	if ev.Data.BuyToken != 1 || ev.Data.SellToken != 2 {
		t.Errorf("buy/sell token mismatch: %+v", ev.Data)
	}
	if ev.Data.ValidFrom != 10 || ev.Data.ValidUntil != 20 {
		t.Errorf("validity window mismatch: %+v", ev.Data)
	}
	if ev.Data.Numerator.Uint64() != 100 || ev.Data.Denominator.Uint64() != 200 {
		t.Errorf("price mismatch: %+v", ev.Data)
	}
}

func TestDecodeDeposit(t *testing.T) {
	t.Parallel()

	user := common.HexToAddress("0x3333333333333333333333333333333333333333")
	lg := buildLog(t, "Deposit",
		[]common.Hash{addrTopic(user), uintTopic(4)},
		[]interface{}{big.NewInt(500), uint32(9)},
	)

	ev, err := decodeLog(lg)
	if err != nil {
		t.Fatalf("decodeLog: %v", err)
	}
	if ev.Data.Kind != types.EventDeposit {
		t.Fatalf("kind = %v, want Deposit", ev.Data.Kind)
	}
	if ev.Data.Owner != types.Address(user) || ev.Data.Token != 4 {
		t.Errorf("owner/token mismatch: %+v", ev.Data)
	}
	if ev.Data.Amount.Uint64() != 500 || ev.Data.BatchID != 9 {
		t.Errorf("amount/batch mismatch: %+v", ev.Data)
	}
}

func TestDecodeUnrecognizedTopicErrors(t *testing.T) {
	t.Parallel()

	lg := ethtypes.Log{Topics: []common.Hash{{0xFF}}, BlockNumber: 1}
	if _, err := decodeLog(lg); err == nil {
		t.Error("expected an error for an unrecognized event topic")
	}
}
