// Package codec decodes the fixed-width binary auction element records
// returned by the contract's paginated view call (§4.1, C1).
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/stablex/driver/internal/domain"
	"github.com/stablex/driver/pkg/types"
)

// RecordSize is the width of one auction element record in bytes.
const RecordSize = 112

// offsets within one 112-byte record, per §4.1's layout table.
const (
	offOwner      = 0
	offSellBal    = 20
	offBuyToken   = 52
	offSellToken  = 54
	offValidFrom  = 56
	offValidUntil = 60
	offPriceNum   = 64
	offPriceDenom = 80
	offRemaining  = 96
)

// Record is one decoded auction element plus the sell-token balance
// carried alongside it — the balance applies to the owner's sell token,
// not to the order itself, per §4.2's accumulation rule.
type Record struct {
	Order            types.Order
	SellTokenBalance types.Amount
}

// DecodePage decodes a full page of concatenated 112-byte records.
// Returns domain.ErrCorruptPage if the length isn't a multiple of
// RecordSize or any record has sell_token == buy_token.
func DecodePage(page []byte) ([]Record, error) {
	if len(page)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: page length %d is not a multiple of %d", domain.ErrCorruptPage, len(page), RecordSize)
	}
	count := len(page) / RecordSize
	records := make([]Record, count)
	for i := 0; i < count; i++ {
		rec, err := decodeRecord(page[i*RecordSize : (i+1)*RecordSize])
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) != RecordSize {
		return Record{}, fmt.Errorf("%w: record length %d != %d", domain.ErrCorruptPage, len(b), RecordSize)
	}

	var owner types.Address
	copy(owner[:], b[offOwner:offOwner+types.AddressLength])

	sellBal := decodeU256(b[offSellBal : offSellBal+32])

	buyToken := types.TokenID(binary.BigEndian.Uint16(b[offBuyToken : offBuyToken+2]))
	sellToken := types.TokenID(binary.BigEndian.Uint16(b[offSellToken : offSellToken+2]))
	if buyToken == sellToken {
		return Record{}, fmt.Errorf("%w: buy_token == sell_token == %d", domain.ErrCorruptPage, buyToken)
	}

	validFrom := types.BatchIndex(binary.BigEndian.Uint32(b[offValidFrom : offValidFrom+4]))
	validUntil := types.BatchIndex(binary.BigEndian.Uint32(b[offValidUntil : offValidUntil+4]))

	priceNum := decodeU128(b[offPriceNum : offPriceNum+16])
	priceDenom := decodeU128(b[offPriceDenom : offPriceDenom+16])
	remaining := decodeU128(b[offRemaining : offRemaining+16])

	order := types.Order{
		Owner:            owner,
		BuyToken:         buyToken,
		SellToken:        sellToken,
		PriceNumerator:   priceNum,
		PriceDenominator: priceDenom,
		RemainingAmount:  remaining,
		ValidFrom:        validFrom,
		ValidUntil:       validUntil,
	}
	return Record{Order: order, SellTokenBalance: sellBal}, nil
}

// EncodeRecord is the inverse of decodeRecord, used by tests asserting
// the codec round-trip invariant (§8.6) and by test fixtures building
// page bytes without an on-chain contract.
func EncodeRecord(owner types.Address, sellTokenBalance types.Amount, o types.Order) []byte {
	b := make([]byte, RecordSize)
	copy(b[offOwner:offOwner+types.AddressLength], owner[:])
	encodeU256(b[offSellBal:offSellBal+32], sellTokenBalance)
	binary.BigEndian.PutUint16(b[offBuyToken:offBuyToken+2], uint16(o.BuyToken))
	binary.BigEndian.PutUint16(b[offSellToken:offSellToken+2], uint16(o.SellToken))
	binary.BigEndian.PutUint32(b[offValidFrom:offValidFrom+4], uint32(o.ValidFrom))
	binary.BigEndian.PutUint32(b[offValidUntil:offValidUntil+4], uint32(o.ValidUntil))
	encodeU128(b[offPriceNum:offPriceNum+16], o.PriceNumerator)
	encodeU128(b[offPriceDenom:offPriceDenom+16], o.PriceDenominator)
	encodeU128(b[offRemaining:offRemaining+16], o.RemainingAmount)
	return b
}

func decodeU128(b []byte) types.Amount {
	return decodeBE(b)
}

func decodeU256(b []byte) types.Amount {
	return decodeBE(b)
}

func decodeBE(b []byte) types.Amount {
	var buf [32]byte
	copy(buf[32-len(b):], b)
	return types.AmountFromBytesBE(buf[:])
}

func encodeU128(dst []byte, a types.Amount) {
	encodeBE(dst, a)
}

func encodeU256(dst []byte, a types.Amount) {
	encodeBE(dst, a)
}

func encodeBE(dst []byte, a types.Amount) {
	full := a.BytesBE32()
	copy(dst, full[32-len(dst):])
}
