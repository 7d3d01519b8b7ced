// contract.go defines the on-chain event ABI for the batch exchange
// contract this driver reads from, decoded with the standard
// abi.JSON/UnpackIntoInterface style used for indexed/non-indexed
// Solidity event logs.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const batchExchangeABIJSON = `[
	{"type":"event","name":"TokenListing","inputs":[
		{"name":"id","type":"uint16","indexed":true},
		{"name":"token","type":"address","indexed":false}
	]},
	{"type":"event","name":"OrderPlacement","inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"index","type":"uint16","indexed":true},
		{"name":"buyToken","type":"uint16","indexed":false},
		{"name":"sellToken","type":"uint16","indexed":false},
		{"name":"validFrom","type":"uint32","indexed":false},
		{"name":"validUntil","type":"uint32","indexed":false},
		{"name":"priceNumerator","type":"uint128","indexed":false},
		{"name":"priceDenominator","type":"uint128","indexed":false}
	]},
	{"type":"event","name":"OrderCancellation","inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"index","type":"uint16","indexed":true}
	]},
	{"type":"event","name":"OrderDeletion","inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"index","type":"uint16","indexed":true}
	]},
	{"type":"event","name":"Deposit","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"token","type":"uint16","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"batchId","type":"uint32","indexed":false}
	]},
	{"type":"event","name":"WithdrawRequest","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"token","type":"uint16","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"batchId","type":"uint32","indexed":false}
	]},
	{"type":"event","name":"Withdraw","inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"token","type":"uint16","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"SolutionSubmission","inputs":[
		{"name":"submitter","type":"address","indexed":true},
		{"name":"batchId","type":"uint32","indexed":true},
		{"name":"trades","type":"tuple[]","indexed":false,"components":[
			{"name":"owner","type":"address"},
			{"name":"orderId","type":"uint16"},
			{"name":"execSellAmount","type":"uint256"},
			{"name":"execBuyAmount","type":"uint256"}
		]}
	]},
	{"type":"function","name":"getEncodedAuctionElements","stateMutability":"view","inputs":[
		{"name":"pageSize","type":"uint16"},
		{"name":"previousPageUser","type":"address"},
		{"name":"previousPageUserOffset","type":"uint16"}
	],"outputs":[
		{"name":"elements","type":"bytes"}
	]},
	{"type":"function","name":"submitSolution","stateMutability":"nonpayable","inputs":[
		{"name":"batchIndex","type":"uint32"},
		{"name":"claimedObjectiveValue","type":"uint256"},
		{"name":"owners","type":"address[]"},
		{"name":"orderIds","type":"uint16[]"},
		{"name":"volumes","type":"uint128[]"},
		{"name":"prices","type":"uint128[]"},
		{"name":"tokenIdsForPrice","type":"uint16[]"}
	],"outputs":[]}
]`

func mustParseBatchExchangeABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(batchExchangeABIJSON))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

var batchExchangeABI = mustParseBatchExchangeABI()
