// submitter.go implements the Submitter collaborator named in §6(c): it
// packs a types.Solution into a submitSolution transaction and signs it
// with an EOA private key. The ecdsa.PrivateKey handling and address
// derivation follow the same pattern as off-chain request signing,
// generalized here from EIP-712/HMAC request signing to EIP-155
// transaction signing, since this driver submits directly to a contract
// rather than a REST API.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/stablex/driver/pkg/types"
)

// Submitter signs and sends submitSolution transactions.
type Submitter struct {
	client     *Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewSubmitter builds a Submitter from a hex-encoded private key (with
// or without the "0x" prefix).
func NewSubmitter(client *Client, privateKeyHex string, chainID int64) (*Submitter, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Submitter{
		client:     client,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the submitter's on-chain address.
func (s *Submitter) Address() common.Address {
	return s.address
}

// SubmitSolution implements the Submitter collaborator (§6c): packs the
// solution's prices and executions into submitSolution calldata, signs
// an EIP-155 transaction, and broadcasts it.
func (s *Submitter) SubmitSolution(ctx context.Context, batch types.BatchIndex, sol types.Solution) (common.Hash, error) {
	if err := s.client.rl.Submit.Wait(ctx); err != nil {
		return common.Hash{}, err
	}

	calldata, objectiveValue, err := packSolution(batch, sol)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack solution: %w", err)
	}
	_ = objectiveValue // reserved for future reward-scaling logic; unused by submitSolution itself

	nonce, err := s.client.eth.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := s.client.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := s.client.eth.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &s.client.contract, Data: calldata})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &s.client.contract,
		Data:     calldata,
	})

	signer := ethtypes.NewEIP155Signer(s.chainID)
	signedTx, err := ethtypes.SignTx(tx, signer, s.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := s.client.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	return signedTx.Hash(), nil
}

// packSolution builds submitSolution calldata from a solution. Token
// order in tokenIdsForPrice follows map iteration order sorted
// ascending for determinism across calls.
func packSolution(batch types.BatchIndex, sol types.Solution) ([]byte, *big.Int, error) {
	tokenIDs := make([]uint16, 0, len(sol.Prices))
	for id := range sol.Prices {
		tokenIDs = append(tokenIDs, uint16(id))
	}
	sort.Slice(tokenIDs, func(i, j int) bool { return tokenIDs[i] < tokenIDs[j] })

	prices := make([]*big.Int, len(tokenIDs))
	for i, id := range tokenIDs {
		prices[i] = sol.Prices[types.TokenID(id)].Big()
	}

	owners := make([]common.Address, len(sol.Executions))
	orderIDs := make([]uint16, len(sol.Executions))
	volumes := make([]*big.Int, len(sol.Executions))
	for i, ex := range sol.Executions {
		owners[i] = common.Address(ex.Owner)
		orderIDs[i] = uint16(ex.OrderID)
		volumes[i] = ex.ExecBuy.Big()
	}

	objectiveValue := big.NewInt(0)

	data, err := batchExchangeABI.Pack(
		"submitSolution",
		uint32(batch),
		objectiveValue,
		owners,
		orderIDs,
		volumes,
		prices,
		tokenIDs,
	)
	if err != nil {
		return nil, nil, err
	}
	return data, objectiveValue, nil
}
