// Package chain implements the external collaborators named in §6: a
// ContractReader (paginated view calls plus event history/subscription)
// over go-ethereum's ethclient, and a Clock resolving block timestamps.
// Follows the retry/rate-limit/logger shape of a REST API client,
// generalized here to a JSON-RPC one.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-resty/resty/v2"

	"github.com/stablex/driver/pkg/types"
)

// Client is the go-ethereum-backed implementation of domain.PageSource,
// domain.EventSource, and domain.Clock, all against one contract address.
type Client struct {
	eth      *ethclient.Client
	http     *resty.Client // plain HTTP JSON-RPC client against the same node URL; always set by Dial, used only by Ping
	contract common.Address
	rl       *RateLimiter
	logger   *slog.Logger
}

// Config configures Dial.
type Config struct {
	NodeURL  string
	Contract common.Address
}

// Dial connects to the node and returns a Client rate-limited per
// internal/chain's RateLimiter defaults.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(cfg.NodeURL).
		SetRetryCount(3).
		SetHeader("Content-Type", "application/json")

	return &Client{
		eth:      eth,
		http:     httpClient,
		contract: cfg.Contract,
		rl:       NewRateLimiter(),
		logger:   logger.With("component", "chain"),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// GetAuctionDataPaginated implements domain.PageSource (C2): an
// eth_call against getEncodedAuctionElements, rate-limited to avoid
// overloading the node with back-to-back pages.
func (c *Client) GetAuctionDataPaginated(ctx context.Context, pageSize uint16, prevUser types.Address, prevOffset uint16) ([]byte, error) {
	if err := c.rl.PageRead.Wait(ctx); err != nil {
		return nil, err
	}

	calldata, err := batchExchangeABI.Pack("getEncodedAuctionElements", pageSize, common.Address(prevUser), prevOffset)
	if err != nil {
		return nil, fmt.Errorf("pack getEncodedAuctionElements: %w", err)
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("call getEncodedAuctionElements: %w", err)
	}

	var out struct{ Elements []byte }
	if err := batchExchangeABI.UnpackIntoInterface(&out, "getEncodedAuctionElements", result); err != nil {
		return nil, fmt.Errorf("unpack getEncodedAuctionElements: %w", err)
	}
	return out.Elements, nil
}

// Ping issues a lightweight eth_blockNumber JSON-RPC call over the resty
// client rather than ethclient, checking node liveness without a full
// typed ethclient round trip. No handler of the observability surface
// calls it; /healthz reports the updater's readiness only.
func (c *Client) Ping(ctx context.Context) error {
	var body struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"jsonrpc": "2.0", "method": "eth_blockNumber", "params": []any{}, "id": 1}).
		SetResult(&body).
		Post("/")
	if err != nil {
		return fmt.Errorf("ping node: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ping node: status %d", resp.StatusCode())
	}
	if body.Error != nil {
		return fmt.Errorf("ping node: %s", body.Error.Message)
	}
	return nil
}

// BlockTimestamp implements domain.Clock (C5).
func (c *Client) BlockTimestamp(ctx context.Context, blockHash [32]byte) (uint64, error) {
	header, err := c.eth.HeaderByHash(ctx, common.Hash(blockHash))
	if err != nil {
		return 0, fmt.Errorf("header by hash: %w", err)
	}
	return header.Time, nil
}

// LatestBlock implements domain.EventSource.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("latest header: %w", err)
	}
	return header.Number.Uint64(), nil
}

// PastEvents implements domain.EventSource (C4): FilterLogs over
// [fromBlock, toBlock) for every event this driver understands.
func (c *Client) PastEvents(ctx context.Context, fromBlock, toBlock uint64) ([]types.Event, error) {
	if toBlock <= fromBlock {
		return nil, nil
	}
	if err := c.rl.PastEvents.Wait(ctx); err != nil {
		return nil, err
	}

	// FilterQuery.ToBlock is inclusive, so the exclusive bound becomes toBlock-1.
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock - 1),
		Addresses: []common.Address{c.contract},
	}

	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter logs [%d, %d): %w", fromBlock, toBlock, err)
	}

	events := make([]types.Event, 0, len(logs))
	for _, lg := range logs {
		ev, err := decodeLog(lg)
		if err != nil {
			c.logger.Warn("skipping undecodable log", "block", lg.BlockNumber, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// SubscribeLive implements domain.EventSource (C4): a live log
// subscription starting at fromBlock, decoded on the fly. The returned
// error channel receives at most one value (the subscription's terminal
// error) before the event channel is closed.
func (c *Client) SubscribeLive(ctx context.Context, fromBlock uint64) (<-chan types.Event, <-chan error, error) {
	rawLogs := make(chan ethtypes.Log, 256)
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{c.contract},
	}

	sub, err := c.eth.SubscribeFilterLogs(ctx, query, rawLogs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe filter logs: %w", err)
	}

	events := make(chan types.Event, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				errs <- err
				return
			case lg := <-rawLogs:
				ev, err := decodeLog(lg)
				if err != nil {
					c.logger.Warn("skipping undecodable live log", "block", lg.BlockNumber, "error", err)
					continue
				}
				events <- ev
			}
		}
	}()

	return events, errs, nil
}
