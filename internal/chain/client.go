package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/gzale/wrapcycle/internal/logging"
	"github.com/gzale/wrapcycle/internal/signer"
)

// Options tune transaction submission behavior.
type Options struct {
	// Confirm waits for the transaction receipt before reporting success.
	// Off by default: submission is the success signal.
	Confirm        bool
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Confirm:        false,
		PollInterval:   2 * time.Second,
		ConfirmTimeout: 2 * time.Minute,
	}
}

// Client wraps an ethclient connection plus the wrapped-token contract. It is
// stateless between calls and safe to reuse across sequential transactions.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	token   common.Address
	opts    Options
	log     logging.Logger
}

func Dial(ctx context.Context, rpcURL string, token common.Address, opts Options, log logging.Logger) (*Client, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 2 * time.Minute
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, clierr.Wrap(clierr.CodeUnavailable, "read chain id", err)
	}
	return &Client{eth: eth, chainID: chainID, token: token, opts: opts, log: log}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// GasPrice returns the node's current suggested gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "fetch gas price", err)
	}
	return price, nil
}

// WrappedBalance queries the owner's current wrapped-token balance. Always a
// fresh call; callers must not cache the result across transactions.
func (c *Client) WrappedBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	data, err := wrappedNativeABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack balanceOf", err)
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "call balanceOf", err)
	}
	values, err := wrappedNativeABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "decode balanceOf", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeUnavailable, "unexpected balanceOf return type")
	}
	return balance, nil
}

// Deposit wraps native currency: a payable deposit() call carrying value wei.
func (c *Client) Deposit(ctx context.Context, s signer.Signer, value, gasPrice *big.Int) (string, error) {
	data, err := wrappedNativeABI.Pack("deposit")
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "pack deposit", err)
	}
	return c.submit(ctx, s, value, gasPrice, data)
}

// Withdraw unwraps: burns amount of the wrapped token to reclaim native
// currency.
func (c *Client) Withdraw(ctx context.Context, s signer.Signer, tokenAmount, gasPrice *big.Int) (string, error) {
	data, err := wrappedNativeABI.Pack("withdraw", tokenAmount)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "pack withdraw", err)
	}
	return c.submit(ctx, s, big.NewInt(0), gasPrice, data)
}

func (c *Client) submit(ctx context.Context, s signer.Signer, value, gasPrice *big.Int, data []byte) (string, error) {
	from := s.Address()
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
	}
	msg := ethereum.CallMsg{From: from, To: &c.token, Value: value, Data: data}
	gasLimit, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUnavailable, "estimate gas", err)
	}
	gasLimit += gasLimit / 5

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &c.token,
		Value:    value,
		Data:     data,
	})
	signed, err := s.SignTx(c.chainID, tx)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", clierr.Wrap(clierr.CodeUnavailable, "broadcast transaction", err)
	}
	hash := signed.Hash().Hex()
	if !c.opts.Confirm {
		return hash, nil
	}
	if err := c.waitMined(ctx, signed.Hash()); err != nil {
		return hash, err
	}
	return hash, nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return clierr.New(clierr.CodeUnavailable, "transaction reverted on-chain")
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.log.Debugf("receipt poll for %s: %v", hash.Hex(), err)
		}
		select {
		case <-waitCtx.Done():
			return clierr.Wrap(clierr.CodeUnavailable, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}
