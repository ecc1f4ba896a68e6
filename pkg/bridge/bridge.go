// Package bridge turns ERC-20 Transfer logs on an external chain into
// Deposit actions on the core. It is the non-custodial boundary the rest
// of the system never has to think about: by the time an envelope reaches
// action.Dispatch, someone (this package) has already confirmed the
// underlying transfer happened on-chain, which is why Deposit carries no
// user signature at all (pkg/action/types.go).
package bridge

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/money"
)

// transferEventSig is the topic0 every ERC-20 Transfer log carries:
// keccak256("Transfer(address,address,uint256)").
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// LogSource is the subset of *ethclient.Client a Watcher needs, narrowed so
// tests can supply a fake without a live RPC endpoint.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Submitter is the fast path's envelope door — pkg/fastpath.Node satisfies
// it directly.
type Submitter interface {
	SubmitEnvelope(env action.Envelope) *action.Error
}

// TokenMapping names, for one watched ERC-20 contract, the asset a
// transfer into the vault address credits.
type TokenMapping struct {
	Contract common.Address
	Asset    money.AssetID
}

// Config is everything a Watcher needs to know which logs to ask for and
// how to turn a matching one into a Deposit.
type Config struct {
	Vault    common.Address                  // the address users send tokens to
	Tokens   []TokenMapping                  // contract -> asset, one per watched ERC-20
	Accounts map[common.Address]money.UserID // on-chain sender -> core UserID
}

// Watcher polls an external chain for Transfer(..., vault, amount) logs and
// turns each into a Deposit envelope. It holds no chain-finality policy of
// its own beyond the block range the caller asks it to scan — a caller
// wanting N-confirmation safety simply lags toBlock behind chain head by N.
type Watcher struct {
	src    LogSource
	cfg    Config
	submit Submitter
	logger *zap.Logger

	byContract map[common.Address]money.AssetID
}

func New(src LogSource, cfg Config, submit Submitter, logger *zap.Logger) *Watcher {
	byContract := make(map[common.Address]money.AssetID, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		byContract[t.Contract] = t.Asset
	}
	return &Watcher{src: src, cfg: cfg, submit: submit, logger: logger, byContract: byContract}
}

// PollOnce scans [fromBlock, toBlock] for Transfer logs on every configured
// token contract, resolves each to a Deposit, and submits it. It returns
// the deposits it successfully submitted; a log from an unrecognized
// sender or a sender with no mapped UserID is skipped, not rejected —
// there is no action to reject it with, since no envelope was ever built
// for it.
func (w *Watcher) PollOnce(ctx context.Context, fromBlock, toBlock uint64) ([]action.Deposit, error) {
	addrs := make([]common.Address, 0, len(w.cfg.Tokens))
	for _, t := range w.cfg.Tokens {
		addrs = append(addrs, t.Contract)
	}

	logs, err := w.src.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addrs,
		Topics:    [][]common.Hash{{transferEventSig}},
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: filter logs: %w", err)
	}

	var deposits []action.Deposit
	for _, lg := range logs {
		dep, ok := w.depositFromLog(lg)
		if !ok {
			continue
		}
		if err := w.submit.SubmitEnvelope(action.Envelope{Action: dep}); err != nil {
			if w.logger != nil {
				w.logger.Warn("bridge: deposit rejected", zap.String("code", string(err.Code)), zap.Uint64("user", uint64(dep.User)))
			}
			continue
		}
		deposits = append(deposits, dep)
	}
	return deposits, nil
}

// depositFromLog decodes one ERC-20 Transfer log into a Deposit, or
// reports ok=false if the log doesn't concern the vault or its sender has
// no known account mapping. A standard Transfer log's indexed fields
// (from, to) live in Topics[1] and Topics[2] as left-padded 32-byte words;
// the unindexed value is the entire Data field, also a 32-byte big-endian
// word.
func (w *Watcher) depositFromLog(lg types.Log) (action.Deposit, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != transferEventSig {
		return action.Deposit{}, false
	}
	to := common.BytesToAddress(lg.Topics[2].Bytes())
	if to != w.cfg.Vault {
		return action.Deposit{}, false
	}
	asset, ok := w.byContract[lg.Address]
	if !ok {
		return action.Deposit{}, false
	}
	from := common.BytesToAddress(lg.Topics[1].Bytes())
	user, ok := w.cfg.Accounts[from]
	if !ok {
		return action.Deposit{}, false
	}
	if len(lg.Data) != 32 {
		return action.Deposit{}, false
	}
	var amt32 [32]byte
	copy(amt32[:], lg.Data)

	return action.Deposit{User: user, Asset: asset, Amount: money.AmountFromBytes32(amt32)}, true
}
