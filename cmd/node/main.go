package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/shadowbook/engine/params"
	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/api"
	"github.com/shadowbook/engine/pkg/bridge"
	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/event"
	"github.com/shadowbook/engine/pkg/fastpath"
	"github.com/shadowbook/engine/pkg/loadgen"
	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/storage"
	"github.com/shadowbook/engine/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logFile := cfg.Node.LogPath
	if v := os.Getenv("LOG_FILE"); v != "" {
		logFile = v
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	adminPubKey, err := cfg.AdminPubKey()
	if err != nil {
		sugar.Fatalw("bad_admin_pubkey", "err", err)
	}
	if len(adminPubKey) > 0 {
		if _, err := crypto.ParsePublicKey(adminPubKey); err != nil {
			sugar.Fatalw("bad_admin_pubkey", "err", err)
		}
	}

	checkpoints, err := storage.NewPebbleStore(cfg.Node.StoragePath)
	if err != nil {
		sugar.Fatalw("checkpoint_store_init_failed", "err", err)
	}
	defer checkpoints.Close()

	wal, err := storage.NewFileWAL(cfg.Node.WALPath)
	if err != nil {
		sugar.Fatalw("wal_init_failed", "err", err)
	}
	defer wal.Close()

	// ---- Genesis + recovery ----
	s := params.Genesis(cfg)
	log := event.NewLog()
	node := fastpath.New(s, log, fastpath.Config{
		AdminPubKey: adminPubKey,
		Checkpoints: checkpoints,
		WAL:         wal,
		Clock:       util.RealClock{},
		Logger:      logger,
	})

	if lines, err := storage.ReadWAL(cfg.Node.WALPath); err != nil {
		sugar.Fatalw("wal_read_failed", "err", err)
	} else if len(lines) > 0 {
		if err := fastpath.RestoreFromWAL(node, lines); err != nil {
			sugar.Fatalw("wal_restore_failed", "err", err)
		}
		sugar.Infow("restored_from_wal", "actions", len(lines))

		// The replayed state must land exactly on the last checkpoint the
		// crashed run saved; anything else means the WAL and checkpoint
		// store disagree and the operator has to intervene.
		if ckpt, ok, err := checkpoints.LatestCheckpoint(); err != nil {
			sugar.Fatalw("checkpoint_read_failed", "err", err)
		} else if ok {
			status := node.Status()
			if status.StateRoot != fmt.Sprintf("%x", ckpt.StateRoot) {
				sugar.Fatalw("restore_diverged_from_checkpoint",
					"checkpoint_height", ckpt.Height, "restored_root", status.StateRoot)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Query/submit API ----
	apiServer := api.NewServer(node, logger)
	node.SetBroadcaster(apiServer)

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Load generator (optional) ----
	// Enable with LOADGEN_ENABLE=true; populates and funds its own account
	// pool against the genesis instrument set before feeding orders.
	if cfg.Node.LoadgenEnable {
		accounts, markets, err := bootstrapLoadgen(node, cfg)
		if err != nil {
			sugar.Fatalw("loadgen_bootstrap_failed", "err", err)
		}
		gen := loadgen.New(accounts, loadgen.DefaultConfig(markets), 1)
		cancelFeeder := loadgen.StartFeeder(ctx, gen, node, loadgen.DefaultFeederConfig(), logger)
		defer cancelFeeder()
		sugar.Infow("loadgen_enabled", "accounts", len(accounts), "markets", len(markets))
	}

	// ---- Native-chain bridge (optional) ----
	// Enable with BRIDGE_ENABLE=true; turns ERC-20 Transfer logs into
	// Deposit envelopes so deposits never need a user signature.
	if cfg.Node.BridgeEnable {
		watcher, startBlock, err := bootstrapBridge(cfg, node, logger)
		if err != nil {
			sugar.Fatalw("bridge_bootstrap_failed", "err", err)
		}
		stopBridge := startBridgePolling(ctx, watcher, startBlock, cfg.Node, logger)
		defer stopBridge()
		sugar.Infow("bridge_enabled", "rpc_url", cfg.Node.RPCURL, "start_block", startBlock)
	}

	sugar.Infow("node_starting",
		"assets", len(cfg.Assets), "instruments", len(cfg.Instruments),
		"bridge_enabled", cfg.Node.BridgeEnable)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := node.Status()
			sugar.Infow("fastpath_progress", "action_seq", status.ActionSeq, "state_root", status.StateRoot)
		}
	}
}

// bootstrapLoadgen mints a small funded account pool so the in-process
// load generator has something to trade with: each account registers its
// own key (the first AddSessionKey a user ever submits bootstraps its
// root key) and is deposited enough of every genesis asset to place a few
// hundred orders without running dry.
func bootstrapLoadgen(node *fastpath.Node, cfg params.Config) ([]*loadgen.Account, []loadgen.Market, error) {
	const numAccounts = 20
	accounts := make([]*loadgen.Account, 0, numAccounts)
	for i := 0; i < numAccounts; i++ {
		acct, err := loadgen.NewAccount(money.UserID(1000 + uint64(i)))
		if err != nil {
			return nil, nil, err
		}
		reg, err := acct.RegisterKeyEnvelope()
		if err != nil {
			return nil, nil, err
		}
		if actErr := node.SubmitEnvelope(reg); actErr != nil {
			return nil, nil, fmt.Errorf("register loadgen key for user %d: %s", acct.User, actErr.Code)
		}
		for _, a := range cfg.Assets {
			node.SubmitEnvelope(depositEnvelope(acct.User, a))
		}
		accounts = append(accounts, acct)
	}

	markets := make([]loadgen.Market, 0, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		markets = append(markets, loadgen.Market{
			Instrument: inst.ID, Tick: inst.Tick, Lot: inst.Lot,
			CenterPrice: inst.Tick * 1000, Spread: 50,
		})
	}
	return accounts, markets, nil
}

// bootstrapBridge dials the configured RPC endpoint and builds a
// pkg/bridge.Watcher from the node's BRIDGE_TOKENS/BRIDGE_ACCOUNTS mapping.
// It returns the block to start polling from: the chain's current head, so
// a freshly started node never replays deposits from before it existed.
func bootstrapBridge(cfg params.Config, node *fastpath.Node, logger *zap.Logger) (*bridge.Watcher, uint64, error) {
	client, err := ethclient.Dial(cfg.Node.RPCURL)
	if err != nil {
		return nil, 0, err
	}

	tokens, err := parseBridgeTokens(cfg.Node.BridgeTokens)
	if err != nil {
		return nil, 0, err
	}
	accounts, err := parseBridgeAccounts(cfg.Node.BridgeAccounts)
	if err != nil {
		return nil, 0, err
	}

	watcher := bridge.New(client, bridge.Config{
		Vault:    common.HexToAddress(cfg.Node.VaultAddress),
		Tokens:   tokens,
		Accounts: accounts,
	}, node, logger)

	head, err := client.BlockNumber(context.Background())
	if err != nil {
		return nil, 0, err
	}
	return watcher, head, nil
}

// startBridgePolling runs a ticker loop that scans successive block ranges
// of size cfg.BridgeBlockStep for deposits, advancing fromBlock only after a
// successful poll so a transient RPC error retries the same range instead
// of silently skipping it.
func startBridgePolling(ctx context.Context, watcher *bridge.Watcher, startBlock uint64, cfg params.Node, logger *zap.Logger) context.CancelFunc {
	pollCtx, cancel := context.WithCancel(ctx)
	interval := time.Duration(cfg.BridgePollEvery) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	step := cfg.BridgeBlockStep
	if step == 0 {
		step = 500
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		from := startBlock

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				to := from + step
				deposits, err := watcher.PollOnce(pollCtx, from, to)
				if err != nil {
					logger.Warn("bridge poll failed", zap.Error(err), zap.Uint64("from", from), zap.Uint64("to", to))
					continue
				}
				if len(deposits) > 0 {
					logger.Info("bridge deposits submitted", zap.Int("count", len(deposits)))
				}
				from = to + 1
			}
		}
	}()

	return cancel
}

// parseBridgeTokens parses "contract:assetID,contract:assetID,...".
func parseBridgeTokens(v string) ([]bridge.TokenMapping, error) {
	var out []bridge.TokenMapping
	if v == "" {
		return out, nil
	}
	for _, part := range strings.Split(v, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("main: malformed bridge token entry %q", part)
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, bridge.TokenMapping{Contract: common.HexToAddress(fields[0]), Asset: money.AssetID(id)})
	}
	return out, nil
}

// parseBridgeAccounts parses "sender:userID,sender:userID,...".
func parseBridgeAccounts(v string) (map[common.Address]money.UserID, error) {
	out := make(map[common.Address]money.UserID)
	if v == "" {
		return out, nil
	}
	for _, part := range strings.Split(v, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("main: malformed bridge account entry %q", part)
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, err
		}
		out[common.HexToAddress(fields[0])] = money.UserID(id)
	}
	return out, nil
}

// depositEnvelope builds an unsigned Deposit envelope crediting user with a
// generous balance of asset — Deposit carries no user signature (it is
// only ever originated by a trusted collaborator, here the node bootstrap
// itself standing in for pkg/bridge), so there is nothing to sign.
func depositEnvelope(user money.UserID, a params.Asset) action.Envelope {
	return action.Envelope{Action: action.Deposit{
		User: user, Asset: a.ID, Amount: money.FromUint64(1_000_000_000_000),
	}}
}
