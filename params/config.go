// Package params holds the fast path's genesis configuration: the asset
// and instrument tables, the admin key authorized to register new
// instruments at runtime, and the ambient node settings (API address,
// storage paths) every deployment needs. Adapted from a validator-set
// consensus config into a single-process genesis descriptor — there is no
// validator set anymore, only one process applying one ordered envelope
// stream, so Config carries what that process needs instead of what a
// BFT quorum needed.
package params

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shadowbook/engine/pkg/money"
	"github.com/shadowbook/engine/pkg/state"
)

// Asset is one genesis settlement asset.
type Asset struct {
	ID       money.AssetID
	Symbol   string
	Decimals uint8
}

// Instrument is one genesis tradable pair.
type Instrument struct {
	ID    money.InstrumentID
	Base  money.AssetID
	Quote money.AssetID
	Tick  uint64
	Lot   uint64
}

// Node collects the ambient settings for one running fast-path process.
type Node struct {
	APIAddr       string
	StoragePath   string // Pebble checkpoint directory
	WALPath       string // flat-file WAL path
	LogPath       string
	BridgeEnable  bool
	LoadgenEnable bool

	// Bridge settings, only consulted when BridgeEnable is true. Kept as
	// raw strings here (rather than go-ethereum's common.Address) so this
	// package doesn't need the chain SDK just to carry config; cmd/node
	// parses them when it builds a pkg/bridge.Watcher.
	RPCURL          string
	VaultAddress    string // hex contract/EOA address tokens are sent to
	BridgeTokens    string // "contract:assetID,contract:assetID,..."
	BridgeAccounts  string // "sender:userID,sender:userID,..."
	BridgePollEvery uint64 // seconds between poll ticks
	BridgeBlockStep uint64 // block range scanned per poll
}

// Config is the full genesis + node descriptor one fast-path process loads
// at startup.
type Config struct {
	Assets         []Asset
	Instruments    []Instrument
	AdminPubKeyHex string // hex-encoded 65-byte uncompressed secp256k1 pubkey
	Node           Node
}

// Default returns a minimal two-asset, one-instrument genesis (USD and a
// synthetic BASE token trading against it) suitable for a devnet.
func Default() Config {
	return Config{
		Assets: []Asset{
			{ID: 1, Symbol: "USD", Decimals: 6},
			{ID: 2, Symbol: "BASE", Decimals: 8},
		},
		Instruments: []Instrument{
			{ID: 1, Base: 2, Quote: 1, Tick: 1, Lot: 100},
		},
		Node: Node{
			APIAddr:         ":8080",
			StoragePath:     "./data/checkpoints",
			WALPath:         "./data/wal.log",
			LogPath:         "./data/node.log",
			BridgePollEvery: 15,
			BridgeBlockStep: 500,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables, overlaying Default(). Priority: ENV > .env file >
// defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		cfg.Node.StoragePath = v
	}
	if v := os.Getenv("WAL_PATH"); v != "" {
		cfg.Node.WALPath = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		cfg.Node.LogPath = v
	}
	if v := os.Getenv("ADMIN_PUBKEY_HEX"); v != "" {
		cfg.AdminPubKeyHex = strings.TrimPrefix(v, "0x")
	}
	if v := os.Getenv("BRIDGE_ENABLE"); v != "" {
		cfg.Node.BridgeEnable = v == "true"
	}
	if v := os.Getenv("LOADGEN_ENABLE"); v != "" {
		cfg.Node.LoadgenEnable = v == "true"
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Node.RPCURL = v
	}
	if v := os.Getenv("VAULT_ADDRESS"); v != "" {
		cfg.Node.VaultAddress = v
	}
	if v := os.Getenv("BRIDGE_TOKENS"); v != "" {
		cfg.Node.BridgeTokens = v
	}
	if v := os.Getenv("BRIDGE_ACCOUNTS"); v != "" {
		cfg.Node.BridgeAccounts = v
	}
	if v := os.Getenv("BRIDGE_POLL_SECONDS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Node.BridgePollEvery = n
		}
	}
	if v := os.Getenv("BRIDGE_BLOCK_STEP"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Node.BridgeBlockStep = n
		}
	}
	if v := os.Getenv("GENESIS_ASSETS"); v != "" {
		if assets, err := parseAssets(v); err == nil {
			cfg.Assets = assets
		}
	}
	if v := os.Getenv("GENESIS_INSTRUMENTS"); v != "" {
		if insts, err := parseInstruments(v); err == nil {
			cfg.Instruments = insts
		}
	}

	return cfg
}

// parseAssets parses "id:symbol:decimals,id:symbol:decimals,...".
func parseAssets(v string) ([]Asset, error) {
	var out []Asset
	for _, part := range strings.Split(v, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("params: malformed asset entry %q", part)
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, err
		}
		dec, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, Asset{ID: money.AssetID(id), Symbol: fields[1], Decimals: uint8(dec)})
	}
	return out, nil
}

// parseInstruments parses "id:base:quote:tick:lot,...".
func parseInstruments(v string) ([]Instrument, error) {
	var out []Instrument
	for _, part := range strings.Split(v, ",") {
		fields := strings.Split(part, ":")
		if len(fields) != 5 {
			return nil, fmt.Errorf("params: malformed instrument entry %q", part)
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, err
		}
		base, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, err
		}
		quote, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, err
		}
		tick, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return nil, err
		}
		lot, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, Instrument{
			ID: money.InstrumentID(id), Base: money.AssetID(base), Quote: money.AssetID(quote),
			Tick: tick, Lot: lot,
		})
	}
	return out, nil
}

// AdminPubKey decodes the configured admin key, if one was set.
func (c Config) AdminPubKey() ([]byte, error) {
	if c.AdminPubKeyHex == "" {
		return nil, nil
	}
	return hex.DecodeString(c.AdminPubKeyHex)
}

// Genesis builds the world a fast path starts from: every configured
// asset and instrument, each instrument's book created empty and Active.
// Genesis entries bypass action.Dispatch entirely; they are declared
// config, not signed intents.
func Genesis(c Config) *state.State {
	s := state.New()
	for _, a := range c.Assets {
		s.Assets[a.ID] = state.Asset{ID: a.ID, Symbol: a.Symbol, Decimals: a.Decimals}
	}
	for _, i := range c.Instruments {
		s.Instruments[i.ID] = state.Instrument{
			ID: i.ID, Base: i.Base, Quote: i.Quote, Tick: i.Tick, Lot: i.Lot, Status: state.Active,
		}
		s.Book(i.ID)
	}
	return s
}
