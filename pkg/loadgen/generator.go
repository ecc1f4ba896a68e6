// Package loadgen produces synthetic, properly signed action streams for
// throughput testing, generalized from a string-format order generator
// into one that builds real action.Envelope values a fast path would
// actually accept: a fixed pool of funded accounts placing random limit
// orders and occasionally cancelling one of their own.
package loadgen

import (
	"fmt"
	"math/rand"

	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/money"
)

// Account is one simulated trader: a real signing key (so its envelopes
// pass Dispatch's signature check) and its own nonce/order-id counters.
type Account struct {
	User   money.UserID
	signer *crypto.Signer
	nonce  money.Nonce

	liveSignedIDs []money.OrderSignedID
	nextSignedID  money.OrderSignedID
}

// NewAccount mints a fresh keypair bound to a UserID. Callers must submit
// RegisterKeyEnvelope and fund the account with a Deposit before the
// generator's orders can be accepted.
func NewAccount(user money.UserID) (*Account, error) {
	signer, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("loadgen: generate account key: %w", err)
	}
	return &Account{User: user, signer: signer}, nil
}

// PubKey returns the account's 65-byte uncompressed public key, the form
// every envelope carries.
func (a *Account) PubKey() []byte {
	return crypto.PublicKeyBytes(a.signer.PublicKeyECDSA())
}

// RegisterKeyEnvelope builds the signed AddSessionKey that makes this
// account's key its root key. It must be submitted (and accepted) before
// any order the generator produces for this account can pass signature
// verification.
func (a *Account) RegisterKeyEnvelope() (action.Envelope, error) {
	return a.sign(action.AddSessionKey{User: a.User, PubKey: a.PubKey()})
}

func (a *Account) sign(act action.Action) (action.Envelope, error) {
	digest := action.Digest(act)
	sig, err := a.signer.Sign(digest[:])
	if err != nil {
		return action.Envelope{}, err
	}
	return action.Envelope{Action: act, PubKey: a.PubKey(), Signature: sig}, nil
}

// Market describes one instrument's tick/lot grid and a center price the
// generator scatters random orders around.
type Market struct {
	Instrument  money.InstrumentID
	Tick        uint64
	Lot         uint64
	CenterPrice uint64 // must be a multiple of Tick
	Spread      uint64 // max absolute deviation from CenterPrice, in ticks
}

// Config controls the mixture of generated action kinds.
type Config struct {
	Markets      []Market
	CancelChance float64 // probability GenerateOne emits a cancel instead of a PlaceOrder
	MarketChance float64 // probability a generated order is a Market order
}

// DefaultConfig is a modest mix: mostly limit orders, a small fraction of
// market orders and cancels.
func DefaultConfig(markets []Market) Config {
	return Config{Markets: markets, CancelChance: 0.1, MarketChance: 0.2}
}

// Generator produces signed envelopes against a fixed account pool.
type Generator struct {
	accounts []*Account
	cfg      Config
	rng      *rand.Rand
}

// New builds a Generator over accounts, which callers must have already
// funded and (if using session keys) registered.
func New(accounts []*Account, cfg Config, seed int64) *Generator {
	return &Generator{accounts: accounts, cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// GenerateOne returns one signed envelope: a PlaceOrder most of the time,
// a CancelOrder against one of that account's own live orders otherwise.
func (g *Generator) GenerateOne() (action.Envelope, error) {
	acct := g.accounts[g.rng.Intn(len(g.accounts))]
	if g.rng.Float64() < g.cfg.CancelChance && len(acct.liveSignedIDs) > 0 {
		return g.generateCancel(acct)
	}
	return g.generateOrder(acct)
}

func (g *Generator) generateOrder(acct *Account) (action.Envelope, error) {
	mkt := g.cfg.Markets[g.rng.Intn(len(g.cfg.Markets))]

	side := money.Buy
	if g.rng.Intn(2) == 1 {
		side = money.Sell
	}

	typ := money.Limit
	if g.rng.Float64() < g.cfg.MarketChance {
		typ = money.Market
	}

	ticks := int64(mkt.Spread)
	if ticks == 0 {
		ticks = 1
	}
	deviation := g.rng.Int63n(2*ticks+1) - ticks
	price := int64(mkt.CenterPrice) + deviation*int64(mkt.Tick)
	if price < int64(mkt.Tick) {
		price = int64(mkt.Tick)
	}
	price -= price % int64(mkt.Tick)

	lots := int64(g.rng.Intn(50) + 1)
	qty := uint64(lots) * mkt.Lot

	signedID := acct.nextSignedID
	acct.nextSignedID++

	act := action.PlaceOrder{
		User: acct.User, Instrument: mkt.Instrument, SignedID: signedID,
		Side: side, Type: typ, Price: uint64(price), Qty: qty, Nonce: acct.nonce,
	}
	acct.nonce++
	acct.liveSignedIDs = append(acct.liveSignedIDs, signedID)

	return acct.sign(act)
}

func (g *Generator) generateCancel(acct *Account) (action.Envelope, error) {
	mkt := g.cfg.Markets[g.rng.Intn(len(g.cfg.Markets))]
	i := g.rng.Intn(len(acct.liveSignedIDs))
	signedID := acct.liveSignedIDs[i]
	acct.liveSignedIDs = append(acct.liveSignedIDs[:i], acct.liveSignedIDs[i+1:]...)

	act := action.CancelOrder{User: acct.User, Instrument: mkt.Instrument, SignedID: signedID, Nonce: acct.nonce}
	acct.nonce++
	return acct.sign(act)
}

// GenerateBatch returns count envelopes, skipping (not retrying) any that
// fail to sign — a key-generation or signing failure here means a broken
// local crypto stack, not a condition worth looping on.
func (g *Generator) GenerateBatch(count int) []action.Envelope {
	out := make([]action.Envelope, 0, count)
	for i := 0; i < count; i++ {
		env, err := g.GenerateOne()
		if err != nil {
			continue
		}
		out = append(out, env)
	}
	return out
}
