// sign-order is a small demo CLI: it mints a fresh keypair, builds a
// PlaceOrder action, signs it, wire-encodes the resulting envelope, and
// verifies the signature the same way action.Dispatch would before
// accepting it. It exists to show the shape of a client integration, not
// as a production signer.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/shadowbook/engine/pkg/action"
	"github.com/shadowbook/engine/pkg/crypto"
	"github.com/shadowbook/engine/pkg/money"
)

func main() {
	var (
		user       = flag.Uint64("user", 1000, "user id")
		instrument = flag.Uint("instrument", 1, "instrument id")
		side       = flag.String("side", "buy", "buy|sell")
		orderType  = flag.String("type", "limit", "limit|market")
		price      = flag.Uint64("price", 50000, "limit price in instrument ticks")
		qty        = flag.Uint64("qty", 100, "order quantity in instrument lots")
		signedID   = flag.Uint64("signed-id", 1, "caller-chosen unique order id")
		nonce      = flag.Uint64("nonce", 0, "account nonce, must equal the account's current nonce")
		privHex    = flag.String("privkey", "", "hex private key to sign with (generates one if empty)")
	)
	flag.Parse()

	signer, err := loadOrGenerateKey(*privHex)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if *privHex == "" {
		fmt.Println("Generated new keypair (no --privkey given):")
		fmt.Printf("  Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
		fmt.Printf("  Address: %s\n\n", signer.Address().Hex())
	}

	var sideVal money.Side
	switch *side {
	case "buy":
		sideVal = money.Buy
	case "sell":
		sideVal = money.Sell
	default:
		fmt.Printf("Error: unknown --side %q (want buy|sell)\n", *side)
		os.Exit(1)
	}

	var typeVal money.OrderType
	switch *orderType {
	case "limit":
		typeVal = money.Limit
	case "market":
		typeVal = money.Market
	default:
		fmt.Printf("Error: unknown --type %q (want limit|market)\n", *orderType)
		os.Exit(1)
	}

	order := action.PlaceOrder{
		User:       money.UserID(*user),
		Instrument: money.InstrumentID(*instrument),
		SignedID:   money.OrderSignedID(*signedID),
		Side:       sideVal,
		Type:       typeVal,
		Price:      *price,
		Qty:        *qty,
		Nonce:      money.Nonce(*nonce),
	}

	fmt.Println("Order Details:")
	fmt.Printf("  User: %d\n", order.User)
	fmt.Printf("  Instrument: %d\n", order.Instrument)
	fmt.Printf("  Side: %s\n", *side)
	fmt.Printf("  Type: %s\n", *orderType)
	fmt.Printf("  Price: %d\n", order.Price)
	fmt.Printf("  Qty: %d\n", order.Qty)
	fmt.Printf("  SignedID: %d\n", order.SignedID)
	fmt.Printf("  Nonce: %d\n\n", order.Nonce)

	digest := action.Digest(order)
	sig, err := signer.Sign(digest[:])
	if err != nil {
		fmt.Printf("Error signing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Digest: 0x%s\n", hex.EncodeToString(digest[:]))
	fmt.Printf("Signature: 0x%s\n\n", hex.EncodeToString(sig))

	env := action.Envelope{
		Action:    order,
		PubKey:    crypto.PublicKeyBytes(signer.PublicKeyECDSA()),
		Signature: sig,
	}

	encoded, err := action.EncodeEnvelope(env)
	if err != nil {
		fmt.Printf("Error encoding envelope: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Wire-encoded envelope (hex):")
	fmt.Printf("  0x%s\n\n", hex.EncodeToString(encoded))

	fmt.Println("Verifying signature...")
	decoded, err := action.DecodeEnvelope(encoded)
	if err != nil {
		fmt.Printf("Error decoding envelope: %v\n", err)
		os.Exit(1)
	}
	redigest := action.Digest(decoded.Action)
	if !crypto.VerifyWithPublicKey(decoded.PubKey, redigest, decoded.Signature) {
		fmt.Println("x Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("+ Signature VALID")
	fmt.Printf("  Signer address (from envelope key): %s\n\n", crypto.AddressFromUncompressedPub(decoded.PubKey))

	fmt.Println("To submit this order:")
	fmt.Println("  POST /api/v1/actions")
	fmt.Println("  Content-Type: application/json")
	fmt.Printf("  Body: {\"envelope\":\"%s\"}\n", hex.EncodeToString(encoded))
}

func loadOrGenerateKey(privHex string) (*crypto.Signer, error) {
	if privHex == "" {
		return crypto.GenerateKey()
	}
	return crypto.FromPrivateKeyHex(privHex)
}
