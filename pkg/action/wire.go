package action

import (
	"encoding/binary"
	"fmt"

	"github.com/shadowbook/engine/pkg/money"
)

// wireTag maps each Kind to its stable numeric wire tag, carried on the
// wire instead of the Go type so the encoding survives across releases
// that rename or reorder the concrete structs.
func wireTag(k Kind) uint8 {
	switch k {
	case KindDeposit:
		return 1
	case KindPlaceOrder:
		return 2
	case KindCancelOrder:
		return 3
	case KindWithdraw:
		return 4
	case KindAddSessionKey:
		return 5
	case KindCreatePair:
		return 6
	case KindSetInstrumentStatus:
		return 7
	default:
		return 0
	}
}

func kindFromTag(tag uint8) (Kind, bool) {
	switch tag {
	case 1:
		return KindDeposit, true
	case 2:
		return KindPlaceOrder, true
	case 3:
		return KindCancelOrder, true
	case 4:
		return KindWithdraw, true
	case 5:
		return KindAddSessionKey, true
	case 6:
		return KindCreatePair, true
	case 7:
		return KindSetInstrumentStatus, true
	default:
		return 0, false
	}
}

type wireWriter struct{ buf []byte }

func (w *wireWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *wireWriter) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *wireWriter) u64(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); w.buf = append(w.buf, b[:]...) }

// bytesField writes a length-prefixed byte string: a 4-byte big-endian
// length followed by the bytes themselves. Used for both opaque byte
// fields (pubkey, signature, destination) and UTF-8 strings.
func (w *wireWriter) bytesField(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

type wireReader struct {
	buf []byte
	off int
}

func (r *wireReader) u8() (uint8, error) {
	if r.off+1 > len(r.buf) {
		return 0, fmt.Errorf("action: wire: short read (u8)")
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *wireReader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("action: wire: short read (u32)")
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *wireReader) u64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("action: wire: short read (u64)")
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *wireReader) bytesField() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if r.off+int(n) > len(r.buf) {
		return nil, fmt.Errorf("action: wire: short read (bytes field, want %d)", n)
	}
	out := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return append([]byte(nil), out...), nil
}

// EncodeEnvelope renders env in its wire-canonical form: a
// one-byte tag, fixed-width big-endian numeric fields, length-prefixed
// byte/string fields, then the 65-byte public key and signature (64 bytes
// plus a one-byte recovery indicator, zero-padded if the caller's
// signature carries none). This is what crosses HTTP, what the fast path
// writes to its WAL, and what the zkVM replay entrypoint decodes.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	w := &wireWriter{}
	w.u8(wireTag(env.Action.Kind()))

	switch a := env.Action.(type) {
	case Deposit:
		w.u64(uint64(a.User))
		w.u32(uint32(a.Asset))
		amt := a.Amount.Bytes32()
		w.bytesField(amt[:])
	case PlaceOrder:
		w.u64(uint64(a.User))
		w.u32(uint32(a.Instrument))
		w.u64(uint64(a.SignedID))
		w.u8(uint8(a.Side))
		w.u8(uint8(a.Type))
		w.u64(a.Price)
		w.u64(a.Qty)
		w.u64(uint64(a.Nonce))
	case CancelOrder:
		w.u64(uint64(a.User))
		w.u32(uint32(a.Instrument))
		w.u64(uint64(a.SignedID))
		w.u64(uint64(a.Nonce))
	case Withdraw:
		w.u64(uint64(a.User))
		w.u32(uint32(a.Asset))
		amt := a.Amount.Bytes32()
		w.bytesField(amt[:])
		w.u8(uint8(a.Destination.Kind))
		w.bytesField([]byte(a.Destination.Network))
		w.bytesField([]byte(a.Destination.Address))
		w.u64(uint64(a.Nonce))
	case AddSessionKey:
		w.u64(uint64(a.User))
		w.bytesField(a.PubKey)
		w.u64(uint64(a.Expiration))
	case CreatePair:
		w.u32(uint32(a.Instrument))
		w.u32(uint32(a.Base))
		w.u32(uint32(a.Quote))
		w.u64(a.Tick)
		w.u64(a.Lot)
	case SetInstrumentStatus:
		w.u32(uint32(a.Instrument))
		w.u8(a.Status)
	default:
		return nil, fmt.Errorf("action: encode: unrecognized action type %T", env.Action)
	}

	w.bytesField(env.PubKey)
	sig := env.Signature
	if len(sig) == 64 {
		sig = append(append([]byte(nil), sig...), 0)
	}
	w.bytesField(sig)
	return w.buf, nil
}

// DecodeEnvelope parses the wire-canonical form produced by EncodeEnvelope.
func DecodeEnvelope(b []byte) (Envelope, error) {
	r := &wireReader{buf: b}
	tag, err := r.u8()
	if err != nil {
		return Envelope{}, err
	}
	kind, ok := kindFromTag(tag)
	if !ok {
		return Envelope{}, fmt.Errorf("action: decode: unknown action tag %d", tag)
	}

	var act Action
	switch kind {
	case KindDeposit:
		user, err := r.u64()
		if err != nil {
			return Envelope{}, err
		}
		asset, err := r.u32()
		if err != nil {
			return Envelope{}, err
		}
		amtBytes, err := r.bytesField()
		if err != nil {
			return Envelope{}, err
		}
		var amt32 [32]byte
		copy(amt32[:], amtBytes)
		act = Deposit{User: money.UserID(user), Asset: money.AssetID(asset), Amount: money.AmountFromBytes32(amt32)}
	case KindPlaceOrder:
		user, _ := r.u64()
		inst, _ := r.u32()
		signedID, _ := r.u64()
		side, _ := r.u8()
		typ, _ := r.u8()
		price, _ := r.u64()
		qty, _ := r.u64()
		nonce, err := r.u64()
		if err != nil {
			return Envelope{}, err
		}
		act = PlaceOrder{
			User: money.UserID(user), Instrument: money.InstrumentID(inst),
			SignedID: money.OrderSignedID(signedID), Side: money.Side(int8(side)),
			Type: money.OrderType(typ), Price: price, Qty: qty, Nonce: money.Nonce(nonce),
		}
	case KindCancelOrder:
		user, _ := r.u64()
		inst, _ := r.u32()
		signedID, _ := r.u64()
		nonce, err := r.u64()
		if err != nil {
			return Envelope{}, err
		}
		act = CancelOrder{User: money.UserID(user), Instrument: money.InstrumentID(inst), SignedID: money.OrderSignedID(signedID), Nonce: money.Nonce(nonce)}
	case KindWithdraw:
		user, _ := r.u64()
		asset, _ := r.u32()
		amtBytes, err := r.bytesField()
		if err != nil {
			return Envelope{}, err
		}
		destKind, err := r.u8()
		if err != nil {
			return Envelope{}, err
		}
		network, err := r.bytesField()
		if err != nil {
			return Envelope{}, err
		}
		address, err := r.bytesField()
		if err != nil {
			return Envelope{}, err
		}
		nonce, err := r.u64()
		if err != nil {
			return Envelope{}, err
		}
		var amt32 [32]byte
		copy(amt32[:], amtBytes)
		act = Withdraw{
			User: money.UserID(user), Asset: money.AssetID(asset), Amount: money.AmountFromBytes32(amt32),
			Destination: WithdrawDestination{Kind: DestinationKind(destKind), Network: string(network), Address: string(address)},
			Nonce:       money.Nonce(nonce),
		}
	case KindAddSessionKey:
		user, _ := r.u64()
		pub, err := r.bytesField()
		if err != nil {
			return Envelope{}, err
		}
		exp, err := r.u64()
		if err != nil {
			return Envelope{}, err
		}
		act = AddSessionKey{User: money.UserID(user), PubKey: pub, Expiration: money.Seq(exp)}
	case KindCreatePair:
		inst, _ := r.u32()
		base, _ := r.u32()
		quote, _ := r.u32()
		tick, _ := r.u64()
		lot, err := r.u64()
		if err != nil {
			return Envelope{}, err
		}
		act = CreatePair{Instrument: money.InstrumentID(inst), Base: money.AssetID(base), Quote: money.AssetID(quote), Tick: tick, Lot: lot}
	case KindSetInstrumentStatus:
		inst, _ := r.u32()
		status, err := r.u8()
		if err != nil {
			return Envelope{}, err
		}
		act = SetInstrumentStatus{Instrument: money.InstrumentID(inst), Status: status}
	}

	pub, err := r.bytesField()
	if err != nil {
		return Envelope{}, err
	}
	sig, err := r.bytesField()
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Action: act, PubKey: pub, Signature: sig}, nil
}
