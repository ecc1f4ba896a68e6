package event

import "github.com/shadowbook/engine/pkg/money"

// DecodeTrade parses e.Payload back into the fields Trade wrote, for
// off-path readers (trade history, WebSocket broadcast) that only have
// the logged bytes and not the original struct. Returns ok=false if e is
// not a KindTrade event.
func DecodeTrade(e Event) (Trade, bool) {
	if e.Kind != KindTrade {
		return Trade{}, false
	}
	b := e.Payload
	if len(b) < 4+8+8+1+8+8+8+8+8 {
		return Trade{}, false
	}
	var off int
	readU32 := func() uint32 { v := beUint32(b[off:]); off += 4; return v }
	readU64 := func() uint64 { v := beUint64(b[off:]); off += 8; return v }
	readU8 := func() uint8 { v := b[off]; off++; return v }

	inst := readU32()
	price := readU64()
	qty := readU64()
	side := readU8()
	takerOrder := readU64()
	makerOrder := readU64()
	takerUser := readU64()
	makerUser := readU64()
	seq := readU64()

	return Trade{
		Instrument: money.InstrumentID(inst),
		Price:      price,
		Qty:        qty,
		TakerSide:  money.Side(int8(side)),
		TakerOrder: money.OrderID(takerOrder),
		MakerOrder: money.OrderID(makerOrder),
		TakerUser:  money.UserID(takerUser),
		MakerUser:  money.UserID(makerUser),
		Seq:        money.Seq(seq),
	}, true
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
