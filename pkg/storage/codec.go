package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
)

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

// checkpointPrefix namespaces every checkpoint key so a single Pebble
// database could in principle hold other key families alongside it.
var checkpointPrefix = []byte("ckpt:")

// heightKey renders a checkpoint height as a big-endian 8-byte key so
// Pebble's lexicographic byte ordering agrees with numeric ordering,
// letting LatestCheckpoint find the newest checkpoint with one reverse seek.
func heightKey(h uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], h)
	return append(append([]byte{}, checkpointPrefix...), k[:]...)
}
