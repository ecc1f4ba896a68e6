package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// AddressFromUncompressedPub derives the EIP-55 checksummed hex address
// for a 65-byte uncompressed secp256k1 public key (0x04 || X || Y):
// keccak256 over the key body, last 20 bytes, checksummed. Returns "" for
// malformed input. Display and bridge-side mapping only — the core
// authorizes by full public key, never by address.
func AddressFromUncompressedPub(pub []byte) string {
	if len(pub) != 65 || pub[0] != 0x04 {
		return ""
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)
	return EIP55(sum[12:])
}

// EIP55 checksums a 20-byte raw address: each hex letter is uppercased
// when the corresponding nibble of keccak256(lowercase hex) is >= 8.
func EIP55(addr20 []byte) string {
	lower := hex.EncodeToString(addr20)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	out := append([]byte("0x"), lower...)
	for i := 0; i < len(lower); i++ {
		c := out[2+i]
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := hash[i/2] >> 4
		if i%2 == 1 {
			nibble = hash[i/2] & 0x0f
		}
		if nibble >= 8 {
			out[2+i] = c - ('a' - 'A')
		}
	}
	return string(out)
}
