package fingerprint

import (
	"math/big"
)

// HashToInt packs a fingerprint into an integer, most significant bit first.
// Unknown pixels are packed as 0 through Pixel.Bit.
func HashToInt(fp Fingerprint) *big.Int {
	value := new(big.Int)
	for _, p := range fp {
		value.Lsh(value, 1)
		if p.Bit() == 1 {
			value.SetBit(value, 0, 1)
		}
	}
	return value
}

// IntToHash unpacks bitCount bits of value into a fingerprint, padding with Off
// on the left. Bits above bitCount are ignored.
func IntToHash(value *big.Int, bitCount int) Fingerprint {
	if bitCount <= 0 {
		return Fingerprint{}
	}
	fp := make(Fingerprint, bitCount)
	if value == nil {
		return fp
	}
	for i := 0; i < bitCount; i++ {
		fp[bitCount-1-i] = FromBit(value.Bit(i))
	}
	return fp
}
