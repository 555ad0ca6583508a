package workload

import (
	"math/big"
	"math/bits"
)

const (
	// FirstPrintable is the code of the first character in the generated alphabet (space)
	FirstPrintable = 32
	// PrintableRange is the number of printable ASCII characters (32..126)
	PrintableRange = 95

	// FingerprintBase is the multiplier of the rolling hash
	FingerprintBase = 31
	// FingerprintModulus bounds every fingerprint to [0, 10^18)
	FingerprintModulus uint64 = 1_000_000_000_000_000_000
)

// Produce builds the synthetic response value for a request index and its fingerprint.
// The value has exactly size characters; character i is chr(32 + (index+i) mod 95).
func Produce(index, size int) (string, uint64) {
	value := Value(index, size)
	return value, Fingerprint(value)
}

// Value returns the printable ASCII payload for index, built in a preallocated buffer
func Value(index, size int) string {
	if size <= 0 {
		return ""
	}

	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(FirstPrintable + (index+i)%PrintableRange)
	}
	return string(buf)
}

// Fingerprint folds every byte of s into a base-31 polynomial modulo 10^18.
// fp*31 + c can exceed 64 bits, so the product is carried in 128 bits before reduction.
func Fingerprint(s string) uint64 {
	var fp uint64
	for i := 0; i < len(s); i++ {
		hi, lo := bits.Mul64(fp, FingerprintBase)
		var carry uint64
		lo, carry = bits.Add64(lo, uint64(s[i]), 0)
		hi += carry
		_, fp = bits.Div64(hi, lo, FingerprintModulus)
	}
	return fp
}

// FingerprintBig is the arbitrary-precision form of Fingerprint
func FingerprintBig(s string) *big.Int {
	base := big.NewInt(FingerprintBase)
	mod := new(big.Int).SetUint64(FingerprintModulus)

	fp := new(big.Int)
	for i := 0; i < len(s); i++ {
		fp.Mul(fp, base)
		fp.Add(fp, big.NewInt(int64(s[i])))
		fp.Mod(fp, mod)
	}
	return fp
}
