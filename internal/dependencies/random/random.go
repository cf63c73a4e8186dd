package random

import (
	"crypto/rand"
	"io"
	"math/big"
	mathrand "math/rand/v2"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int

	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand, falling back to math/rand
// when the system source cannot be read
type CryptoRandom struct {
	reader io.Reader
}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{reader: rand.Reader}
}

// NewWithReader creates a CryptoRandom reading from r (for testing the fallback path)
func NewWithReader(r io.Reader) *CryptoRandom {
	return &CryptoRandom{reader: r}
}

// Intn returns a random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	result, err := rand.Int(r.reader, max)
	if err != nil {
		return mathrand.IntN(n)
	}
	return int(result.Int64())
}

// String draws length characters from alphabet. Bytes are read in batches
// and any byte at or above the largest multiple of len(alphabet) is thrown
// away, so every character is equally likely. A failing reader switches the
// rest of the draw to math/rand.
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	n := len(alphabet)
	if n > 256 {
		result := make([]byte, length)
		for i := range result {
			result[i] = alphabet[r.Intn(n)]
		}
		return string(result)
	}

	limit := 256 - 256%n
	result := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(result) < length {
		got, err := io.ReadFull(r.reader, buf[:length-len(result)])
		for _, b := range buf[:got] {
			if int(b) < limit {
				result = append(result, alphabet[int(b)%n])
			}
		}
		if err != nil {
			for len(result) < length {
				result = append(result, alphabet[mathrand.IntN(n)])
			}
		}
	}
	return string(result)
}
