package cards

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

const (
	seedBytes   = 16
	shuffleInfo = "cardroom/shuffle/v1/"

	// hkdf can expand at most 255 SHA-256 blocks per reader
	drawsPerBlock = 255 * sha256.Size / 8
)

// NewSeed returns 16 bytes from the system CSPRNG, hex encoded
func NewSeed() (string, error) {
	b := make([]byte, seedBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read seed entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CommitSeed returns the hex HMAC-SHA256 of seed under secret. Publishing the
// commitment before the reveal lets players check that the seed was not swapped.
func CommitSeed(seed, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(seed))
	return hex.EncodeToString(mac.Sum(nil))
}

// Shuffle returns a permutation of deck fully determined by seed. The input is
// not modified. The seed text itself is the key material, so the same seed
// string always reproduces the same order for the same input deck.
func Shuffle(deck []string, seed string) []string {
	out := make([]string, len(deck))
	copy(out, deck)

	s := newSeedStream(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(s.next() % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// seedStream yields big-endian uint64 draws from HKDF-SHA256 output keyed by
// the seed, re-expanding with a block counter once a reader is exhausted.
type seedStream struct {
	seed  []byte
	block int
	drawn int
	r     io.Reader
	buf   [8]byte
}

func newSeedStream(seed string) *seedStream {
	s := &seedStream{seed: []byte(seed)}
	s.rekey()
	return s
}

func (s *seedStream) rekey() {
	info := []byte(shuffleInfo + strconv.Itoa(s.block))
	s.r = hkdf.New(sha256.New, s.seed, nil, info)
	s.drawn = 0
}

func (s *seedStream) next() uint64 {
	if s.drawn == drawsPerBlock {
		s.block++
		s.rekey()
	}
	// Reads within the per-block limit cannot fail
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		panic(fmt.Sprintf("seed stream exhausted: %v", err))
	}
	s.drawn++
	return binary.BigEndian.Uint64(s.buf[:])
}
