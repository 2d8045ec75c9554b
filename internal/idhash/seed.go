package idhash

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Seed derives a 32-byte seed for the named stream of a run.
// Formula: SHA256(run_seed|label)
func Seed(runSeed uint64, label string) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%d|%s", runSeed, label)))
}

// Stream is a seeded random source that also serves as an io.Reader for
// id entropy. Output is fully determined by (run seed, label).
type Stream struct {
	*rand.Rand
	src *rand.ChaCha8
}

// NewStream creates the stream for label under runSeed.
func NewStream(runSeed uint64, label string) *Stream {
	src := rand.NewChaCha8(Seed(runSeed, label))
	return &Stream{Rand: rand.New(src), src: src}
}

// Read fills p with random bytes.
func (s *Stream) Read(p []byte) (int, error) {
	return s.src.Read(p)
}

var _ io.Reader = (*Stream)(nil)

// NewScenarioID returns a UUID drawn from r.
func NewScenarioID(r io.Reader) string {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		// Stream reads never fail.
		panic(err)
	}
	return id.String()
}

// NewSchemeID returns a pump_scheme_id of the form SCHEME-<8 hex chars>.
func NewSchemeID(r io.Reader) string {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		panic(err)
	}
	return "SCHEME-" + id.String()[:8]
}
