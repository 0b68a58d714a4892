package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Deadline is an absolute wall-clock instant; submission must not start
// after it passes.
type Deadline struct {
	At time.Time
}

// Passed reports whether the deadline has already elapsed as of now.
func (d Deadline) Passed(now time.Time) bool {
	return !now.Before(d.At)
}

// Remaining returns the time left until the deadline, or zero if already
// passed.
func (d Deadline) Remaining(now time.Time) time.Duration {
	if d.Passed(now) {
		return 0
	}
	return d.At.Sub(now)
}

// PreparedTransaction is the builder's immutable output: a signed,
// wire-ready versioned transaction plus the metadata needed for logging and
// variant fan-out.
type PreparedTransaction struct {
	SignedBytes          []byte
	Signature            solana.Signature
	Slot                 uint64
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	ComputeUnitLimit     uint32
	ComputeUnitPrice     uint64
	TipLamports          uint64
	GuardLamports        uint64
	TipStrategyLabel     TipStrategyLabel
}

// LanderTransport identifies the transport kind a Lander submits over.
type LanderTransport int

const (
	LanderRPC LanderTransport = iota
	LanderStakedRelay
	LanderPrivateBundle
)

// Lander is a handle to one submission backend.
type Lander struct {
	Name      string
	Transport LanderTransport
	TipAccount *solana.PublicKey
}

// LanderStack is a non-empty ordered collection of Lander handles raced by
// the landing stage.
type LanderStack struct {
	landers []Lander
}

// NewLanderStack constructs a stack; panics if landers is empty, since a
// LanderStack with count() == 0 violates its own construction invariant.
func NewLanderStack(landers []Lander) LanderStack {
	if len(landers) == 0 {
		panic("domain: NewLanderStack requires at least one lander")
	}
	return LanderStack{landers: append([]Lander(nil), landers...)}
}

// Count returns the number of landers in the stack.
func (s LanderStack) Count() int { return len(s.landers) }

// Landers returns the ordered lander list.
func (s LanderStack) Landers() []Lander { return s.landers }

// TxVariant is one signed-or-resigned copy of a PreparedTransaction targeted
// at a specific lander layout. The first variant emitted by the planner is
// tagged Primary — its signature is the canonical one for logging.
type TxVariant struct {
	Bytes     []byte
	Signature solana.Signature
	Lander    Lander
	Primary   bool
}
