// Package pureblind constructs directly-executable cycles from on-chain
// pool accounts without round-tripping an aggregator, per spec.md §4.12.
package pureblind

import (
	"github.com/gagliardetto/solana-go"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// DecodedPool is one DEX-specific pool account after adapter decoding; the
// DEX-specific binary layout stays behind RawMeta, an opaque payload per
// spec.md §1.
type DecodedPool struct {
	Address           solana.PublicKey
	BaseMint          domain.Mint
	QuoteMint         domain.Mint
	BaseTokenProgram  solana.PublicKey
	QuoteTokenProgram solana.PublicKey
	RawMeta           []byte
	DEXKind           string
}

// PoolAdapter decodes one DEX's raw account data into a DecodedPool and
// encodes one swap step's opaque instruction payload.
type PoolAdapter interface {
	DEXKind() string
	Decode(address solana.PublicKey, accountData []byte) (DecodedPool, error)
	EncodeSwap(pool DecodedPool, baseToQuote bool, amountIn uint64) (solana.Instruction, error)
}

// Step is one leg of a pure-blind cycle.
type Step struct {
	Pool        DecodedPool
	BaseToQuote bool
	InputMint   domain.Mint
	OutputMint  domain.Mint
}

// Cycle is a closed loop of steps ready for instruction encoding.
type Cycle struct {
	Steps []Step
}

// BuildCycle implements spec.md §4.12 steps 3-4: arranges pools into a
// closed loop by alternating base_to_quote / quote_to_base, valid iff the
// last output equals the first input, then rotates so the origin is one of
// the preferred base mints.
func BuildCycle(pools []DecodedPool, preferredBases []domain.Mint) (Cycle, bool) {
	if len(pools) == 0 {
		return Cycle{}, false
	}
	steps := arrangeLoop(pools)
	if len(steps) == 0 {
		return Cycle{}, false
	}
	rotated := rotateToBase(steps, preferredBases)
	return Cycle{Steps: rotated}, true
}

// arrangeLoop greedily chains pools so each step's output mint matches the
// next step's input mint, alternating swap direction per pool's own
// base/quote orientation. Returns nil if no closed arrangement exists.
func arrangeLoop(pools []DecodedPool) []Step {
	remaining := append([]DecodedPool(nil), pools...)
	first := remaining[0]
	remaining = remaining[1:]

	steps := []Step{{Pool: first, BaseToQuote: true, InputMint: first.BaseMint, OutputMint: first.QuoteMint}}
	origin := first.BaseMint
	current := first.QuoteMint

	for len(remaining) > 0 {
		idx := -1
		baseToQuote := true
		for i, p := range remaining {
			if p.BaseMint == current {
				idx = i
				baseToQuote = true
				break
			}
			if p.QuoteMint == current {
				idx = i
				baseToQuote = false
				break
			}
		}
		if idx < 0 {
			return nil
		}
		p := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		in, out := p.BaseMint, p.QuoteMint
		if !baseToQuote {
			in, out = p.QuoteMint, p.BaseMint
		}
		steps = append(steps, Step{Pool: p, BaseToQuote: baseToQuote, InputMint: in, OutputMint: out})
		current = out
	}

	if current != origin {
		return nil
	}
	return steps
}

// rotateToBase rotates steps so the first step's input mint is the
// highest-priority preferred base mint found in the loop.
func rotateToBase(steps []Step, preferredBases []domain.Mint) []Step {
	for _, base := range preferredBases {
		for i, s := range steps {
			if s.InputMint == base {
				return append(append([]Step(nil), steps[i:]...), steps[:i]...)
			}
		}
	}
	return steps
}

// ReverseSteps builds the symmetric reverse of a forward cycle: same pools
// in reverse order, each swap direction flipped.
func ReverseSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[len(steps)-1-i] = Step{
			Pool:        s.Pool,
			BaseToQuote: !s.BaseToQuote,
			InputMint:   s.OutputMint,
			OutputMint:  s.InputMint,
		}
	}
	return out
}

// EncodeForward builds the forward instruction list for a cycle via its
// pools' registered adapters.
func EncodeForward(steps []Step, adapters map[string]PoolAdapter, amountIn uint64) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(steps))
	amount := amountIn
	for _, s := range steps {
		a, ok := adapters[s.Pool.DEXKind]
		if !ok {
			return nil, errNoAdapter
		}
		ix, err := a.EncodeSwap(s.Pool, s.BaseToQuote, amount)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

type pbErr string

func (e pbErr) Error() string { return string(e) }

const errNoAdapter = pbErr("no adapter registered for pool's DEX kind")
