package question

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Arithmetic operations the math generator can be configured with.
const (
	OpAdd = "add"
	OpSub = "sub"
	OpMul = "mul"
	OpDiv = "div"
)

var opSymbols = map[string]string{
	OpAdd: "+",
	OpSub: "−",
	OpMul: "×",
	OpDiv: "÷",
}

// MathConfig selects the enabled operations and the operand range.
type MathConfig struct {
	Operations []string `json:"operations"`
	MinOperand int      `json:"min_operand"`
	MaxOperand int      `json:"max_operand"`
}

// MathGenerator deterministically produces arithmetic problems from a seed.
// The problem id is a stable hash of (a, op, b), so an identical problem keeps
// its identity across sessions.
type MathGenerator struct {
	cfg MathConfig
	rng *rand.Rand
}

// NewMathGenerator validates the config and seeds the generator.
func NewMathGenerator(cfg MathConfig, seed int64) (*MathGenerator, error) {
	if len(cfg.Operations) == 0 {
		return nil, ErrNoOperations
	}
	for _, op := range cfg.Operations {
		if _, ok := opSymbols[op]; !ok {
			return nil, fmt.Errorf("unknown operation %q", op)
		}
	}
	if cfg.MinOperand > cfg.MaxOperand || cfg.MaxOperand < 1 {
		return nil, ErrInvalidRange
	}
	if cfg.MinOperand < 0 {
		cfg.MinOperand = 0
	}
	return &MathGenerator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

const maxGenerateAttempts = 256

// Next produces a problem the player has not seen yet, drawing up to
// maxGenerateAttempts times. If every draw hits an already served problem (as
// happens once the range is exhausted), the last draw is returned as a repeat.
func (g *MathGenerator) Next(h *History) (Question, error) {
	var q Question
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		q = g.generate()
		if !h.Seen(q.ID) {
			return q, nil
		}
	}
	return q, nil
}

func (g *MathGenerator) generate() Question {
	op := g.cfg.Operations[g.rng.Intn(len(g.cfg.Operations))]
	a := g.operand()
	b := g.operand()

	switch op {
	case OpSub:
		if a < b {
			a, b = b, a
		}
	case OpDiv:
		// Integer quotient only: draw divisor and quotient, derive dividend.
		if b == 0 {
			b = 1
		}
		q := g.operand()
		if q == 0 {
			q = 1
		}
		a = b * q
	}

	answer := apply(op, a, b)
	options, correctIdx := g.buildOptions(op, a, b, answer)

	return Question{
		ID:           mathQuestionID(a, op, b),
		Text:         fmt.Sprintf("%d %s %d = ?", a, opSymbols[op], b),
		Options:      options,
		CorrectIndex: correctIdx,
		Category:     "math",
	}
}

func (g *MathGenerator) operand() int {
	span := g.cfg.MaxOperand - g.cfg.MinOperand + 1
	return g.cfg.MinOperand + g.rng.Intn(span)
}

// buildOptions assembles the correct answer plus three distractors drawn from
// small perturbations (±1, ±2, operand swap), deduplicated and shuffled.
func (g *MathGenerator) buildOptions(op string, a, b, answer int) ([]string, int) {
	candidates := []int{answer + 1, answer - 1, answer + 2, answer - 2}
	if swapped, ok := applySwapped(op, a, b); ok && swapped != answer {
		candidates = append([]int{swapped}, candidates...)
	}

	distractors := make([]int, 0, OptionCount-1)
	seen := map[int]bool{answer: true}
	for _, c := range candidates {
		if len(distractors) == OptionCount-1 {
			break
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		distractors = append(distractors, c)
	}
	for delta := 3; len(distractors) < OptionCount-1; delta++ {
		for _, c := range []int{answer + delta, answer - delta} {
			if len(distractors) == OptionCount-1 {
				break
			}
			if seen[c] {
				continue
			}
			seen[c] = true
			distractors = append(distractors, c)
		}
	}

	values := append([]int{answer}, distractors...)
	g.rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	options := make([]string, len(values))
	correctIdx := 0
	for i, v := range values {
		options[i] = fmt.Sprint(v)
		if v == answer {
			correctIdx = i
		}
	}
	return options, correctIdx
}

func apply(op string, a, b int) int {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	}
	return 0
}

// applySwapped computes the operand-swap distractor where it yields a distinct
// integer result.
func applySwapped(op string, a, b int) (int, bool) {
	switch op {
	case OpSub:
		return b - a, true
	case OpDiv:
		if a == 0 {
			return 0, false
		}
		if b%a != 0 {
			return 0, false
		}
		return b / a, true
	default:
		// Commutative operations swap to the same value.
		return 0, false
	}
}

func mathQuestionID(a int, op string, b int) string {
	hash := fnv.New64a()
	fmt.Fprintf(hash, "%d|%s|%d", a, op, b)
	return fmt.Sprintf("m%016x", hash.Sum64())
}
