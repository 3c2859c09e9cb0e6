package question

import "math/rand"

// BankSampler serves questions from a fixed bank. Unseen questions are drawn
// uniformly; once a player has seen the whole bank, repeats are allowed with
// the least recently served question preferred.
type BankSampler struct {
	questions []Question
	rng       *rand.Rand
}

// NewBankSampler validates the bank and seeds the sampler.
func NewBankSampler(questions []Question, seed int64) (*BankSampler, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}
	for _, q := range questions {
		if len(q.Options) != OptionCount || q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount || q.ID == "" {
			return nil, ErrMalformedEntry
		}
	}
	return &BankSampler{
		questions: questions,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Next picks a question for the player with the given history.
func (s *BankSampler) Next(h *History) (Question, error) {
	unseen := make([]int, 0, len(s.questions))
	for i, q := range s.questions {
		if !h.Seen(q.ID) {
			unseen = append(unseen, i)
		}
	}
	if len(unseen) > 0 {
		return s.questions[unseen[s.rng.Intn(len(unseen))]], nil
	}

	// Bank exhausted for this player: least recently served wins.
	best := 0
	bestSeq := h.ServedSeq(s.questions[0].ID)
	for i := 1; i < len(s.questions); i++ {
		if seq := h.ServedSeq(s.questions[i].ID); seq < bestSeq {
			best, bestSeq = i, seq
		}
	}
	return s.questions[best], nil
}
