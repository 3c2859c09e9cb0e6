package scoring

// Config holds scoring constants (defaults match product rules).
type Config struct {
	StreakBlock        int // correct answers per multiplier step
	MultiplierStepPct  int // percent added per full streak block
	MaxMultiplierPct   int // multiplier ceiling, in percent
	MaxComebackCredits int
	ComebackStartPct   int // percent of the death score carried into respawn
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		StreakBlock:        3,
		MultiplierStepPct:  25,
		MaxMultiplierPct:   200,
		MaxComebackCredits: 5,
		ComebackStartPct:   50,
	}
}

// State is one player's scoring state. All fields are saturating
// nonnegatives; the engine never mutates its input.
type State struct {
	TotalScore         int
	CurrentStreak      int
	BestStreak         int
	ComebackCredits    int
	LastDeathScore     int
	ComebackStartScore int
	Pending            bool

	QuestionsAnswered int
	QuestionsCorrect  int
	TotalAnswerMs     int64
}

// Engine computes scoring transitions as pure functions.
type Engine struct {
	cfg Config
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(cfg Config) *Engine {
	if cfg.StreakBlock == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// multiplierPct keeps the arithmetic integral: 100 means 1.0x.
func (e *Engine) multiplierPct(streak int) int {
	pct := 100 + e.cfg.MultiplierStepPct*(streak/e.cfg.StreakBlock)
	if pct > e.cfg.MaxMultiplierPct {
		pct = e.cfg.MaxMultiplierPct
	}
	return pct
}

// Multiplier returns the streak multiplier for a streak length.
func (e *Engine) Multiplier(streak int) float64 {
	return float64(e.multiplierPct(streak)) / 100
}

// DeathResult describes the outcome of applying a death.
type DeathResult struct {
	EffectiveScore     int
	ComebackStartScore int
	CreditConsumed     bool
}

// ApplyDeath records a run ending. The effective score is banked into
// LastDeathScore but not credited to the total until a correct answer unlocks
// it. A comeback credit, when available, is consumed for a head-start score.
func (e *Engine) ApplyDeath(s State, runScore int) (State, DeathResult) {
	if runScore < 0 {
		runScore = 0
	}
	effective := runScore * e.multiplierPct(s.CurrentStreak) / 100

	var res DeathResult
	res.EffectiveScore = effective
	s.LastDeathScore = effective
	if s.ComebackCredits > 0 {
		s.ComebackCredits--
		res.CreditConsumed = true
		res.ComebackStartScore = effective * e.cfg.ComebackStartPct / 100
	}
	s.ComebackStartScore = res.ComebackStartScore
	s.Pending = true
	return s, res
}

// CorrectResult describes the outcome of a correct answer.
type CorrectResult struct {
	BonusEarned        int
	TotalScore         int
	CurrentStreak      int
	Multiplier         float64
	ComebackCredits    int
	ComebackStartScore int
}

// ApplyCorrect credits the pending run, extends the streak, and earns a
// comeback credit.
func (e *Engine) ApplyCorrect(s State, timeMs int) (State, CorrectResult) {
	s.CurrentStreak++
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	if s.ComebackCredits < e.cfg.MaxComebackCredits {
		s.ComebackCredits++
	}

	bonus := s.LastDeathScore
	s.TotalScore += bonus
	s.LastDeathScore = 0
	s.Pending = false

	s.QuestionsAnswered++
	s.QuestionsCorrect++
	if timeMs > 0 {
		s.TotalAnswerMs += int64(timeMs)
	}

	return s, CorrectResult{
		BonusEarned:        bonus,
		TotalScore:         s.TotalScore,
		CurrentStreak:      s.CurrentStreak,
		Multiplier:         e.Multiplier(s.CurrentStreak),
		ComebackCredits:    s.ComebackCredits,
		ComebackStartScore: s.ComebackStartScore,
	}
}

// ApplyWrong forfeits the pending run and resets the streak. The player earns
// another question on the next death.
func (e *Engine) ApplyWrong(s State, timeMs int) State {
	s.CurrentStreak = 0
	s.LastDeathScore = 0
	s.ComebackStartScore = 0
	s.Pending = false

	s.QuestionsAnswered++
	if timeMs > 0 {
		s.TotalAnswerMs += int64(timeMs)
	}
	return s
}

// AvgAnswerMs returns the mean answer latency, or 0 before any answers.
func AvgAnswerMs(s State) int {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return int(s.TotalAnswerMs / int64(s.QuestionsAnswered))
}
