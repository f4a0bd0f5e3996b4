package funnel

// Persona is the current behavioral state, driven by win/loss streaks.
type Persona string

const (
	PersonaCalm     Persona = "CALM"
	PersonaFocused  Persona = "FOCUSED"
	PersonaCautious Persona = "CAUTIOUS"
)

const streakThreshold = 2

// Behavior tracks streaks and balance and derives the persona that skews
// interest scoring and position sizing. Callers synchronize access; the
// funnel mutates it only under its own lock.
type Behavior struct {
	persona    Persona
	winStreak  int
	lossStreak int
	balance    float64
}

// NewBehavior starts calm with the given balance.
func NewBehavior(balance float64) *Behavior {
	return &Behavior{persona: PersonaCalm, balance: balance}
}

// RecordOutcome updates streaks and the persona.
func (b *Behavior) RecordOutcome(win bool, profit float64) {
	if win {
		b.winStreak++
		b.lossStreak = 0
	} else {
		b.lossStreak++
		b.winStreak = 0
	}
	b.balance += profit

	switch {
	case b.winStreak >= streakThreshold:
		b.persona = PersonaFocused
	case b.lossStreak >= streakThreshold:
		b.persona = PersonaCautious
	default:
		b.persona = PersonaCalm
	}
}

// SetBalance overwrites the balance from a venue report.
func (b *Behavior) SetBalance(v float64) {
	if v > 0 {
		b.balance = v
	}
}

// Persona returns the current behavioral state.
func (b *Behavior) Persona() Persona { return b.persona }

// Balance returns the tracked account balance.
func (b *Behavior) Balance() float64 { return b.balance }

// InvestmentMultiplier scales position size by persona.
func (b *Behavior) InvestmentMultiplier() float64 {
	switch b.persona {
	case PersonaFocused:
		return 1.25
	case PersonaCautious:
		return 0.5
	default:
		return 1.0
	}
}

// InterestBias nudges signal interest by persona: focused sessions lean
// in, cautious ones hold back.
func (b *Behavior) InterestBias() float64 {
	switch b.persona {
	case PersonaFocused:
		return 0.1
	case PersonaCautious:
		return -0.1
	default:
		return 0
	}
}
