package game

// Street represents the phase of a hand
type Street int

const (
	Waiting Street = iota
	Preflop
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}[s]
}

// IsBetting reports whether the street accepts player actions.
func (s Street) IsBetting() bool {
	return s >= Preflop && s <= River
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "raise"}[a]
}

// Action labels shown on player entries in snapshots.
const (
	labelSmallBlind = "SMALL BLIND"
	labelBigBlind   = "BIG BLIND"
	labelFold       = "FOLD"
	labelCheck      = "CHECK"
	labelCall       = "CALL"
	labelRaise      = "RAISE"
	labelAllIn      = "ALL IN"
)
