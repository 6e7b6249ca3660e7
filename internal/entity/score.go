package entity

// Scoreboard accumulates round results across rounds of one session.
type Scoreboard struct {
	WinsX uint
	WinsO uint
	Draws uint
}

// Record counts a finished round. Ongoing results are ignored.
func (that *Scoreboard) Record(result RoundResult) {
	switch result.Outcome {
	case OutcomeWin:
		if result.Winner == PlayerX {
			that.WinsX++
		} else if result.Winner == PlayerO {
			that.WinsO++
		}
	case OutcomeDraw:
		that.Draws++
	case OutcomeOngoing:
	}
}

func (that *Scoreboard) Reset() {
	*that = Scoreboard{}
}
