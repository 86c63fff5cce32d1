package monitor

import (
	"github.com/sweeney/teams-presence-sensor/internal/logic"
	"github.com/sweeney/teams-presence-sensor/internal/tail"
)

// Scan reads src until it has no more complete lines and returns the
// presence state the log currently implies. ok is false when no presence
// line was found.
func Scan(src tail.Source) (state logic.StatusState, ok bool, err error) {
	state = logic.Unknown
	for {
		lines, err := src.Poll()
		if err != nil {
			return state, ok, err
		}
		if len(lines) == 0 {
			return state, ok, nil
		}
		for _, line := range lines {
			if u, matched := logic.ParseLine(line); matched {
				state = logic.Apply(state, u)
				ok = true
			}
		}
	}
}
