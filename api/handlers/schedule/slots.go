// Package schedule generates candidate appointment start times from the
// clinic's working-hours configuration.
package schedule

import (
	"fmt"
	"time"
)

const clockLayout = "15:04"

// Slots returns every start time between start and end at duration-minute
// steps. A slot is kept only if the whole visit fits before end, and
// dropped if its start falls inside [breakStart, breakEnd). An empty or
// equal break window means no break. All times are HH:MM on a 24h clock.
func Slots(start, end, breakStart, breakEnd string, duration int) ([]string, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %d", duration)
	}

	startT, err := time.Parse(clockLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	endT, err := time.Parse(clockLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q: %w", end, err)
	}
	if !startT.Before(endT) {
		return nil, fmt.Errorf("start %q must be before end %q", start, end)
	}

	var breakStartT, breakEndT time.Time
	hasBreak := breakStart != "" && breakEnd != "" && breakStart != breakEnd
	if hasBreak {
		breakStartT, err = time.Parse(clockLayout, breakStart)
		if err != nil {
			return nil, fmt.Errorf("invalid break start %q: %w", breakStart, err)
		}
		breakEndT, err = time.Parse(clockLayout, breakEnd)
		if err != nil {
			return nil, fmt.Errorf("invalid break end %q: %w", breakEnd, err)
		}
		if breakEndT.Before(breakStartT) {
			return nil, fmt.Errorf("break start %q must not be after break end %q", breakStart, breakEnd)
		}
	}

	step := time.Duration(duration) * time.Minute
	var slots []string
	for t := startT; !t.Add(step).After(endT); t = t.Add(step) {
		if hasBreak && !t.Before(breakStartT) && t.Before(breakEndT) {
			continue
		}
		slots = append(slots, t.Format(clockLayout))
	}
	return slots, nil
}

// Filter removes the given taken times from slots, preserving order.
// Used to drop slots already booked on a given day.
func Filter(slots []string, taken []string) []string {
	if len(taken) == 0 {
		return slots
	}
	takenSet := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		takenSet[t] = struct{}{}
	}
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := takenSet[s]; ok {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}
