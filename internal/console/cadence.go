package console

import "time"

// Cadence holds the poll period of every source the aggregator owns.
type Cadence struct {
	Status        time.Duration
	Runs          time.Duration
	CILogs        time.Duration
	History       time.Duration
	LogsRunning   time.Duration
	LogsIdle      time.Duration
	ErrorsRunning time.Duration
	ErrorsIdle    time.Duration
}

// DefaultCadence returns the stock poll periods.
func DefaultCadence() Cadence {
	return Cadence{
		Status:        5 * time.Second,
		Runs:          10 * time.Second,
		CILogs:        5 * time.Second,
		History:       30 * time.Second,
		LogsRunning:   5 * time.Second,
		LogsIdle:      15 * time.Second,
		ErrorsRunning: 10 * time.Second,
		ErrorsIdle:    30 * time.Second,
	}
}

// Logs returns the local-log period for the given run state.
func (c Cadence) Logs(running bool) time.Duration {
	if running {
		return c.LogsRunning
	}
	return c.LogsIdle
}

// Errors returns the error-log period for the given run state.
func (c Cadence) Errors(running bool) time.Duration {
	if running {
		return c.ErrorsRunning
	}
	return c.ErrorsIdle
}

func (c Cadence) withDefaults() Cadence {
	def := DefaultCadence()
	fill := func(v *time.Duration, d time.Duration) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&c.Status, def.Status)
	fill(&c.Runs, def.Runs)
	fill(&c.CILogs, def.CILogs)
	fill(&c.History, def.History)
	fill(&c.LogsRunning, def.LogsRunning)
	fill(&c.LogsIdle, def.LogsIdle)
	fill(&c.ErrorsRunning, def.ErrorsRunning)
	fill(&c.ErrorsIdle, def.ErrorsIdle)
	return c
}
