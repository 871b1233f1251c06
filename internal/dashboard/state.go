package dashboard

// Phase is the coarse state of the display.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseFetching        Phase = "fetching"
	PhaseDisplaying      Phase = "displaying"
	PhaseDisplayingStale Phase = "displaying_stale"
)

// State is the refresh state machine. Data is kept while fetching so the
// display never blanks during a refresh; InFlight is the token of the running
// cycle and doubles as the in-flight guard.
type State struct {
	Phase    Phase
	Data     *Snapshot
	Err      error
	InFlight string
}

// Fetching reports whether a cycle is running.
func (s State) Fetching() bool {
	return s.InFlight != ""
}

// Event drives a state transition.
type Event interface {
	isEvent()
}

// Started is emitted when a trigger is accepted.
type Started struct {
	Token string
}

// Completed is emitted once both fetches of a cycle have joined. Err is nil
// only if neither fetch needed a fallback. LastGood is the last successful
// snapshot still fresh enough to show, if any.
type Completed struct {
	Token    string
	Snapshot Snapshot
	Err      error
	LastGood *Snapshot
}

// Abandoned is emitted when a cycle's context ended before the join.
type Abandoned struct {
	Token string
}

func (Started) isEvent()   {}
func (Completed) isEvent() {}
func (Abandoned) isEvent() {}

// Next returns the state after e. It never mutates s. Events for a cycle other
// than the one in flight are ignored, and so is Started while a cycle runs.
func Next(s State, e Event) State {
	switch ev := e.(type) {
	case Started:
		if s.Fetching() || ev.Token == "" {
			return s
		}
		s.Phase = PhaseFetching
		s.InFlight = ev.Token
		return s

	case Completed:
		if !s.Fetching() || ev.Token != s.InFlight {
			return s
		}
		s.InFlight = ""
		if ev.Err == nil {
			snap := ev.Snapshot
			return State{Phase: PhaseDisplaying, Data: &snap}
		}
		data := ev.LastGood
		if data == nil {
			snap := ev.Snapshot
			data = &snap
		}
		return State{Phase: PhaseDisplayingStale, Data: data, Err: ev.Err}

	case Abandoned:
		if !s.Fetching() || ev.Token != s.InFlight {
			return s
		}
		s.InFlight = ""
		s.Phase = settledPhase(s)
		return s
	}
	return s
}

// settledPhase is the phase to return to when a cycle ends without data.
func settledPhase(s State) Phase {
	switch {
	case s.Data == nil:
		return PhaseIdle
	case s.Err != nil:
		return PhaseDisplayingStale
	default:
		return PhaseDisplaying
	}
}
