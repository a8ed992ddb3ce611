package scheduler

// LearnedInterval is the interval, in days, from which a card counts as
// learned.
const LearnedInterval = 21

// Stats partitions a collection by learning progress.
type Stats struct {
	New       int `json:"new"`       // never successfully reviewed since the last failure
	Reviewing int `json:"reviewing"` // in a success chain, interval below LearnedInterval
	Learned   int `json:"learned"`   // in a success chain, interval at least LearnedInterval
}

// Total returns the number of cards counted.
func (st Stats) Total() int {
	return st.New + st.Reviewing + st.Learned
}

// Statistics counts the collection as it is now, with a full scan.
func (s *Scheduler) Statistics() Stats {
	var st Stats
	for _, c := range s.cards {
		state := c.State()
		switch {
		case state.Repetitions == 0:
			st.New++
		case state.Interval >= LearnedInterval:
			st.Learned++
		default:
			st.Reviewing++
		}
	}
	return st
}
