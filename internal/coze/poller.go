package coze

// Status values the platform reports for a turn.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// maxConsecutiveNotFound caps how many 404 poll responses in a row are
// tolerated before the turn is treated as a hard failure. The remote job is
// occasionally invisible right after submission.
const maxConsecutiveNotFound = 3

// poller tracks the retry bookkeeping for one turn's status polling.
// It is a pure state machine so the budget rules are testable without I/O:
// successful polls consume the budget and clear the not-found run, 404s
// extend the run without consuming budget.
type poller struct {
	budget      int
	polls       int
	notFoundRun int
}

func newPoller(budget int) *poller {
	return &poller{budget: budget}
}

// allow reports whether another status poll may be issued.
func (p *poller) allow() bool {
	return p.polls < p.budget
}

// observed records a successful status poll.
func (p *poller) observed() {
	p.polls++
	p.notFoundRun = 0
}

// observedNotFound records a 404 poll response and reports whether the
// client should retry; false once the consecutive run is exhausted.
func (p *poller) observedNotFound() bool {
	p.notFoundRun++
	return p.notFoundRun < maxConsecutiveNotFound
}
