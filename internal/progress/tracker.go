// Package progress reports operation progress to an injected capability,
// instead of a global or a web-server broadcaster, so callers embedding
// rescene's core packages decide where progress goes.
package progress

// Info describes the current state of a long-running operation.
type Info struct {
	Current int
	Total   int
	Message string
}

// Reporter receives progress updates. Implementations must not block.
type Reporter interface {
	Report(Info)
}

// ReporterFunc adapts a plain function to a Reporter.
type ReporterFunc func(Info)

// Report calls f.
func (f ReporterFunc) Report(i Info) { f(i) }

// Null discards every update. It is the default when no Reporter is supplied.
var Null Reporter = ReporterFunc(func(Info) {})

// Tracker maps a sub-operation's 0..total progress onto a percentage range within
// a larger operation, then forwards it to an underlying Reporter.
type Tracker struct {
	reporter   Reporter
	message    string
	minPercent int
	maxPercent int
}

// NewTracker creates a Tracker that reports through reporter, scaling sub-operation
// progress into [minPercent, maxPercent].
func NewTracker(reporter Reporter, minPercent, maxPercent int) *Tracker {
	if reporter == nil {
		reporter = Null
	}
	return &Tracker{reporter: reporter, minPercent: minPercent, maxPercent: maxPercent}
}

// WithMessage returns a copy of the tracker that reports the given message on every update.
func (t *Tracker) WithMessage(message string) *Tracker {
	cp := *t
	cp.message = message
	return &cp
}

// Update reports current/total scaled into the tracker's percentage range.
func (t *Tracker) Update(current, total int) {
	if total <= 0 {
		return
	}
	rangeSize := t.maxPercent - t.minPercent
	percentage := t.minPercent + (current * rangeSize / total)
	t.reporter.Report(Info{Current: percentage, Total: 100, Message: t.message})
}
