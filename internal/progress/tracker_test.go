package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerScalesIntoRange(t *testing.T) {
	var got []Info
	tr := NewTracker(ReporterFunc(func(i Info) { got = append(got, i) }), 50, 100).WithMessage("splicing")

	tr.Update(0, 4)
	tr.Update(2, 4)
	tr.Update(4, 4)

	want := []Info{
		{Current: 50, Total: 100, Message: "splicing"},
		{Current: 75, Total: 100, Message: "splicing"},
		{Current: 100, Total: 100, Message: "splicing"},
	}
	assert.Equal(t, want, got)
}

func TestTrackerIgnoresZeroTotal(t *testing.T) {
	called := false
	tr := NewTracker(ReporterFunc(func(Info) { called = true }), 0, 100)
	tr.Update(5, 0)
	assert.False(t, called)
}

func TestNewTrackerDefaultsNilReporterToNull(t *testing.T) {
	tr := NewTracker(nil, 0, 100)
	assert.NotPanics(t, func() { tr.Update(1, 2) })
}

func TestNullReporterDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Null.Report(Info{Current: 1, Total: 1}) })
}
