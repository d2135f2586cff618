package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

const maxListedFailures = 20

// failure is one failed job as reported by the queue's error handler.
type failure struct {
	Job string
	Err error
}

// summary is what a run prints when it ends.
type summary struct {
	Pushed      int64
	Succeeded   int64
	Failed      int64
	Discarded   int64
	Elapsed     time.Duration
	Interrupted bool
	Failures    []failure
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "simpleq: %d jobs in %s\n", s.Pushed, s.Elapsed.Round(time.Millisecond))
	okColor.Fprintf(w, "  %d succeeded\n", s.Succeeded)
	if s.Failed > 0 {
		failColor.Fprintf(w, "  %d failed\n", s.Failed)
		for i, f := range s.Failures {
			if i == maxListedFailures {
				dimColor.Fprintf(w, "    ... and %d more\n", len(s.Failures)-i)
				break
			}
			dimColor.Fprintf(w, "    %s: %v\n", f.Job, f.Err)
		}
	}
	if s.Discarded > 0 {
		warnColor.Fprintf(w, "  %d discarded\n", s.Discarded)
	}
	if s.Interrupted {
		warnColor.Fprintln(w, "  interrupted")
	}
}
