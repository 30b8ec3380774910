package metrics

import "time"

// Outcome labels a finished compilation.
type Outcome string

// Compilation outcomes.
const (
	OutcomeSuccess     Outcome = "success"
	OutcomeCompileErr  Outcome = "compile_error"
	OutcomeLaunchErr   Outcome = "launch_error"
	OutcomeConfigErr   Outcome = "config_error"
	OutcomeLogMissing  Outcome = "log_missing"
	OutcomeIOErr       Outcome = "io_error"
	OutcomeCanceled    Outcome = "canceled"
	OutcomeInternalErr Outcome = "internal_error"
)

// Recorder receives compilation metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObservePass records one compiler invocation.
	ObservePass(cmd string, d time.Duration, exitCode int)
	// ObserveCompilation records a finished request, from validation to
	// the PDF being ready (stream delivery is not included).
	ObserveCompilation(cmd string, d time.Duration, outcome Outcome)
	// AddInFlight adjusts the number of compilations currently running.
	AddInFlight(delta int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePass(string, time.Duration, int)            {}
func (NoopRecorder) ObserveCompilation(string, time.Duration, Outcome) {}
func (NoopRecorder) AddInFlight(int)                                   {}
