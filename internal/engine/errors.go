package engine

import "fmt"

// assertJob panics if p's job is not want. Every completion callback is
// only ever invoked for the job kind it was armed for, so a mismatch is
// a bug in the runtime, not a client-triggerable condition.
func assertJob(p *Provision, want JobKind) {
	if p.Job.Kind != want {
		panic(fmt.Sprintf("engine: provision %d: expected job %s, got %s", p.Index, want, p.Job.Kind))
	}
}

// ErrKilled is what Run returns when a handler's Kill status stopped the
// worker, distinguishing a deliberate stop from context cancellation or
// a real I/O error.
var ErrKilled = errKilled{}

type errKilled struct{}

func (errKilled) Error() string { return "engine: worker stopped by Kill" }
