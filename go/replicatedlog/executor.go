package replicatedlog

// Executor runs all work for one cell on a single goroutine, giving the
// two-phase commit engine the serialized, lock-free execution model
// described in spec.md §5: "The implementation is organized as a set of
// single-threaded cooperative executors ('automaton invokers') — one per
// cell — serialized by the replicated-log apply loop."
//
// Mutation application always happens on the Executor. Long-running work
// (timestamp requests, mailbox posts, outbound RPCs) is started from the
// Executor but must not block it; its continuation is handed back to
// Schedule so it resumes on the same serialized goroutine, re-validating
// any state it captured before suspending.
type Executor struct {
	jobs chan func()
	done chan struct{}
}

// NewExecutor starts the executor's goroutine. Call Stop to shut it down.
func NewExecutor() *Executor {
	var e = &Executor{
		jobs: make(chan func(), 256),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *Executor) loop() {
	defer close(e.done)
	for job := range e.jobs {
		job()
	}
}

// Schedule enqueues fn to run on the executor's goroutine. It is safe to
// call from any goroutine, including from within a job already running on
// the executor (e.g. a continuation of its own suspension).
func (e *Executor) Schedule(fn func()) {
	e.jobs <- fn
}

// Run enqueues fn and blocks until it has executed. fn returns nothing;
// callers that need a result assign it to a captured variable.
// Use sparingly — it exists for tests and for code paths that genuinely
// need the result before proceeding (e.g. synchronous local calls).
func (e *Executor) Run(fn func()) {
	var done = make(chan struct{})
	e.Schedule(func() {
		defer close(done)
		fn()
	})
	<-done
}

// Stop drains pending jobs and terminates the executor's goroutine. It
// does not wait for in-flight jobs scheduled concurrently with Stop.
func (e *Executor) Stop() {
	close(e.jobs)
	<-e.done
}
