// Package async implements the worker-thread pool and promise registry
// behind the spawn/await host callables (spec §5: "a separate worker-thread
// pool is provided solely to implement asynchronous task primitives exposed
// as host callables"). It depends only on the value package, not vm, so
// that vm can wire it up without an import cycle: the VM hands this package
// a Caller closure rather than the package reaching back into vm itself.
package async

import (
	"sync"

	"github.com/IvyMycelia/myco/value"
)

// PromiseValue is the runtime tag used by GET_TYPE and error messages for a
// pending or resolved task handle; it is not one of the Value variants named
// in spec §3, since spawn/await are themselves a supplemental feature (see
// DESIGN.md) layered on top of the core value model.
const PromiseValue value.ValueType = "promise"

// Caller invokes a Myco-callable Value (a *value.Function, *value.HostFunction,
// or *value.Class) the same way the VM's own call opcodes would, letting a
// worker goroutine run user code without duplicating call-dispatch logic.
type Caller func(fn value.Value, args []value.Value) (value.Value, error)

// Promise is the registry entry a spawned task resolves into. Guarded by its
// own mutex plus a condition variable to park an awaiting caller until the
// worker goroutine delivers a result or error - spec §5's "promise registry
// protected by a mutex... condition variable to wake idle workers" applied
// to the consumer side (the worker side parks on the task queue instead).
type Promise struct {
	mu       sync.Mutex
	cond     *sync.Cond
	done     bool
	result   value.Value
	errValue value.Value
}

func newPromise() *Promise {
	p := &Promise{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Handle is the Value spawn returns to user code: an opaque handle over a
// Promise, satisfying value.Value so it can be stored in a binding, passed
// as an argument, or returned, the same as any other value.
type Handle struct {
	promise *Promise
}

func (h Handle) Type() value.ValueType { return PromiseValue }
func (h Handle) String() string        { return "<promise>" }

// resolve is called exactly once by the worker goroutine that ran the task.
func (p *Promise) resolve(result value.Value, errValue value.Value) {
	p.mu.Lock()
	p.result = result
	p.errValue = errValue
	p.done = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Await blocks the calling goroutine (the VM's single main thread, when
// invoked from the `await` host callable) until the task finishes, then
// returns its result - or the Myco error value it threw, as a value.String
// bound the same way a catch clause would bind it, since await surfaces a
// worker failure the way a synchronous call's error would.
func (p *Promise) Await() (value.Value, value.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.done {
		p.cond.Wait()
	}
	return p.result, p.errValue
}

type task struct {
	fn      value.Value
	args    []value.Value
	promise *Promise
}

// Pool is a fixed-size worker pool reading off a buffered task queue (spec
// §5's "task queue protected by a mutex" - here a channel, Go's native
// rendering of a mutex-guarded queue with a built-in wake-up signal, so no
// separate condition variable is needed on the producer side).
type Pool struct {
	tasks chan task
	call  Caller
	once  sync.Once
}

// NewPool starts workers goroutines pulling off an internal queue. call is
// how a worker actually runs a spawned function - supplied by the VM so this
// package never needs to import vm.
func NewPool(workers int, call Caller) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks: make(chan task, 256),
		call:  call,
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for t := range p.tasks {
		result, err := p.call(t.fn, t.args)
		if err != nil {
			t.promise.resolve(value.NullValue, value.String{Value: err.Error()})
			continue
		}
		t.promise.resolve(result, nil)
	}
}

// Spawn enqueues fn(args...) to run on a worker goroutine and returns a
// promise handle immediately - the `spawn` host callable's return value.
func (p *Pool) Spawn(fn value.Value, args []value.Value) Handle {
	promise := newPromise()
	p.tasks <- task{fn: fn, args: args, promise: promise}
	return Handle{promise: promise}
}

// Resolve blocks until h's task completes, returning its result or the
// string-wrapped error it failed with - the `await` host callable's
// implementation once it has type-asserted its argument to a Handle.
func Resolve(h Handle) (value.Value, value.Value) {
	return h.promise.Await()
}

// Close stops accepting new tasks once queued work drains. Safe to call more
// than once.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.tasks) })
}
