// Package txguard protects callers from panics caused by the use of expired
// world transactions. User code such as handlers may retain a transaction
// beyond the frame it was valid for; running such code through Run turns the
// resulting panic into a false return value instead of bringing down the
// goroutine.
package txguard

// ClosedPanicMessage is the panic message raised when a transaction is used
// after it finished.
const ClosedPanicMessage = "world.Tx: use of transaction after transaction finishes is not permitted"

// Run runs fn, recovering from expired-transaction panics. It returns true
// if fn completed.
func Run(fn func()) (ok bool) {
	return run(fn)
}

// Value runs fn and returns its result, recovering from expired-transaction
// panics. The bool returned is false if fn did not complete.
func Value[T any](fn func() T) (value T, ok bool) {
	ok = run(func() {
		value = fn()
	})
	return
}

func run(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			if msg, str := r.(string); str && msg == ClosedPanicMessage {
				ok = false
				return
			}
			panic(r)
		}
	}()
	fn()
	return true
}
