package runtime

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext derives a context from parent that is cancelled on SIGINT or SIGTERM.
// Extra signals can be appended, e.g. SIGHUP when a process wants to drain on reload.
func SignalContext(parent context.Context, extra ...os.Signal) (context.Context, context.CancelFunc) {
	sigs := append([]os.Signal{os.Interrupt, syscall.SIGTERM}, extra...)
	return signal.NotifyContext(parent, sigs...)
}
