package meta

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("metaobject")

// Diagnostic is a warning raised by invocation or the property engine.
type Diagnostic struct {
	Err     error
	Message string
}

var (
	diagMu      sync.RWMutex
	diagHandler func(Diagnostic)
)

// SetDiagnosticHandler installs fn to receive every diagnostic in addition
// to the log. It returns a function restoring the previous handler.
func SetDiagnosticHandler(fn func(Diagnostic)) (restore func()) {
	diagMu.Lock()
	prev := diagHandler
	diagHandler = fn
	diagMu.Unlock()
	return func() {
		diagMu.Lock()
		diagHandler = prev
		diagMu.Unlock()
	}
}

// warn logs a diagnostic and returns it as an error wrapping err.
func warn(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	log.Warning(msg)

	diagMu.RLock()
	fn := diagHandler
	diagMu.RUnlock()
	if fn != nil {
		fn(Diagnostic{Err: err, Message: msg})
	}
	return fmt.Errorf("%w: %s", err, msg)
}
