package specialerror

import (
	"sync"

	"PPLink/tools/errs"
)

var (
	mu       sync.RWMutex
	handlers []func(err error) (errs.CodeError, bool)
)

// AddErrHandler registers a translator for errors raised below the service layer
// (driver sentinel errors, duplicate keys) that should reach clients as a CodeError.
func AddErrHandler(h func(err error) (errs.CodeError, bool)) error {
	if h == nil {
		return errs.New("nil handler")
	}
	mu.Lock()
	defer mu.Unlock()
	handlers = append(handlers, h)
	return nil
}

// ErrCode resolves err to the CodeError a client should see.
// Unrecognised errors become ServerInternalError.
func ErrCode(err error) errs.CodeError {
	if err == nil {
		return errs.CodeError{}
	}
	if ce, ok := errs.As(err); ok {
		return ce
	}
	mu.RLock()
	defer mu.RUnlock()
	for _, h := range handlers {
		if ce, ok := h(err); ok {
			return ce
		}
	}
	return errs.ErrInternalServer
}
