package safe

import (
	"fmt"
	"reflect"

	"PPLink/logger"
	"PPLink/tools/errs"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Used by constructors for required collaborators.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// DefaultString returns the dereferenced value of a string pointer,
// or the fallback if the pointer is nil.
func DefaultString(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover logs a recovered panic. Use as `defer safe.Recover("op")`.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered", zap.String("op", name), zap.Error(errs.ErrPanic(r)), zap.Stack("stack"))
	}
}
