package registration

import (
	"errors"
	"sort"
	"strings"
)

// Every rejection an operation in this package can produce. Callers match
// with errors.Is and translate to transport-level responses; the aggregate
// is never mutated on a rejected operation.
var (
	ErrNotFound                 = errors.New("event not found")
	ErrRegistrationClosed       = errors.New("registration is closed for this event")
	ErrEventFull                = errors.New("event is full")
	ErrAlreadyRegistered        = errors.New("already registered for this event")
	ErrNotRegistered            = errors.New("not registered for this event")
	ErrCancellationWindowClosed = errors.New("cannot cancel registration less than 7 days before the event")
	ErrForbidden                = errors.New("not authorized")
	ErrUnavailable              = errors.New("service unavailable")
)

// FieldErrors carries per-field validation failures.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsFieldErrors unwraps err into FieldErrors if it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
