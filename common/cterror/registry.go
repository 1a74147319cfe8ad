package cterror

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is a set of catalog errors. Duplicates are accepted by Register so that
// Validate can report them.
type Registry struct {
	mu     sync.RWMutex
	errs   []Error
	byCode map[int]int
}

func NewRegistry(errs ...Error) *Registry {
	r := &Registry{byCode: make(map[int]int)}
	for _, e := range errs {
		r.Register(e)
	}
	return r
}

func (r *Registry) Register(e Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCode[e.Code]; !ok {
		r.byCode[e.Code] = len(r.errs)
	}
	r.errs = append(r.errs, e)
}

// Errors returns a copy of the registered errors in registration order.
func (r *Registry) Errors() []Error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Error(nil), r.errs...)
}

func (r *Registry) GetError(code int) (Error, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ix, ok := r.byCode[code]
	if !ok {
		return Error{}, false
	}
	return r.errs[ix], true
}

// GetErrorByDescription scans the registry in order, an empty substring matches nothing.
func (r *Registry) GetErrorByDescription(substr string) (Error, bool) {
	if substr == "" {
		return Error{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.errs {
		if strings.Contains(e.Desc, substr) {
			return e, true
		}
	}
	return Error{}, false
}

// Validate fails on the first duplicate code or empty description.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[int]Error, len(r.errs))
	for _, e := range r.errs {
		if strings.TrimSpace(e.Desc) == "" {
			return NewException(InvalidArgs, "error code %d has an empty description", e.Code)
		}
		if prev, ok := seen[e.Code]; ok {
			return NewException(InvalidArgs, "duplicate error code %d: %q and %q", e.Code, prev.Desc, e.Desc)
		}
		seen[e.Code] = e
	}
	return nil
}

// ValidateCode fails if code is not registered exactly once with a description.
func (r *Registry) ValidateCode(code int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found []Error
	for _, e := range r.errs {
		if e.Code == code {
			found = append(found, e)
		}
	}
	switch {
	case len(found) == 0:
		return NewException(InvalidArgs, "error code %d is not registered", code)
	case len(found) > 1:
		return NewException(InvalidArgs, "duplicate error code %d registered %d times", code, len(found))
	case strings.TrimSpace(found[0].Desc) == "":
		return NewException(InvalidArgs, "error code %d has an empty description", code)
	}
	return nil
}

func (r *Registry) String() string {
	return fmt.Sprintf("registry(%d errors)", len(r.Errors()))
}
