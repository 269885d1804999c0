package breed

import (
	"context"
	"errors"
	"sync"
)

// ErrFakeUnavailable is returned by Fake for breeds scripted as Unavailable.
var ErrFakeUnavailable = errors.New("breed service unavailable")

// Fake returns scripted verdicts. Breeds without a script are Rejected.
type Fake struct {
	mu       sync.Mutex
	verdicts map[string]Verdict
	calls    []string
}

func NewFake() *Fake {
	return &Fake{verdicts: map[string]Verdict{}}
}

// Set scripts the verdict for a breed.
func (f *Fake) Set(name string, v Verdict) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdicts[name] = v
	return f
}

func (f *Fake) Check(_ context.Context, name string) (Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	v, ok := f.verdicts[name]
	if !ok {
		return Rejected, nil
	}
	if v == Unavailable {
		return Unavailable, ErrFakeUnavailable
	}
	return v, nil
}

// Calls lists every breed checked so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
