package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-phone-verify/internal/config"
)

// Factory builds a backend from the configured options.
type Factory func(opts config.Options, o ...Option) (Backend, error)

// Registry maps backend identifiers to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the backend registered under name.
func (r *Registry) New(name string, opts config.Options, o ...Option) (Backend, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown phone verification backend %q (known: %v)", name, r.Names())
	}
	return f(opts, o...)
}

// Names lists registered identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default holds every built-in backend.
var Default = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Twilio, newTwilio)
	r.Register(Nexmo, newNexmo)
	r.Register(Kavenegar, newKavenegar)
	r.Register(SNS, newSNS)
	r.Register(Log, newLog)
	for _, name := range []string{Twilio, Nexmo, Kavenegar, SNS} {
		r.Register(SandboxName(name), newSandbox(SandboxName(name)))
	}
	return r
}

// New resolves the configured backend from the default registry.
func New(pv config.PhoneVerification, o ...Option) (Backend, error) {
	return Default.New(pv.Backend, pv.Options, o...)
}
