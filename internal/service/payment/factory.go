package payment

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/adpanel/adpanel/internal/model"
)

// Registry resolves a provider by the name stored with the credentials.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// NewDefaultRegistry registers every supported gateway.
func NewDefaultRegistry() *Registry {
	slog.Info("initializing payment providers", "providers", []string{model.ProviderRazorpay, model.ProviderStripe})
	return NewRegistry(NewRazorpayProvider(), NewStripeProvider())
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider: %s (supported: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
