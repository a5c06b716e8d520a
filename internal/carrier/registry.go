package carrier

import (
	"errors"
	"sort"
	"sync"
)

var ErrUnknownCarrier = errors.New("unknown_carrier")

// Registry holds the configured gateways keyed by carrier code.
type Registry struct {
	mu       sync.RWMutex
	gateways map[Code]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[Code]Gateway)}
}

func (r *Registry) Register(gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[gw.Code()] = gw
}

func (r *Registry) Get(code Code) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[code]
	if !ok {
		return nil, ErrUnknownCarrier
	}
	return gw, nil
}

// All returns registered gateways in stable code order.
func (r *Registry) All() []Gateway {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.gateways))
	for code := range r.gateways {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	out := make([]Gateway, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.gateways[Code(code)])
	}
	return out
}
