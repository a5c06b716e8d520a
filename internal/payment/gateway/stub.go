// Package gateway holds payment gateway implementations. The stub issues
// locally generated intent ids; a real provider integration replaces it via
// the domain.Gateway interface.
package gateway

import (
	"context"

	"github.com/cargovera/cargovera/internal/money"
	"github.com/google/uuid"
)

type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (*Stub) CreateIntent(_ context.Context, _ uuid.UUID, _ money.Money) (string, error) {
	return "pi_" + uuid.NewString(), nil
}
