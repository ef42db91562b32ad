package admin

import (
	"context"
	"time"

	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/types"
)

const diagTimeout = 5 * time.Second

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Diagnostician reports store reachability and per-collection counts.
type Diagnostician struct {
	store   store.Store
	backend string
}

// NewDiagnostician creates a Diagnostician for st, labelled with backend.
func NewDiagnostician(st store.Store, backend string) *Diagnostician {
	return &Diagnostician{store: st, backend: backend}
}

// Diagnose pings the store when it supports it and counts documents in every
// collection. Errors are reported in the result, not returned.
func (d *Diagnostician) Diagnose(ctx context.Context) types.Diagnostics {
	ctx, cancel := context.WithTimeout(ctx, diagTimeout)
	defer cancel()

	diag := types.Diagnostics{Backend: d.backend, Reachable: true}
	if p, ok := d.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			diag.Reachable = false
			diag.Error = err.Error()
		}
	}

	for _, c := range repository.Collections {
		col := types.Collection{Name: c.Name}
		docs, err := d.store.ReadAll(ctx, c.Name, c.Order)
		if err != nil {
			col.Error = err.Error()
			if diag.Reachable {
				diag.Reachable = false
				diag.Error = err.Error()
			}
		}
		col.Count = len(docs)
		diag.Collections = append(diag.Collections, col)
	}
	return diag
}
