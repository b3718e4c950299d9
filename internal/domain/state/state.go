package state

import (
	"context"

	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
)

// State es lo que el poller persiste al final de cada ciclo, siempre completo.
type State struct {
	KnownBounties map[int64]bounties.Snapshot `json:"knownBounties"`
	DeliveryLog   []deliveries.Entry          `json:"deliveryLog"`
}

// Empty devuelve un estado sin bounties ni entregas (primer arranque).
func Empty() State {
	return State{
		KnownBounties: map[int64]bounties.Snapshot{},
		DeliveryLog:   []deliveries.Entry{},
	}
}

// Store guarda y recupera el estado entero. Load sobre un store vacío devuelve Empty().
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}
