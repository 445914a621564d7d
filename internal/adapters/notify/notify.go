// Package notify delivers state changes and interventions to external
// backends.
package notify

import (
	"context"
	"errors"

	"github.com/okian/attend/internal/domain/model"
)

// Notifier is an external notification backend.
type Notifier interface {
	// Notify reports a new attention state.
	Notify(ctx context.Context, state model.State, ev model.Event) error
	// Intervene reports sustained distraction along with the recent states.
	Intervene(ctx context.Context, recent []model.State, ev model.Event) error
}

// Nop is the Notifier used when no backend is configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, model.State, model.Event) error { return nil } //nolint:gocritic // hugeParam: events are value snapshots

// Intervene implements Notifier.
func (Nop) Intervene(context.Context, []model.State, model.Event) error { return nil } //nolint:gocritic // hugeParam: events are value snapshots

// Multi fans out to several notifiers. Every backend is tried; failures are
// joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, state model.State, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, state, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Intervene implements Notifier.
func (m Multi) Intervene(ctx context.Context, recent []model.State, ev model.Event) error { //nolint:gocritic // hugeParam: events are value snapshots
	var errs []error
	for _, n := range m {
		if err := n.Intervene(ctx, recent, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns a single Notifier for ns, dropping nils and Nops.
func Combine(ns ...Notifier) Notifier {
	var out Multi
	for _, n := range ns {
		if n == nil {
			continue
		}
		if _, ok := n.(Nop); ok {
			continue
		}
		out = append(out, n)
	}
	switch len(out) {
	case 0:
		return Nop{}
	case 1:
		return out[0]
	default:
		return out
	}
}
