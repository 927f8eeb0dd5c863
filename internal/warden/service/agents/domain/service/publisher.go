package service

import (
	"context"
	"errors"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg"
	"github.com/kiosk404/warden/pkg/logger"
)

// EventPublisher delivers drained domain events after the conversation was
// persisted. Delivery is at-least-once at best; a failed publish never
// rolls back the turn.
type EventPublisher interface {
	Publish(ctx context.Context, events []entity.DomainEvent) error
}

// LogPublisher writes every event to the module log.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (*LogPublisher) Publish(_ context.Context, events []entity.DomainEvent) error {
	for _, e := range events {
		logger.InfoX(pkg.ModuleName, "[Events] %s conversation=%s event=%s",
			e.EventName(), e.AggregateID(), e.EventID())
	}
	return nil
}

// MultiPublisher fans events out to every publisher and joins their errors.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, events []entity.DomainEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
