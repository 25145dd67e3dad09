package consumers

import (
	"context"

	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/messaging"
)

// ProfileQueue receives employee profile changes from the staff service
const ProfileQueue = "payroll-service.staff-events"

// ProfileUpdater applies an employee profile change
type ProfileUpdater interface {
	ApplyUpdate(ctx context.Context, ev messaging.EmployeePaymentProfileUpdatedEvent) error
}

// ProfileEventConsumer keeps the local employee profile projection current
type ProfileEventConsumer struct {
	consumer *messaging.Consumer
	profiles ProfileUpdater
	logger   *logger.Logger
}

// NewProfileEventConsumer creates a new profile event consumer
func NewProfileEventConsumer(rmq *messaging.RabbitMQ, profiles ProfileUpdater, log *logger.Logger) (*ProfileEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, ProfileQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStaffEvents, "staff.employee.#"); err != nil {
		return nil, err
	}

	c := &ProfileEventConsumer{
		consumer: consumer,
		profiles: profiles,
		logger:   log,
	}
	consumer.RegisterHandler(messaging.EventEmployeePaymentProfileUpdated, c.handleProfileUpdated)

	return c, nil
}

// Start starts consuming messages
func (c *ProfileEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *ProfileEventConsumer) handleProfileUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.EmployeePaymentProfileUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Msg("received employee payment profile update")

	err := c.profiles.ApplyUpdate(ctx, data)
	if errors.Is(err, errors.ErrValidation) {
		// redelivery cannot fix a malformed profile
		c.logger.Error().Err(err).Str("user_id", data.UserID).Msg("invalid employee profile dropped")
		return nil
	}
	return err
}
