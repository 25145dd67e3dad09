package consumers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/errors"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/messaging"
)

// RecalculationQueue holds recalculations that failed in-process
const RecalculationQueue = "payroll-service.recalculation"

// Recalculator recomputes a monthly payroll
type Recalculator interface {
	RecalculateMonthlyPayroll(ctx context.Context, payrollID uuid.UUID) (*domain.Payroll, error)
}

// RecalculationConsumer retries payroll recalculations independently of the
// request that caused them. A failing message is redelivered up to
// messaging.MaxDeliveryAttempts times, then dead-lettered.
type RecalculationConsumer struct {
	consumer *messaging.Consumer
	recalc   Recalculator
	logger   *logger.Logger
}

// NewRecalculationConsumer creates a new recalculation consumer
func NewRecalculationConsumer(rmq *messaging.RabbitMQ, recalc Recalculator, log *logger.Logger) (*RecalculationConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, RecalculationQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangePayrollEvents, messaging.EventPayrollRecalculationRequested); err != nil {
		return nil, err
	}

	c := &RecalculationConsumer{
		consumer: consumer,
		recalc:   recalc,
		logger:   log,
	}
	consumer.RegisterHandler(messaging.EventPayrollRecalculationRequested, c.handleRecalculationRequested)

	return c, nil
}

// Start starts consuming messages
func (c *RecalculationConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *RecalculationConsumer) handleRecalculationRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.PayrollRecalculationRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	log := c.logger.WithPayroll(data.PayrollID)

	payrollID, err := uuid.Parse(data.PayrollID)
	if err != nil {
		log.Error().Msg("recalculation request with invalid payroll id dropped")
		return nil
	}

	log.Info().
		Str("reason", data.Reason).
		Str("correlation_id", event.CorrelationID).
		Msg("received recalculation request")

	if _, err := c.recalc.RecalculateMonthlyPayroll(ctx, payrollID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			log.Warn().Msg("payroll gone; recalculation request dropped")
			return nil
		}
		return fmt.Errorf("recalculate payroll %s: %w", payrollID, err)
	}
	return nil
}
