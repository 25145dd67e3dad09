package events

import (
	"context"

	"github.com/paycore/paycore-backend/internal/payroll/domain"
	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/paycore/paycore-backend/pkg/messaging"
)

// Sink is anything that can put a typed event on the bus
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// PayrollEventPublisher publishes payroll-related events. Publishing is
// best-effort: failures are logged and never surface to the caller.
type PayrollEventPublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewPayrollEventPublisher creates a publisher on the payroll exchange
func NewPayrollEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PayrollEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePayrollEvents, "payroll-service", log)
	if err != nil {
		return nil, err
	}

	return NewWithSink(publisher, log), nil
}

// NewWithSink creates a publisher over an arbitrary sink
func NewWithSink(sink Sink, log *logger.Logger) *PayrollEventPublisher {
	return &PayrollEventPublisher{
		sink:   sink,
		logger: log,
	}
}

func (p *PayrollEventPublisher) publish(ctx context.Context, eventType string, data interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	if err := p.sink.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// PublishPayrollCreated publishes a payroll created event
func (p *PayrollEventPublisher) PublishPayrollCreated(ctx context.Context, payroll *domain.Payroll) {
	p.publish(ctx, messaging.EventPayrollCreated, messaging.PayrollCreatedEvent{
		PayrollID:   payroll.ID.String(),
		UserID:      payroll.UserID.String(),
		Month:       payroll.Month,
		Year:        payroll.Year,
		PaymentType: string(payroll.PaymentType),
		NetSalary:   payroll.NetSalary.StringFixed(2),
	})
}

// PublishPayrollRecalculated publishes a payroll recalculated event
func (p *PayrollEventPublisher) PublishPayrollRecalculated(ctx context.Context, payroll *domain.Payroll) {
	hours := ""
	if payroll.HoursWorked.Valid {
		hours = payroll.HoursWorked.Decimal.StringFixed(2)
	}
	p.publish(ctx, messaging.EventPayrollRecalculated, messaging.PayrollRecalculatedEvent{
		PayrollID:   payroll.ID.String(),
		UserID:      payroll.UserID.String(),
		HoursWorked: hours,
		BaseSalary:  payroll.BaseSalary.StringFixed(2),
		NetSalary:   payroll.NetSalary.StringFixed(2),
	})
}

// RequestRecalculation hands a failed recalculation to the retry consumer
func (p *PayrollEventPublisher) RequestRecalculation(ctx context.Context, payrollID, reason string) {
	p.publish(ctx, messaging.EventPayrollRecalculationRequested, messaging.PayrollRecalculationRequestedEvent{
		PayrollID: payrollID,
		Reason:    reason,
	})
}

// PublishStatusChanged publishes a payroll status change
func (p *PayrollEventPublisher) PublishStatusChanged(ctx context.Context, payroll *domain.Payroll, old domain.PayrollStatus, changedBy string) {
	p.publish(ctx, messaging.EventPayrollStatusChanged, messaging.PayrollStatusChangedEvent{
		PayrollID: payroll.ID.String(),
		OldStatus: string(old),
		NewStatus: string(payroll.Status),
		ChangedBy: changedBy,
	})
}

// PublishOverrideChanged publishes a daily override mutation
func (p *PayrollEventPublisher) PublishOverrideChanged(ctx context.Context, o *domain.DailyOverride, action, actorID string) {
	p.publish(ctx, messaging.EventOverrideChanged, messaging.OverrideChangedEvent{
		UserID:   o.UserID.String(),
		WorkDate: o.WorkDate.Format(domain.DateLayout),
		Action:   action,
		ActorID:  actorID,
	})
}

// PublishEditRequest publishes an edit request transition. The event type
// follows the request's status.
func (p *PayrollEventPublisher) PublishEditRequest(ctx context.Context, req *domain.PayrollEditRequest) {
	eventType := messaging.EventEditRequestCreated
	switch req.Status {
	case domain.EditRequestApproved:
		eventType = messaging.EventEditRequestApproved
	case domain.EditRequestRejected:
		eventType = messaging.EventEditRequestRejected
	}

	data := messaging.EditRequestEvent{
		EditRequestID: req.ID.String(),
		PayrollID:     req.PayrollID.String(),
		RequestedBy:   req.RequestedBy.String(),
		AssignedTo:    req.AssignedTo.String(),
		Status:        string(req.Status),
	}
	if req.ApprovedBy != nil {
		data.ResolvedBy = req.ApprovedBy.String()
	}
	p.publish(ctx, eventType, data)
}

// PublishAttendance publishes a check-in, check-out or automatic check-out
func (p *PayrollEventPublisher) PublishAttendance(ctx context.Context, kind domain.AttendanceEventKind, rec *domain.AttendanceRecord) {
	eventType := messaging.EventAttendanceCheckedIn
	switch kind {
	case domain.AttendanceCheckOut:
		eventType = messaging.EventAttendanceCheckedOut
	case domain.AttendanceAutoCheckOut:
		eventType = messaging.EventAttendanceAutoCheckedOut
	}

	p.publish(ctx, eventType, messaging.AttendanceEvent{
		AttendanceID: rec.ID.String(),
		UserID:       rec.UserID.String(),
		WorkDate:     rec.WorkDate.Format(domain.DateLayout),
		CheckIn:      rec.CheckInTime,
		CheckOut:     rec.CheckOutTime,
	})
}
