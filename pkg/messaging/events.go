package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Payroll events
	EventPayrollCreated                = "payroll.created"
	EventPayrollRecalculated           = "payroll.recalculated"
	EventPayrollRecalculationRequested = "payroll.recalculation.requested"
	EventPayrollStatusChanged          = "payroll.status.changed"
	EventOverrideChanged               = "payroll.override.changed"
	EventEditRequestCreated            = "payroll.edit_request.created"
	EventEditRequestApproved           = "payroll.edit_request.approved"
	EventEditRequestRejected           = "payroll.edit_request.rejected"

	// Attendance events
	EventAttendanceCheckedIn      = "payroll.attendance.checked_in"
	EventAttendanceCheckedOut     = "payroll.attendance.checked_out"
	EventAttendanceAutoCheckedOut = "payroll.attendance.auto_checked_out"

	// Staff events consumed by the payroll service
	EventEmployeePaymentProfileUpdated = "staff.employee.payment_profile.updated"
)

// Exchange names
const (
	ExchangePayrollEvents = "payroll.events"
	ExchangeStaffEvents   = "staff.events"

	DeadLetterExchange = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Payroll Events

// PayrollCreatedEvent is published when a monthly payroll is created
type PayrollCreatedEvent struct {
	PayrollID   string `json:"payroll_id"`
	UserID      string `json:"user_id"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	PaymentType string `json:"payment_type"`
	NetSalary   string `json:"net_salary"`
}

// PayrollRecalculatedEvent is published after a payroll's hourly figures were recomputed
type PayrollRecalculatedEvent struct {
	PayrollID   string `json:"payroll_id"`
	UserID      string `json:"user_id"`
	HoursWorked string `json:"hours_worked"`
	BaseSalary  string `json:"base_salary"`
	NetSalary   string `json:"net_salary"`
}

// PayrollRecalculationRequestedEvent asks the recalculation consumer to retry
// a recalculation that failed in-process
type PayrollRecalculationRequestedEvent struct {
	PayrollID string `json:"payroll_id"`
	Reason    string `json:"reason,omitempty"`
}

// PayrollStatusChangedEvent is published when a payroll moves through its lifecycle
type PayrollStatusChangedEvent struct {
	PayrollID string `json:"payroll_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy string `json:"changed_by,omitempty"`
}

// OverrideChangedEvent is published when a daily override is created, updated or deleted
type OverrideChangedEvent struct {
	UserID   string `json:"user_id"`
	WorkDate string `json:"work_date"`
	Action   string `json:"action"`
	ActorID  string `json:"actor_id,omitempty"`
}

// EditRequestEvent is published on every edit request transition
type EditRequestEvent struct {
	EditRequestID string `json:"edit_request_id"`
	PayrollID     string `json:"payroll_id"`
	RequestedBy   string `json:"requested_by"`
	AssignedTo    string `json:"assigned_to"`
	Status        string `json:"status"`
	ResolvedBy    string `json:"resolved_by,omitempty"`
}

// Attendance Events

// AttendanceEvent is published on check-in, check-out and automatic check-out
type AttendanceEvent struct {
	AttendanceID string     `json:"attendance_id"`
	UserID       string     `json:"user_id"`
	WorkDate     string     `json:"work_date"`
	CheckIn      time.Time  `json:"check_in"`
	CheckOut     *time.Time `json:"check_out,omitempty"`
}

// Staff Events

// EmployeePaymentProfileUpdatedEvent carries an employee's payment defaults
// and reporting line from the staff service
type EmployeePaymentProfileUpdatedEvent struct {
	UserID        string  `json:"user_id"`
	CompanyID     string  `json:"company_id"`
	Role          string  `json:"role"`
	ManagerID     *string `json:"manager_id,omitempty"`
	PaymentType   *string `json:"payment_type,omitempty"`
	HourlyRate    *string `json:"hourly_rate,omitempty"`
	MonthlySalary *string `json:"monthly_salary,omitempty"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
