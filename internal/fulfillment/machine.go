package fulfillment

import (
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

// Reasons attached to state-conflict errors under the "reason" detail key.
const (
	ReasonSameState   = "same_state"
	ReasonTerminal    = "terminal"
	ReasonNotAllowed  = "not_allowed"
	ReasonUnconfirmed = "unconfirmed"
)

var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
	enums.OrderStatusDelivered:  {enums.OrderStatusReturned},
}

var appointmentTransitions = map[enums.AppointmentStatus][]enums.AppointmentStatus{
	enums.AppointmentStatusPending:   {enums.AppointmentStatusConfirmed, enums.AppointmentStatusCancelled},
	enums.AppointmentStatusConfirmed: {enums.AppointmentStatusCompleted, enums.AppointmentStatusCancelled},
}

var applicationTransitions = map[enums.ApplicationStatus][]enums.ApplicationStatus{
	enums.ApplicationStatusPending: {enums.ApplicationStatusApproved, enums.ApplicationStatusRejected},
}

// CheckOrderTransition validates an order status change. An order that has not
// been confirmed yet may only be cancelled.
func CheckOrderTransition(from, to enums.OrderStatus, confirmed bool) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", to)
	}
	if err := checkTransition("order", orderTransitions, from, to); err != nil {
		return err
	}
	return checkConfirmed("order", from, to, enums.OrderStatusPending, enums.OrderStatusCancelled, confirmed)
}

// CheckAppointmentTransition validates an appointment status change. An
// appointment that has not been confirmed yet may only be cancelled.
func CheckAppointmentTransition(from, to enums.AppointmentStatus, confirmed bool) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid appointment status %q", to)
	}
	if err := checkTransition("appointment", appointmentTransitions, from, to); err != nil {
		return err
	}
	return checkConfirmed("appointment", from, to, enums.AppointmentStatusPending, enums.AppointmentStatusCancelled, confirmed)
}

// CheckApplicationTransition validates an adoption decision.
func CheckApplicationTransition(from, to enums.ApplicationStatus) error {
	if !to.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid application status %q", to)
	}
	return checkTransition("application", applicationTransitions, from, to)
}

func checkTransition[S ~string](subject string, table map[S][]S, from, to S) error {
	details := map[string]any{"from": string(from), "to": string(to)}
	if from == to {
		details["reason"] = ReasonSameState
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s is already %s", subject, to).WithDetails(details)
	}
	allowed, ok := table[from]
	if !ok {
		details["reason"] = ReasonTerminal
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s is %s and can no longer change", subject, from).WithDetails(details)
	}
	for _, candidate := range allowed {
		if candidate == to {
			return nil
		}
	}
	details["reason"] = ReasonNotAllowed
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s cannot move from %s to %s", subject, from, to).WithDetails(details)
}

func checkConfirmed[S ~string](subject string, from, to, pending, cancelled S, confirmed bool) error {
	if confirmed || from != pending || to == cancelled {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s is awaiting payment confirmation and can only be cancelled", subject).
		WithDetails(map[string]any{"from": string(from), "to": string(to), "reason": ReasonUnconfirmed})
}

// ConflictReason extracts the reason detail from a state-conflict error.
func ConflictReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	reason, _ := details["reason"].(string)
	return reason
}
