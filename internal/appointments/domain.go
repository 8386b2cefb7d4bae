package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

const scheduleLayout = "Mon 02 Jan 2006, 15:04 MST"

// Domain adapts vet appointments to the fulfillment coordinator. Appointments
// have no line items and no shipment.
type Domain struct {
	repo Repository
}

func NewDomain(repo Repository) *Domain {
	return &Domain{repo: repo}
}

func (d *Domain) Kind() enums.TransactionKind {
	return enums.TransactionKindAppointment
}

func (d *Domain) Load(ctx context.Context, externalID string) (*fulfillment.Transaction, error) {
	appt, err := loadAppointment(ctx, d.repo, externalID)
	if err != nil {
		return nil, err
	}
	label := "Vet appointment " + appt.ExternalID
	if appt.Vet != nil {
		label = fmt.Sprintf("Appointment with Dr. %s", appt.Vet.Name)
	}
	return &fulfillment.Transaction{
		Kind:          enums.TransactionKindAppointment,
		ID:            appt.ID,
		ExternalID:    appt.ExternalID,
		Status:        string(appt.Status),
		PaymentMode:   appt.PaymentMode,
		PaymentStatus: appt.PaymentStatus,
		Amount:        appt.Fee,
		Label:         label,
		Customer: fulfillment.Party{
			Name:  appt.CustomerName,
			Email: appt.CustomerEmail,
			Phone: appt.CustomerPhone,
		},
		Confirmed: appt.ConfirmedAt != nil,
	}, nil
}

func (d *Domain) AttachSession(ctx context.Context, externalID, sessionRef string) error {
	return d.repo.AttachSession(ctx, externalID, sessionRef)
}

func (d *Domain) Claim(ctx context.Context, externalID string, paid bool) (bool, error) {
	return d.repo.Claim(ctx, externalID, paid)
}

func (d *Domain) Discard(ctx context.Context, externalID string) (bool, error) {
	return d.repo.Discard(ctx, externalID)
}

func (d *Domain) Messages(ctx context.Context, tx *fulfillment.Transaction) ([]notifications.Message, error) {
	appt, err := loadAppointment(ctx, d.repo, tx.ExternalID)
	if err != nil {
		return nil, err
	}
	if appt.Vet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "appointment has no vet")
	}
	data := appointmentData(appt)
	return []notifications.Message{
		{
			To:       appt.Vet.Email,
			Subject:  fmt.Sprintf("New appointment %s", appt.ExternalID),
			Template: notifications.TemplateAppointmentVet,
			Data:     data,
		},
		{
			To:       appt.CustomerEmail,
			Subject:  fmt.Sprintf("Appointment %s booked", appt.ExternalID),
			Template: notifications.TemplateAppointmentCustomer,
			Data:     data,
		},
	}, nil
}

func loadAppointment(ctx context.Context, repo Repository, externalID string) (*models.Appointment, error) {
	appt, err := repo.FindByExternalID(ctx, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
	}
	return appt, nil
}

func appointmentData(appt *models.Appointment) map[string]any {
	data := map[string]any{
		"Name":        appt.CustomerName,
		"Email":       appt.CustomerEmail,
		"Phone":       appt.CustomerPhone,
		"ExternalID":  appt.ExternalID,
		"PetName":     appt.PetName,
		"Reason":      appt.Reason,
		"ScheduledAt": appt.ScheduledAt.In(time.UTC).Format(scheduleLayout),
		"Total":       appt.Fee.StringFixed(2),
		"PaymentMode": string(appt.PaymentMode),
		"Paid":        appt.PaymentStatus == enums.PaymentStatusPaid,
		"Status":      string(appt.Status),
	}
	if appt.Vet != nil {
		data["VetName"] = appt.Vet.Name
	}
	return data
}
