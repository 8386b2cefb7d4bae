package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/idgen"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

// Starter hands a persisted appointment to the fulfillment coordinator.
type Starter interface {
	Start(ctx context.Context, kind enums.TransactionKind, externalID string) (*fulfillment.Submission, error)
}

// Notifier delivers status messages.
type Notifier interface {
	Send(ctx context.Context, msgs ...notifications.Message)
}

// Service defines vet appointment operations.
type Service interface {
	Book(ctx context.Context, input BookInput) (*BookResult, error)
	Get(ctx context.Context, actor auth.Actor, externalID string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, externalID string, status enums.AppointmentStatus) (*models.Appointment, error)
}

type ServiceParams struct {
	Repo     Repository
	Starter  Starter
	Notifier Notifier
	NewID    idgen.Func
	IDLength int
	Now      func() time.Time
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	starter  Starter
	notifier Notifier
	ids      fulfillment.IDAllocator
	now      func() time.Time
	logg     *logger.Logger
}

// BookInput requests a slot with a vet.
type BookInput struct {
	VetID         uuid.UUID
	CustomerID    uuid.UUID
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PetName       string
	Reason        string
	ScheduledAt   time.Time
	PaymentMode   enums.PaymentMode
}

// BookResult is the stored appointment plus the gateway redirect for online payment.
type BookResult struct {
	Appointment *models.Appointment `json:"appointment"`
	RedirectURL string              `json:"redirect_url,omitempty"`
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "appointments repository required")
	}
	if p.Starter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment coordinator required")
	}
	if p.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &service{
		repo:     p.Repo,
		starter:  p.Starter,
		notifier: p.Notifier,
		ids:      fulfillment.IDAllocator{NewID: p.NewID, Length: p.IDLength, Logger: p.Logger},
		now:      p.Now,
		logg:     p.Logger,
	}, nil
}

func (s *service) Book(ctx context.Context, input BookInput) (*BookResult, error) {
	if err := s.validateBook(input); err != nil {
		return nil, err
	}
	vet, err := s.repo.FindVet(ctx, input.VetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vet not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vet")
	}

	appt := &models.Appointment{
		VetID:         vet.ID,
		CustomerID:    input.CustomerID,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		PetName:       strings.TrimSpace(input.PetName),
		Reason:        strings.TrimSpace(input.Reason),
		ScheduledAt:   input.ScheduledAt.UTC(),
		Fee:           vet.Fee,
		PaymentMode:   input.PaymentMode,
		Status:        enums.AppointmentStatusPending,
		PaymentStatus: enums.PaymentStatusUnpaid,
	}
	externalID, err := s.ids.Insert(ctx, func(id string) error {
		appt.ExternalID = id
		return s.repo.CreateAppointment(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	sub, err := s.starter.Start(ctx, enums.TransactionKindAppointment, externalID)
	if err != nil {
		return nil, err
	}
	stored, err := loadAppointment(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	return &BookResult{Appointment: stored, RedirectURL: sub.RedirectURL}, nil
}

func (s *service) validateBook(input BookInput) error {
	switch {
	case input.VetID == uuid.Nil || input.CustomerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "vet and customer are required")
	case strings.TrimSpace(input.CustomerEmail) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	case strings.TrimSpace(input.CustomerPhone) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	case strings.TrimSpace(input.PetName) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "pet name is required")
	case !input.ScheduledAt.After(s.now()):
		return pkgerrors.New(pkgerrors.CodeValidation, "appointment must be scheduled in the future")
	case input.PaymentMode != enums.PaymentModeOnline && input.PaymentMode != enums.PaymentModeCash:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment mode %q", input.PaymentMode)
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, externalID string) (*models.Appointment, error) {
	appt, err := loadAppointment(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(appt.CustomerID) && !isVet(actor, appt) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
	}
	return appt, nil
}

// UpdateStatus moves an appointment through its lifecycle. Completing a cash
// appointment records the payment taken at the clinic.
func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, externalID string, to enums.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.Get(ctx, actor, externalID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isVet(actor, appt) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the vet can update this appointment")
	}
	if err := fulfillment.CheckAppointmentTransition(appt.Status, to, appt.ConfirmedAt != nil); err != nil {
		return nil, err
	}

	var payment *enums.PaymentStatus
	if to == enums.AppointmentStatusCompleted && appt.PaymentStatus != enums.PaymentStatusPaid {
		paid := enums.PaymentStatusPaid
		payment = &paid
	}
	applied, err := s.repo.Transition(ctx, externalID, string(appt.Status), string(to), payment)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "appointment changed concurrently")
	}

	updated, err := loadAppointment(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"external_id": externalID,
		"from":        string(appt.Status),
		"to":          string(to),
	}), "appointment status changed")
	s.notifier.Send(ctx, notifications.Message{
		To:       updated.CustomerEmail,
		Subject:  fmt.Sprintf("Appointment %s is %s", updated.ExternalID, updated.Status),
		Template: notifications.TemplateAppointmentStatus,
		Data:     appointmentData(updated),
	})
	return updated, nil
}

func isVet(actor auth.Actor, appt *models.Appointment) bool {
	return appt.Vet != nil && actor.UserID != uuid.Nil && appt.Vet.UserID == actor.UserID
}
