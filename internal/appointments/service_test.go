package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/inventory"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/internal/vendors"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	"github.com/pawbazaar/marketplace-backend/pkg/sslcommerz"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type stubGateway struct {
	amount decimal.Decimal
}

func (g *stubGateway) Initiate(_ context.Context, req sslcommerz.InitiateRequest) (*sslcommerz.Session, error) {
	g.amount = req.Amount
	return &sslcommerz.Session{SessionRef: "sess-" + req.ExternalID, RedirectURL: "https://gw.example/" + req.ExternalID}, nil
}

func (g *stubGateway) Validate(_ context.Context, valID string) (*sslcommerz.Validation, error) {
	return &sslcommerz.Validation{Status: sslcommerz.StatusValid, ValID: valID, TranID: valID[len("val-"):], Amount: g.amount}, nil
}

type recordingNotifier struct {
	sent []notifications.Message
}

func (n *recordingNotifier) Send(_ context.Context, msgs ...notifications.Message) {
	n.sent = append(n.sent, msgs...)
}

type fixture struct {
	svc      Service
	coord    *fulfillment.Coordinator
	gateway  *stubGateway
	notifier *recordingNotifier
	vet      models.Vet
	vetUser  auth.Actor
	customer auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:appointments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	f := &fixture{gateway: &stubGateway{}, notifier: &recordingNotifier{}}
	f.vetUser = auth.Actor{UserID: uuid.New(), Role: enums.RoleVet}
	f.customer = auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	f.vet = models.Vet{UserID: f.vetUser.UserID, Name: "Sultana", Email: "vet@example.com", Fee: decimal.NewFromInt(800)}
	require.NoError(t, conn.Create(&f.vet).Error)

	repo := NewRepository(conn)
	coord, err := fulfillment.NewCoordinator(fulfillment.Params{
		Gateway:         f.gateway,
		Notifier:        f.notifier,
		Stock:           inventory.NewLedger(conn, logger.Nop(), nil),
		Vendors:         vendors.NewAggregator(conn),
		Logger:          logger.Nop(),
		FrontendBaseURL: "https://shop.example",
		PublicBaseURL:   "https://api.example",
	})
	require.NoError(t, err)
	coord.Register(NewDomain(repo))
	f.coord = coord

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Starter:  coord,
		Notifier: f.notifier,
		IDLength: 10,
		Now:      func() time.Time { return now },
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) input(mode enums.PaymentMode) BookInput {
	return BookInput{
		VetID:         f.vet.ID,
		CustomerID:    f.customer.UserID,
		CustomerName:  "Tanvir",
		CustomerEmail: "tanvir@example.com",
		CustomerPhone: "01600000000",
		PetName:       "Bruno",
		Reason:        "vaccination",
		ScheduledAt:   now.Add(48 * time.Hour),
		PaymentMode:   mode,
	}
}

func TestBookCashConfirmsWithVetFee(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Book(context.Background(), f.input(enums.PaymentModeCash))
	require.NoError(t, err)
	require.Empty(t, res.RedirectURL)

	appt := res.Appointment
	require.NotNil(t, appt.ConfirmedAt)
	require.True(t, appt.Fee.Equal(decimal.NewFromInt(800)))
	require.Equal(t, enums.PaymentStatusUnpaid, appt.PaymentStatus)

	require.Len(t, f.notifier.sent, 2)
	require.Equal(t, "vet@example.com", f.notifier.sent[0].To)
	require.Equal(t, notifications.TemplateAppointmentVet, f.notifier.sent[0].Template)
	require.Equal(t, "Sultana", f.notifier.sent[0].Data["VetName"])
	require.Equal(t, "tanvir@example.com", f.notifier.sent[1].To)
}

func TestBookOnlineConfirmsOnCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Book(ctx, f.input(enums.PaymentModeOnline))
	require.NoError(t, err)
	externalID := res.Appointment.ExternalID
	require.Equal(t, "https://gw.example/"+externalID, res.RedirectURL)
	require.Nil(t, res.Appointment.ConfirmedAt)
	require.True(t, f.gateway.amount.Equal(decimal.NewFromInt(800)))
	require.Empty(t, f.notifier.sent)

	redirect := f.coord.HandlePaymentCallback(ctx, enums.TransactionKindAppointment,
		fulfillment.Callback{Status: "VALID", ValID: "val-" + externalID, ValueA: externalID})
	require.Contains(t, redirect, "status=success")
	require.Contains(t, redirect, "type=appointment")

	appt, err := f.svc.Get(ctx, f.customer, externalID)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, appt.PaymentStatus)
	require.NotNil(t, appt.ConfirmedAt)
	require.Len(t, f.notifier.sent, 2)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.input(enums.PaymentModeCash)
	past.ScheduledAt = now.Add(-time.Hour)
	_, err := f.svc.Book(ctx, past)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	none := f.input(enums.PaymentModeNone)
	_, err = f.svc.Book(ctx, none)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	unknown := f.input(enums.PaymentModeCash)
	unknown.VetID = uuid.New()
	_, err = f.svc.Book(ctx, unknown)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatusByVet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Book(ctx, f.input(enums.PaymentModeCash))
	require.NoError(t, err)
	externalID := res.Appointment.ExternalID

	_, err = f.svc.UpdateStatus(ctx, f.customer, externalID, enums.AppointmentStatusConfirmed)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	appt, err := f.svc.UpdateStatus(ctx, f.vetUser, externalID, enums.AppointmentStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, enums.AppointmentStatusConfirmed, appt.Status)

	appt, err = f.svc.UpdateStatus(ctx, f.vetUser, externalID, enums.AppointmentStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, appt.PaymentStatus)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	require.Equal(t, notifications.TemplateAppointmentStatus, last.Template)
	require.Equal(t, "completed", last.Data["Status"])

	_, err = f.svc.UpdateStatus(ctx, f.vetUser, externalID, enums.AppointmentStatusCancelled)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, fulfillment.ReasonTerminal, fulfillment.ConflictReason(err))
}

func TestGetHidesAppointmentFromOtherVets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Book(ctx, f.input(enums.PaymentModeCash))
	require.NoError(t, err)

	other := auth.Actor{UserID: uuid.New(), Role: enums.RoleVet}
	_, err = f.svc.Get(ctx, other, res.Appointment.ExternalID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	admin := auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	_, err = f.svc.Get(ctx, admin, res.Appointment.ExternalID)
	require.NoError(t, err)
}

func TestVetCannotConfirmUnpaidOnlineAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Book(ctx, f.input(enums.PaymentModeOnline))
	require.NoError(t, err)
	externalID := res.Appointment.ExternalID

	_, err = f.svc.UpdateStatus(ctx, f.vetUser, externalID, enums.AppointmentStatusConfirmed)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, fulfillment.ReasonUnconfirmed, fulfillment.ConflictReason(err))

	redirect := f.coord.HandlePaymentCallback(ctx, enums.TransactionKindAppointment,
		fulfillment.Callback{Status: "VALID", ValID: "val-" + externalID, ValueA: externalID})
	require.Contains(t, redirect, "status=success")

	appt, err := f.svc.UpdateStatus(ctx, f.vetUser, externalID, enums.AppointmentStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, enums.AppointmentStatusConfirmed, appt.Status)
	require.Equal(t, enums.PaymentStatusPaid, appt.PaymentStatus)
}

func TestUnpaidOnlineAppointmentCanBeCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Book(ctx, f.input(enums.PaymentModeOnline))
	require.NoError(t, err)

	appt, err := f.svc.UpdateStatus(ctx, f.vetUser, res.Appointment.ExternalID, enums.AppointmentStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, enums.AppointmentStatusCancelled, appt.Status)
}
