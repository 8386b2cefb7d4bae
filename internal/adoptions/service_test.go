package adoptions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/inventory"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/internal/vendors"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/db"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

type recordingNotifier struct {
	sent []notifications.Message
}

func (n *recordingNotifier) Send(_ context.Context, msgs ...notifications.Message) {
	n.sent = append(n.sent, msgs...)
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	notifier *recordingNotifier
	listing  models.AdoptionListing
	poster   auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:adoptions_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	f := &fixture{db: conn, notifier: &recordingNotifier{}}
	f.poster = auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	f.listing = models.AdoptionListing{
		PosterID:    f.poster.UserID,
		PosterName:  "Rahim",
		PosterEmail: "rahim@example.com",
		PetName:     "Mishti",
		Species:     "cat",
		Status:      enums.ListingStatusAvailable,
	}
	require.NoError(t, conn.Create(&f.listing).Error)

	repo := NewRepository(conn)
	coord, err := fulfillment.NewCoordinator(fulfillment.Params{
		Notifier:        f.notifier,
		Stock:           inventory.NewLedger(conn, logger.Nop(), nil),
		Vendors:         vendors.NewAggregator(conn),
		Logger:          logger.Nop(),
		FrontendBaseURL: "https://shop.example",
	})
	require.NoError(t, err)
	coord.Register(NewDomain(repo, "admin@example.com"))

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       db.NewFromGorm(conn),
		Starter:  coord,
		Notifier: f.notifier,
		IDLength: 10,
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) apply(t *testing.T, email string) (*models.AdoptionApplication, auth.Actor) {
	t.Helper()
	applicant := auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	app, err := f.svc.Apply(context.Background(), ApplyInput{
		ListingID:      f.listing.ID,
		ApplicantID:    applicant.UserID,
		ApplicantName:  "Nadia",
		ApplicantEmail: email,
		ApplicantPhone: "01700000000",
		Address:        "Dhaka",
		Message:        "I have a garden",
	})
	require.NoError(t, err)
	return app, applicant
}

func (f *fixture) listingStatus(t *testing.T) enums.ListingStatus {
	t.Helper()
	var l models.AdoptionListing
	require.NoError(t, f.db.First(&l, "id = ?", f.listing.ID).Error)
	return l.Status
}

func TestApplyConfirmsAndNotifiesPosterAndApplicant(t *testing.T) {
	f := newFixture(t)
	app, _ := f.apply(t, "nadia@example.com")

	require.Len(t, app.ExternalID, 10)
	require.NotNil(t, app.ConfirmedAt)
	require.Equal(t, enums.ApplicationStatusPending, app.Status)

	templates := map[string]string{}
	for _, m := range f.notifier.sent {
		templates[m.To] = m.Template
	}
	require.Equal(t, notifications.TemplateAdoptionPoster, templates["rahim@example.com"])
	require.Equal(t, notifications.TemplateAdoptionApplicant, templates["nadia@example.com"])
	require.Equal(t, notifications.TemplateAdminGeneric, templates["admin@example.com"])
}

func TestApplyRejectsOwnListing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(context.Background(), ApplyInput{
		ListingID:      f.listing.ID,
		ApplicantID:    f.poster.UserID,
		ApplicantEmail: "rahim@example.com",
		ApplicantPhone: "01800000000",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestApplyUnknownListing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(context.Background(), ApplyInput{
		ListingID:      uuid.New(),
		ApplicantID:    uuid.New(),
		ApplicantEmail: "x@example.com",
		ApplicantPhone: "01800000000",
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetHidesApplicationFromStrangers(t *testing.T) {
	f := newFixture(t)
	app, applicant := f.apply(t, "nadia@example.com")
	ctx := context.Background()

	_, err := f.svc.Get(ctx, applicant, app.ExternalID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, f.poster, app.ExternalID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, auth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}, app.ExternalID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDecideApproveAdoptsListingOnce(t *testing.T) {
	f := newFixture(t)
	first, _ := f.apply(t, "nadia@example.com")
	second, _ := f.apply(t, "karim@example.com")
	ctx := context.Background()

	approved, err := f.svc.Decide(ctx, f.poster, first.ExternalID, enums.ApplicationStatusApproved)
	require.NoError(t, err)
	require.Equal(t, enums.ApplicationStatusApproved, approved.Status)
	require.Equal(t, enums.ListingStatusAdopted, f.listingStatus(t))

	last := f.notifier.sent[len(f.notifier.sent)-1]
	require.Equal(t, "nadia@example.com", last.To)
	require.Equal(t, notifications.TemplateAdoptionStatus, last.Template)

	_, err = f.svc.Decide(ctx, f.poster, second.ExternalID, enums.ApplicationStatusApproved)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var stored models.AdoptionApplication
	require.NoError(t, f.db.First(&stored, "external_id = ?", second.ExternalID).Error)
	require.Equal(t, enums.ApplicationStatusPending, stored.Status, "failed approval must roll back")

	rejected, err := f.svc.Decide(ctx, f.poster, second.ExternalID, enums.ApplicationStatusRejected)
	require.NoError(t, err)
	require.Equal(t, enums.ApplicationStatusRejected, rejected.Status)
}

func TestDecideRequiresPosterOrAdmin(t *testing.T) {
	f := newFixture(t)
	app, applicant := f.apply(t, "nadia@example.com")
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, applicant, app.ExternalID, enums.ApplicationStatusApproved)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := auth.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	_, err = f.svc.Decide(ctx, admin, app.ExternalID, enums.ApplicationStatusRejected)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, admin, app.ExternalID, enums.ApplicationStatusApproved)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, enums.ListingStatusAvailable, f.listingStatus(t))
}

func TestDomainRefusesPaymentSessions(t *testing.T) {
	f := newFixture(t)
	d := NewDomain(NewRepository(f.db), "")
	err := d.AttachSession(context.Background(), "X", "sess")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
