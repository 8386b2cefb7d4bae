package adoptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

// Domain adapts adoption applications to the fulfillment coordinator. They carry
// no payment and no shipment, so confirmation only notifies.
type Domain struct {
	repo       Repository
	adminEmail string
}

func NewDomain(repo Repository, adminEmail string) *Domain {
	return &Domain{repo: repo, adminEmail: adminEmail}
}

func (d *Domain) Kind() enums.TransactionKind {
	return enums.TransactionKindAdoption
}

func (d *Domain) Load(ctx context.Context, externalID string) (*fulfillment.Transaction, error) {
	app, err := loadApplication(ctx, d.repo, externalID)
	if err != nil {
		return nil, err
	}
	return &fulfillment.Transaction{
		Kind:          enums.TransactionKindAdoption,
		ID:            app.ID,
		ExternalID:    app.ExternalID,
		Status:        string(app.Status),
		PaymentMode:   enums.PaymentModeNone,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Amount:        decimal.Zero,
		Label:         "Adoption " + app.ExternalID,
		Customer: fulfillment.Party{
			Name:    app.ApplicantName,
			Email:   app.ApplicantEmail,
			Phone:   app.ApplicantPhone,
			Address: app.Address,
		},
		Confirmed: app.ConfirmedAt != nil,
	}, nil
}

func (d *Domain) AttachSession(context.Context, string, string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "adoption applications take no payment")
}

func (d *Domain) Claim(ctx context.Context, externalID string, _ bool) (bool, error) {
	return d.repo.Claim(ctx, externalID, false)
}

func (d *Domain) Discard(ctx context.Context, externalID string) (bool, error) {
	return d.repo.Discard(ctx, externalID)
}

func (d *Domain) Messages(ctx context.Context, tx *fulfillment.Transaction) ([]notifications.Message, error) {
	app, err := loadApplication(ctx, d.repo, tx.ExternalID)
	if err != nil {
		return nil, err
	}
	if app.Listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "application has no listing")
	}
	data := applicationData(app)
	msgs := []notifications.Message{
		{
			To:       app.Listing.PosterEmail,
			Subject:  fmt.Sprintf("New adoption request for %s", app.Listing.PetName),
			Template: notifications.TemplateAdoptionPoster,
			Data:     data,
		},
		{
			To:       app.ApplicantEmail,
			Subject:  fmt.Sprintf("Your application for %s was sent", app.Listing.PetName),
			Template: notifications.TemplateAdoptionApplicant,
			Data:     data,
		},
	}
	if d.adminEmail != "" {
		msgs = append(msgs, notifications.Message{
			To:       d.adminEmail,
			Subject:  "Adoption application " + app.ExternalID,
			Template: notifications.TemplateAdminGeneric,
			Data: map[string]any{
				"Kind":       "Adoption application",
				"ExternalID": app.ExternalID,
				"Summary":    fmt.Sprintf("%s applied for %s", app.ApplicantName, app.Listing.PetName),
			},
		})
	}
	return msgs, nil
}

func loadApplication(ctx context.Context, repo Repository, externalID string) (*models.AdoptionApplication, error) {
	app, err := repo.FindByExternalID(ctx, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "adoption application not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load adoption application")
	}
	return app, nil
}

func applicationData(app *models.AdoptionApplication) map[string]any {
	data := map[string]any{
		"Name":       app.ApplicantName,
		"Email":      app.ApplicantEmail,
		"Phone":      app.ApplicantPhone,
		"ExternalID": app.ExternalID,
		"Message":    app.Message,
		"Status":     string(app.Status),
	}
	if app.Listing != nil {
		data["PetName"] = app.Listing.PetName
		data["PosterName"] = app.Listing.PosterName
	}
	return data
}
