package adoptions

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Starter hands a persisted application to the fulfillment coordinator.
type Starter interface {
	Start(ctx context.Context, kind enums.TransactionKind, externalID string) (*fulfillment.Submission, error)
}

// Notifier delivers decision messages.
type Notifier interface {
	Send(ctx context.Context, msgs ...notifications.Message)
}

// Service defines adoption application operations.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.AdoptionApplication, error)
	Get(ctx context.Context, actor auth.Actor, externalID string) (*models.AdoptionApplication, error)
	Decide(ctx context.Context, actor auth.Actor, externalID string, decision enums.ApplicationStatus) (*models.AdoptionApplication, error)
}

type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Starter  Starter
	Notifier Notifier
	NewID    idgen.Func
	IDLength int
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	starter  Starter
	notifier Notifier
	ids      fulfillment.IDAllocator
	logg     *logger.Logger
}

// ApplyInput is an adoption request for a listed pet.
type ApplyInput struct {
	ListingID      uuid.UUID
	ApplicantID    uuid.UUID
	ApplicantName  string
	ApplicantEmail string
	ApplicantPhone string
	Address        string
	Message        string
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "adoptions repository required")
	}
	if p.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if p.Starter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment coordinator required")
	}
	if p.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &service{
		repo:     p.Repo,
		tx:       p.Tx,
		starter:  p.Starter,
		notifier: p.Notifier,
		ids:      fulfillment.IDAllocator{NewID: p.NewID, Length: p.IDLength, Logger: p.Logger},
		logg:     p.Logger,
	}, nil
}

// Apply records an application against an available listing and confirms it
// immediately; adoption involves no payment.
func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.AdoptionApplication, error) {
	if input.ListingID == uuid.Nil || input.ApplicantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing and applicant are required")
	}
	if strings.TrimSpace(input.ApplicantEmail) == "" || strings.TrimSpace(input.ApplicantPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "applicant email and phone are required")
	}

	listing, err := s.repo.FindListing(ctx, input.ListingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.Status != enums.ListingStatusAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pet has already been adopted")
	}
	if listing.PosterID == input.ApplicantID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot apply to your own listing")
	}

	app := &models.AdoptionApplication{
		ListingID:      listing.ID,
		ApplicantID:    input.ApplicantID,
		ApplicantName:  strings.TrimSpace(input.ApplicantName),
		ApplicantEmail: strings.TrimSpace(input.ApplicantEmail),
		ApplicantPhone: strings.TrimSpace(input.ApplicantPhone),
		Address:        strings.TrimSpace(input.Address),
		Message:        strings.TrimSpace(input.Message),
		Status:         enums.ApplicationStatusPending,
	}
	externalID, err := s.ids.Insert(ctx, func(id string) error {
		app.ExternalID = id
		return s.repo.CreateApplication(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.starter.Start(ctx, enums.TransactionKindAdoption, externalID); err != nil {
		return nil, err
	}
	return loadApplication(ctx, s.repo, externalID)
}

func (s *service) Get(ctx context.Context, actor auth.Actor, externalID string) (*models.AdoptionApplication, error) {
	app, err := loadApplication(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(app.ApplicantID) && !isPoster(actor, app) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "adoption application not found")
	}
	return app, nil
}

// Decide approves or rejects an application. Approval marks the listing adopted
// in the same database transaction, so at most one application per listing is
// ever approved.
func (s *service) Decide(ctx context.Context, actor auth.Actor, externalID string, decision enums.ApplicationStatus) (*models.AdoptionApplication, error) {
	app, err := s.Get(ctx, actor, externalID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !isPoster(actor, app) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the poster can decide")
	}
	if err := fulfillment.CheckApplicationTransition(app.Status, decision); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if decision == enums.ApplicationStatusApproved {
			adopted, err := repo.MarkListingAdopted(ctx, app.ListingID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark listing adopted")
			}
			if !adopted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "pet has already been adopted")
			}
		}
		applied, err := repo.Transition(ctx, externalID, string(app.Status), string(decision), nil)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "application changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := loadApplication(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithTransaction(ctx, string(enums.TransactionKindAdoption), externalID), "adoption application "+string(decision))
	s.notifier.Send(ctx, notifications.Message{
		To:       updated.ApplicantEmail,
		Subject:  fmt.Sprintf("Your adoption application was %s", decision),
		Template: notifications.TemplateAdoptionStatus,
		Data:     applicationData(updated),
	})
	return updated, nil
}

func isPoster(actor auth.Actor, app *models.AdoptionApplication) bool {
	return app.Listing != nil && actor.UserID != uuid.Nil && app.Listing.PosterID == actor.UserID
}
