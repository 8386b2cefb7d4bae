package fulfillment

import (
	"context"

	"github.com/pawbazaar/marketplace-backend/pkg/db"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/idgen"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

// MaxIDAttempts bounds external id regeneration on unique-index collisions.
const MaxIDAttempts = 3

// IDAllocator persists records under freshly generated external ids.
type IDAllocator struct {
	NewID  idgen.Func
	Length int
	Logger *logger.Logger
}

// Insert calls create with a new id until it succeeds, fails for another reason,
// or MaxIDAttempts collisions on the external_id index occur. It returns the id
// that was stored.
func (a IDAllocator) Insert(ctx context.Context, create func(externalID string) error) (string, error) {
	newID := a.NewID
	if newID == nil {
		newID = idgen.Generate
	}
	length := a.Length
	if length <= 0 {
		length = idgen.DefaultLength
	}
	logg := a.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	for attempt := 1; attempt <= MaxIDAttempts; attempt++ {
		id, err := newID(length)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate external id")
		}
		err = create(id)
		if err == nil {
			return id, nil
		}
		if !db.IsUniqueViolation(err, "external_id") {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert record")
		}
		logg.Warn(logg.WithField(ctx, "attempt", attempt), "external id collision")
	}
	return "", pkgerrors.Newf(pkgerrors.CodeInternal, "could not allocate a unique external id after %d attempts", MaxIDAttempts)
}
