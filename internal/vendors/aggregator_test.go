package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:vendors_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, createdAt time.Time, vendorIDs ...uuid.UUID) models.Order {
	t.Helper()
	order := models.Order{
		ExternalID:      uuid.NewString()[:10],
		CustomerID:      uuid.New(),
		CustomerName:    "Rahim",
		CustomerEmail:   "rahim@example.com",
		CustomerPhone:   "01700000000",
		ShippingAddress: "Dhaka",
		PaymentMode:     enums.PaymentModeCash,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		Subtotal:        decimal.NewFromInt(100),
		ShippingCost:    decimal.NewFromInt(60),
		TotalAmount:     decimal.NewFromInt(160),
		CreatedAt:       createdAt,
	}
	for i, vendorID := range vendorIDs {
		order.Items = append(order.Items, models.OrderLineItem{
			Position: i, ProductID: uuid.New(), VendorID: vendorID, Name: "Leash", Quantity: 1, UnitPrice: decimal.NewFromInt(100),
		})
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestAttachIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)
	ctx := context.Background()
	orderID := uuid.New()
	v1, v2 := uuid.New(), uuid.New()

	n, err := agg.Attach(ctx, orderID, []uuid.UUID{v1, v2, v1})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = agg.Attach(ctx, orderID, []uuid.UUID{v2, v1})
	require.NoError(t, err)
	require.Zero(t, n)

	var count int64
	require.NoError(t, db.Model(&models.VendorOrderRef{}).Where("order_id = ?", orderID).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAttachRequiresOrder(t *testing.T) {
	agg := NewAggregator(newTestDB(t))
	_, err := agg.Attach(context.Background(), uuid.Nil, []uuid.UUID{uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListOrdersPaginatesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)
	ctx := context.Background()
	vendor, other := uuid.New(), uuid.New()
	base := time.Now().UTC().Truncate(time.Second)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		o := seedOrder(t, db, base.Add(time.Duration(i)*time.Minute), vendor, other)
		_, err := agg.Attach(ctx, o.ID, []uuid.UUID{vendor, other})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	unrelated := seedOrder(t, db, base, other)
	_, err := agg.Attach(ctx, unrelated.ID, []uuid.UUID{other})
	require.NoError(t, err)

	page, err := agg.ListOrders(ctx, vendor, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, ids[2], page.Items[0].ID)
	require.Len(t, page.Items[0].Items, 1, "only the vendor's own lines are loaded")
	require.NotEmpty(t, page.NextCursor)

	page, err = agg.ListOrders(ctx, vendor, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, ids[0], page.Items[0].ID)
	require.Empty(t, page.NextCursor)
}

func TestResolveVendor(t *testing.T) {
	db := newTestDB(t)
	agg := NewAggregator(db)
	v := models.Vendor{UserID: uuid.New(), Name: "Paws Shop", Email: "shop@example.com"}
	require.NoError(t, db.Create(&v).Error)

	got, err := agg.ResolveVendor(context.Background(), v.UserID)
	require.NoError(t, err)
	require.Equal(t, v.ID, got.ID)

	_, err = agg.ResolveVendor(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestDistinct(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	require.Equal(t, []uuid.UUID{a, b}, Distinct([]uuid.UUID{a, uuid.Nil, b, a}))
}
