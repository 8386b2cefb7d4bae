package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.LedgerEvent{}))
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestService_RecordEvent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	got, err := svc.RecordEvent(ctx, RecordLedgerEventInput{
		Kind:       enums.TransactionKindOrder,
		ExternalID: "ABCD123456",
		Type:       enums.LedgerEventTypePaymentInitiated,
		Amount:     decimal.RequireFromString("1260"),
		Reference:  "sess-1",
	})
	require.NoError(t, err)
	require.NotEqual(t, "", got.ID.String())

	_, err = svc.RecordEvent(ctx, RecordLedgerEventInput{
		Kind:       enums.TransactionKindOrder,
		ExternalID: "ABCD123456",
		Type:       enums.LedgerEventTypePaymentFailed,
		Amount:     decimal.RequireFromString("1260"),
		Detail:     "amount mismatch",
	})
	require.NoError(t, err)

	history, err := svc.History(ctx, enums.TransactionKindOrder, "ABCD123456")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, enums.LedgerEventTypePaymentInitiated, history[0].Type)

	has, err := svc.HasEvent(ctx, enums.TransactionKindOrder, "ABCD123456", enums.LedgerEventTypePaymentFailed)
	require.NoError(t, err)
	require.True(t, has)

	has, err = svc.HasEvent(ctx, enums.TransactionKindAppointment, "ABCD123456", enums.LedgerEventTypePaymentFailed)
	require.NoError(t, err)
	require.False(t, has, "history is scoped by kind")
}

func TestService_RecordEventValidation(t *testing.T) {
	svc := newTestService(t)
	cases := map[string]RecordLedgerEventInput{
		"kind":     {Kind: "cart", ExternalID: "X", Type: enums.LedgerEventTypePaymentFailed},
		"external": {Kind: enums.TransactionKindOrder, Type: enums.LedgerEventTypePaymentFailed},
		"type":     {Kind: enums.TransactionKindOrder, ExternalID: "X", Type: "refund"},
		"amount":   {Kind: enums.TransactionKindOrder, ExternalID: "X", Type: enums.LedgerEventTypePaymentFailed, Amount: decimal.NewFromInt(-1)},
	}
	for name, input := range cases {
		if _, err := svc.RecordEvent(context.Background(), input); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}
