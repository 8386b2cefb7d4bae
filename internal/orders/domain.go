package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
)

// Domain adapts orders to the fulfillment coordinator.
type Domain struct {
	repo       Repository
	adminEmail string
}

func NewDomain(repo Repository, adminEmail string) *Domain {
	return &Domain{repo: repo, adminEmail: adminEmail}
}

func (d *Domain) Kind() enums.TransactionKind {
	return enums.TransactionKindOrder
}

func (d *Domain) Load(ctx context.Context, externalID string) (*fulfillment.Transaction, error) {
	order, err := loadOrder(ctx, d.repo, externalID)
	if err != nil {
		return nil, err
	}
	return toTransaction(order), nil
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

// Finalize persists the courier consignment recorded on tx.
func (d *Domain) Finalize(ctx context.Context, tx *fulfillment.Transaction) error {
	if tx.Consignment == nil {
		return nil
	}
	stored, err := d.repo.SetConsignment(ctx, tx.ExternalID, tx.Consignment.ID, tx.Consignment.TrackingCode, tx.Consignment.Status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store consignment")
	}
	if !stored {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already has a consignment")
	}
	return nil
}

// Messages addresses the customer, every vendor with items in the order, and the
// platform admin. Paid orders carry an invoice attachment.
func (d *Domain) Messages(ctx context.Context, tx *fulfillment.Transaction) ([]notifications.Message, error) {
	order, err := loadOrder(ctx, d.repo, tx.ExternalID)
	if err != nil {
		return nil, err
	}
	data := orderData(order)
	if tx.Consignment != nil {
		data["TrackingCode"] = tx.Consignment.TrackingCode
	}

	customer := notifications.Message{
		To:       order.CustomerEmail,
		Subject:  fmt.Sprintf("Order %s confirmed", order.ExternalID),
		Template: notifications.TemplateOrderCustomer,
		Data:     data,
	}
	if tx.Paid() {
		customer.Attachments = []notifications.Attachment{{
			Filename:    "invoice-" + order.ExternalID + ".html",
			ContentType: "text/html",
			Template:    notifications.TemplateInvoice,
			Data:        data,
		}}
	}
	msgs := []notifications.Message{customer}

	vendors, err := d.repo.FindVendors(ctx, tx.VendorIDs())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendors")
	}
	for _, vendor := range vendors {
		msgs = append(msgs, notifications.Message{
			To:       vendor.Email,
			Subject:  fmt.Sprintf("New order %s", order.ExternalID),
			Template: notifications.TemplateOrderVendor,
			Data: map[string]any{
				"Name":       vendor.Name,
				"ExternalID": order.ExternalID,
				"Items":      itemsForVendor(order.Items, vendor.ID),
			},
		})
	}

	if d.adminEmail != "" {
		msgs = append(msgs, notifications.Message{
			To:       d.adminEmail,
			Subject:  fmt.Sprintf("Order %s placed", order.ExternalID),
			Template: notifications.TemplateOrderAdmin,
			Data:     data,
		})
	}
	return msgs, nil
}

func loadOrder(ctx context.Context, repo Repository, externalID string) (*models.Order, error) {
	order, err := repo.FindByExternalID(ctx, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func toTransaction(order *models.Order) *fulfillment.Transaction {
	tx := &fulfillment.Transaction{
		Kind:          enums.TransactionKindOrder,
		ID:            order.ID,
		ExternalID:    order.ExternalID,
		Status:        string(order.Status),
		PaymentMode:   order.PaymentMode,
		PaymentStatus: order.PaymentStatus,
		Amount:        order.TotalAmount,
		Label:         "Order " + order.ExternalID,
		Customer: fulfillment.Party{
			Name:    order.CustomerName,
			Email:   order.CustomerEmail,
			Phone:   order.CustomerPhone,
			Address: order.ShippingAddress,
		},
		Confirmed: order.ConfirmedAt != nil,
		Shipment: &fulfillment.Shipment{
			RecipientName:    order.CustomerName,
			RecipientPhone:   order.CustomerPhone,
			RecipientAddress: order.ShippingAddress,
		},
	}
	for _, item := range order.Items {
		tx.LineItems = append(tx.LineItems, fulfillment.LineItem{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	if order.ConsignmentID != nil {
		tx.Consignment = &fulfillment.Consignment{ID: *order.ConsignmentID}
		if order.TrackingCode != nil {
			tx.Consignment.TrackingCode = *order.TrackingCode
		}
		if order.CourierStatus != nil {
			tx.Consignment.Status = *order.CourierStatus
		}
	}
	return tx
}

func orderData(order *models.Order) map[string]any {
	data := map[string]any{
		"Name":        order.CustomerName,
		"ExternalID":  order.ExternalID,
		"Address":     order.ShippingAddress,
		"Items":       order.Items,
		"Subtotal":    order.Subtotal.StringFixed(2),
		"Shipping":    order.ShippingCost.StringFixed(2),
		"Total":       order.TotalAmount.StringFixed(2),
		"PaymentMode": string(order.PaymentMode),
		"Paid":        order.PaymentStatus == enums.PaymentStatusPaid,
		"Status":      string(order.Status),
	}
	if order.TrackingCode != nil {
		data["TrackingCode"] = *order.TrackingCode
	}
	return data
}

func itemsForVendor(items []models.OrderLineItem, vendorID uuid.UUID) []models.OrderLineItem {
	var out []models.OrderLineItem
	for _, item := range items {
		if item.VendorID == vendorID {
			out = append(out, item)
		}
	}
	return out
}
