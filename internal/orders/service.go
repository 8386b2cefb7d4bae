package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawbazaar/marketplace-backend/internal/fulfillment"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/auth"
	"github.com/pawbazaar/marketplace-backend/pkg/db/models"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/idgen"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
)

// Coordinator is the part of the fulfillment coordinator orders rely on.
type Coordinator interface {
	Start(ctx context.Context, kind enums.TransactionKind, externalID string) (*fulfillment.Submission, error)
	Redispatch(ctx context.Context, kind enums.TransactionKind, externalID string) (*fulfillment.Transaction, error)
}

// TrackingClient reads the courier's delivery status.
type TrackingClient interface {
	GetStatus(ctx context.Context, trackingCode string) (string, error)
}

// Notifier delivers status messages.
type Notifier interface {
	Send(ctx context.Context, msgs ...notifications.Message)
}

// Service defines order operations for customers and admins.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error)
	Cancel(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error)
	Return(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, externalID string, status enums.OrderStatus) (*models.Order, error)
	Dispatch(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error)
	RefreshTracking(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo        Repository
	Coordinator Coordinator
	Tracking    TrackingClient
	Notifier    Notifier
	NewID       idgen.Func
	IDLength    int
	ShippingFee decimal.Decimal
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	coord       Coordinator
	tracking    TrackingClient
	notifier    Notifier
	ids         fulfillment.IDAllocator
	shippingFee decimal.Decimal
	logg        *logger.Logger
}

// ItemInput is one requested product quantity.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput carries a checkout submission.
type CreateInput struct {
	CustomerID      uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	PaymentMode     enums.PaymentMode
	Items           []ItemInput
}

// CreateResult is the persisted order plus the gateway redirect for online payment.
type CreateResult struct {
	Order       *models.Order `json:"order"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if p.Coordinator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment coordinator required")
	}
	if p.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &service{
		repo:        p.Repo,
		coord:       p.Coordinator,
		tracking:    p.Tracking,
		notifier:    p.Notifier,
		ids:         fulfillment.IDAllocator{NewID: p.NewID, Length: p.IDLength, Logger: p.Logger},
		shippingFee: p.ShippingFee,
		logg:        p.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	order, err := s.buildOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, order); err != nil {
		return nil, err
	}

	sub, err := s.coord.Start(ctx, enums.TransactionKindOrder, order.ExternalID)
	if err != nil {
		return nil, err
	}
	stored, err := loadOrder(ctx, s.repo, order.ExternalID)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Order: stored, RedirectURL: sub.RedirectURL}, nil
}

func validateCreate(input CreateInput) error {
	switch {
	case input.CustomerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "customer is required")
	case strings.TrimSpace(input.CustomerEmail) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	case strings.TrimSpace(input.CustomerPhone) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	case strings.TrimSpace(input.ShippingAddress) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	case input.PaymentMode != enums.PaymentModeOnline && input.PaymentMode != enums.PaymentModeCash:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment mode %q", input.PaymentMode)
	case len(input.Items) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "each item needs a product and a positive quantity")
		}
	}
	return nil
}

// buildOrder snapshots product name and price into line items and totals the order.
func (s *service) buildOrder(ctx context.Context, input CreateInput) (*models.Order, error) {
	wanted := make(map[uuid.UUID]int, len(input.Items))
	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if _, seen := wanted[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
	}

	products, err := s.repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsPublished {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": id})
		}
		if p.Stock < wanted[id] {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"product_id": id, "available": p.Stock, "requested": wanted[id]})
		}
	}

	order := &models.Order{
		CustomerID:      input.CustomerID,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		PaymentMode:     input.PaymentMode,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		ShippingCost:    s.shippingFee,
	}
	subtotal := decimal.Zero
	for i, item := range input.Items {
		p := byID[item.ProductID]
		line := models.OrderLineItem{
			Position:  i,
			ProductID: p.ID,
			VendorID:  p.VendorID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		}
		subtotal = subtotal.Add(line.LineTotal())
		order.Items = append(order.Items, line)
	}
	order.Subtotal = subtotal
	order.TotalAmount = subtotal.Add(s.shippingFee)
	return order, nil
}

func (s *service) persist(ctx context.Context, order *models.Order) error {
	_, err := s.ids.Insert(ctx, func(externalID string) error {
		order.ExternalID = externalID
		return s.repo.CreateOrder(ctx, order)
	})
	return err
}

func (s *service) Get(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error) {
	order, err := loadOrder(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.CustomerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error) {
	return s.transition(ctx, actor, externalID, enums.OrderStatusCancelled)
}

func (s *service) Return(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error) {
	return s.transition(ctx, actor, externalID, enums.OrderStatusReturned)
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, externalID string, status enums.OrderStatus) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.transition(ctx, actor, externalID, status)
}

// transition applies one state-machine move. Delivering an unpaid order also
// marks it paid in the same write.
func (s *service) transition(ctx context.Context, actor auth.Actor, externalID string, to enums.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, actor, externalID)
	if err != nil {
		return nil, err
	}
	if err := fulfillment.CheckOrderTransition(order.Status, to, order.ConfirmedAt != nil); err != nil {
		return nil, err
	}

	var payment *enums.PaymentStatus
	if to == enums.OrderStatusDelivered && order.PaymentStatus != enums.PaymentStatusPaid {
		paid := enums.PaymentStatusPaid
		payment = &paid
	}
	applied, err := s.repo.Transition(ctx, externalID, string(order.Status), string(to), payment)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently").
			WithDetails(map[string]any{"from": string(order.Status), "to": string(to)})
	}

	updated, err := loadOrder(ctx, s.repo, externalID)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"external_id": externalID,
		"from":        string(order.Status),
		"to":          string(to),
	}), "order status changed")
	s.notifier.Send(ctx, notifications.Message{
		To:       updated.CustomerEmail,
		Subject:  fmt.Sprintf("Order %s is %s", updated.ExternalID, updated.Status),
		Template: notifications.TemplateOrderStatus,
		Data:     orderData(updated),
	})
	return updated, nil
}

func (s *service) Dispatch(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if _, err := s.coord.Redispatch(ctx, enums.TransactionKindOrder, externalID); err != nil {
		return nil, err
	}
	return loadOrder(ctx, s.repo, externalID)
}

func (s *service) RefreshTracking(ctx context.Context, actor auth.Actor, externalID string) (*models.Order, error) {
	order, err := s.Get(ctx, actor, externalID)
	if err != nil {
		return nil, err
	}
	if order.TrackingCode == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been handed to the courier")
	}
	if s.tracking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "courier is disabled")
	}
	status, err := s.tracking.GetStatus(ctx, *order.TrackingCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "courier status lookup failed")
	}
	if err := s.repo.UpdateCourierStatus(ctx, externalID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store courier status")
	}
	order.CourierStatus = &status
	return order, nil
}
