package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pawbazaar/marketplace-backend/internal/inventory"
	"github.com/pawbazaar/marketplace-backend/internal/ledger"
	"github.com/pawbazaar/marketplace-backend/internal/notifications"
	"github.com/pawbazaar/marketplace-backend/pkg/enums"
	pkgerrors "github.com/pawbazaar/marketplace-backend/pkg/errors"
	"github.com/pawbazaar/marketplace-backend/pkg/logger"
	"github.com/pawbazaar/marketplace-backend/pkg/metrics"
	"github.com/pawbazaar/marketplace-backend/pkg/sslcommerz"
	"github.com/pawbazaar/marketplace-backend/pkg/steadfast"
)

const (
	stepVendors   = "vendor_fanout"
	stepInventory = "inventory"
	stepCourier   = "courier"
	stepNotify    = "notify"
	stepFinalize  = "finalize"
)

// Gateway is the hosted payment provider.
type Gateway interface {
	Initiate(ctx context.Context, req sslcommerz.InitiateRequest) (*sslcommerz.Session, error)
	Validate(ctx context.Context, valID string) (*sslcommerz.Validation, error)
}

// Courier books parcel pickups.
type Courier interface {
	CreateConsignment(ctx context.Context, req steadfast.ConsignmentRequest) (*steadfast.ConsignmentResult, error)
}

// Notifier delivers messages without reporting failures.
type Notifier interface {
	Send(ctx context.Context, msgs ...notifications.Message)
}

// StockLedger removes sold quantities from products.
type StockLedger interface {
	DecrementLines(ctx context.Context, lines []inventory.Line) ([]inventory.Result, error)
}

// VendorLinker records which vendors take part in an order.
type VendorLinker interface {
	Attach(ctx context.Context, orderID uuid.UUID, vendorIDs []uuid.UUID) (int, error)
}

// ReplayGuard detects repeated gateway callbacks.
type ReplayGuard interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Params wires a Coordinator. Courier, Guard, Ledger and Metrics are optional.
type Params struct {
	Gateway         Gateway
	Courier         Courier
	Notifier        Notifier
	Stock           StockLedger
	Vendors         VendorLinker
	Guard           ReplayGuard
	Ledger          ledger.Service
	Metrics         *metrics.FulfillmentMetrics
	Logger          *logger.Logger
	FrontendBaseURL string
	PublicBaseURL   string
}

// Submission is the outcome of starting a transaction.
type Submission struct {
	ExternalID  string       `json:"external_id"`
	RedirectURL string       `json:"redirect_url,omitempty"`
	Transaction *Transaction `json:"-"`
}

// Coordinator drives every transaction kind from submission through confirmation.
type Coordinator struct {
	gateway     Gateway
	courier     Courier
	notifier    Notifier
	stock       StockLedger
	vendors     VendorLinker
	guard       ReplayGuard
	ledger      ledger.Service
	metrics     *metrics.FulfillmentMetrics
	logg        *logger.Logger
	frontendURL string
	publicURL   string

	mu      sync.RWMutex
	domains map[enums.TransactionKind]Domain
}

func NewCoordinator(p Params) (*Coordinator, error) {
	if p.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if p.Stock == nil {
		return nil, errors.New("stock ledger is required")
	}
	if p.Vendors == nil {
		return nil, errors.New("vendor linker is required")
	}
	if strings.TrimSpace(p.FrontendBaseURL) == "" {
		return nil, errors.New("frontend base url is required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Coordinator{
		gateway:     p.Gateway,
		courier:     p.Courier,
		notifier:    p.Notifier,
		stock:       p.Stock,
		vendors:     p.Vendors,
		guard:       p.Guard,
		ledger:      p.Ledger,
		metrics:     p.Metrics,
		logg:        p.Logger,
		frontendURL: strings.TrimRight(p.FrontendBaseURL, "/"),
		publicURL:   strings.TrimRight(p.PublicBaseURL, "/"),
		domains:     make(map[enums.TransactionKind]Domain),
	}, nil
}

// Register makes a domain reachable by its kind. Registering a kind twice replaces it.
func (c *Coordinator) Register(d Domain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domains[d.Kind()] = d
}

func (c *Coordinator) domain(kind enums.TransactionKind) (Domain, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.domains[kind]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "unknown transaction kind %q", kind)
	}
	return d, nil
}

// Start continues a freshly persisted pending record. Online payments open a
// gateway session and return its redirect; every other mode confirms now.
func (c *Coordinator) Start(ctx context.Context, kind enums.TransactionKind, externalID string) (*Submission, error) {
	d, err := c.domain(kind)
	if err != nil {
		return nil, err
	}
	ctx = c.logg.WithTransaction(ctx, string(kind), externalID)

	tx, err := d.Load(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !tx.PaymentMode.IsOnline() {
		confirmed, err := c.confirm(ctx, d, externalID, false)
		if err != nil {
			return nil, err
		}
		return &Submission{ExternalID: externalID, Transaction: confirmed}, nil
	}

	if c.gateway == nil {
		c.discard(ctx, d, tx, "payment gateway not configured")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "online payment is unavailable")
	}
	session, err := c.gateway.Initiate(ctx, c.initiateRequest(tx))
	if err != nil {
		c.logg.Error(ctx, "payment initiation failed", err)
		c.record(ctx, tx, enums.LedgerEventTypePaymentFailed, "", "initiation: "+err.Error())
		c.discard(ctx, d, tx, "payment initiation failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	if err := d.AttachSession(ctx, externalID, session.SessionRef); err != nil {
		return nil, err
	}
	c.record(ctx, tx, enums.LedgerEventTypePaymentInitiated, session.SessionRef, "")
	c.logg.Info(ctx, "payment session opened")
	return &Submission{ExternalID: externalID, RedirectURL: session.RedirectURL, Transaction: tx}, nil
}

func (c *Coordinator) initiateRequest(tx *Transaction) sslcommerz.InitiateRequest {
	callback := fmt.Sprintf("%s/api/v1/payments/%s/callback", c.publicURL, tx.Kind)
	items := 0
	for _, item := range tx.LineItems {
		items += item.Quantity
	}
	if items == 0 {
		items = 1
	}
	return sslcommerz.InitiateRequest{
		Amount:          tx.Amount,
		ExternalID:      tx.ExternalID,
		ProductLabel:    tx.Label,
		ProductCategory: string(tx.Kind),
		Customer: sslcommerz.Customer{
			Name:  tx.Customer.Name,
			Email: tx.Customer.Email,
			Phone: tx.Customer.Phone,
		},
		Callbacks:       sslcommerz.Callbacks{Success: callback, Fail: callback, Cancel: callback},
		ShippingAddress: tx.Customer.Address,
		Phone:           tx.Customer.Phone,
		ItemCount:       items,
	}
}

// Confirm moves a pending record to confirmed and runs the fulfillment steps.
// Only the caller that wins the claim runs them; later calls return the stored
// transaction unchanged.
func (c *Coordinator) Confirm(ctx context.Context, kind enums.TransactionKind, externalID string, paid bool) (*Transaction, error) {
	d, err := c.domain(kind)
	if err != nil {
		return nil, err
	}
	return c.confirm(c.logg.WithTransaction(ctx, string(kind), externalID), d, externalID, paid)
}

func (c *Coordinator) confirm(ctx context.Context, d Domain, externalID string, paid bool) (*Transaction, error) {
	claimed, err := d.Claim(ctx, externalID, paid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim transaction")
	}
	tx, err := d.Load(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		c.logg.Debug(ctx, "transaction already confirmed")
		return tx, nil
	}

	c.metrics.IncConfirmation(string(tx.Kind))
	c.fulfil(ctx, d, tx)
	c.logg.Info(ctx, "transaction confirmed")
	return tx, nil
}

func (c *Coordinator) fulfil(ctx context.Context, d Domain, tx *Transaction) {
	if vendorIDs := tx.VendorIDs(); len(vendorIDs) > 0 {
		c.step(ctx, stepVendors, func() error {
			_, err := c.vendors.Attach(ctx, tx.ID, vendorIDs)
			return err
		})
	}
	if len(tx.LineItems) > 0 {
		c.step(ctx, stepInventory, func() error {
			_, err := c.stock.DecrementLines(ctx, inventory.Merge(stockLines(tx.LineItems)))
			return err
		})
	}
	if tx.Shipment != nil && c.courier != nil {
		c.step(ctx, stepCourier, func() error {
			return c.dispatch(ctx, tx)
		})
	}
	c.step(ctx, stepNotify, func() error {
		msgs, err := d.Messages(ctx, tx)
		if err != nil {
			return err
		}
		c.notifier.Send(ctx, msgs...)
		return nil
	})
	if finalizer, ok := d.(Finalizer); ok && tx.Consignment != nil {
		c.step(ctx, stepFinalize, func() error {
			return finalizer.Finalize(ctx, tx)
		})
	}
}

// step runs one best-effort side effect. Failures are logged and counted only.
func (c *Coordinator) step(ctx context.Context, name string, fn func() error) {
	start := time.Now()
	err := fn()
	c.metrics.ObserveStep(name, time.Since(start))
	if err != nil {
		c.metrics.IncStepFailure(name)
		c.logg.Error(c.logg.WithField(ctx, "step", name), "fulfillment step failed", err)
	}
}

func stockLines(items []LineItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// dispatch books a consignment and stores it on tx. Paid parcels collect nothing
// on delivery; unpaid parcels collect the full amount.
func (c *Coordinator) dispatch(ctx context.Context, tx *Transaction) error {
	cod := tx.Amount
	if tx.Paid() {
		cod = decimal.Zero
	}
	res, err := c.courier.CreateConsignment(ctx, steadfast.ConsignmentRequest{
		Invoice:          tx.ExternalID,
		RecipientName:    tx.Shipment.RecipientName,
		RecipientPhone:   tx.Shipment.RecipientPhone,
		RecipientAddress: tx.Shipment.RecipientAddress,
		CODAmount:        cod,
		Note:             tx.Shipment.Note,
	})
	if err != nil {
		return err
	}
	if res == nil || res.Consignment == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "courier returned no consignment")
	}
	tx.Consignment = &Consignment{
		ID:           res.Consignment.ID,
		TrackingCode: res.Consignment.TrackingCode,
		Status:       res.Consignment.Status,
	}
	return nil
}

// Redispatch books a courier consignment for a confirmed transaction that has
// none, then persists it.
func (c *Coordinator) Redispatch(ctx context.Context, kind enums.TransactionKind, externalID string) (*Transaction, error) {
	d, err := c.domain(kind)
	if err != nil {
		return nil, err
	}
	finalizer, ok := d.(Finalizer)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s transactions are not shipped", kind)
	}
	if c.courier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "courier is disabled")
	}
	ctx = c.logg.WithTransaction(ctx, string(kind), externalID)

	tx, err := d.Load(ctx, externalID)
	if err != nil {
		return nil, err
	}
	switch {
	case !tx.Confirmed:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not confirmed")
	case tx.Shipment == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction has no shipment")
	case tx.Consignment != nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "consignment already created").
			WithDetails(map[string]any{"tracking_code": tx.Consignment.TrackingCode})
	}

	if err := c.dispatch(ctx, tx); err != nil {
		c.metrics.IncStepFailure(stepCourier)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "courier dispatch failed")
	}
	if err := finalizer.Finalize(ctx, tx); err != nil {
		return nil, err
	}
	c.logg.Info(ctx, "consignment created")
	return tx, nil
}

func (c *Coordinator) discard(ctx context.Context, d Domain, tx *Transaction, reason string) {
	removed, err := d.Discard(ctx, tx.ExternalID)
	if err != nil {
		c.logg.Error(ctx, "discard pending transaction failed", err)
		return
	}
	if removed {
		c.record(ctx, tx, enums.LedgerEventTypePaymentDiscarded, "", reason)
	}
}

func (c *Coordinator) record(ctx context.Context, tx *Transaction, eventType enums.LedgerEventType, reference, detail string) {
	if c.ledger == nil {
		return
	}
	_, err := c.ledger.RecordEvent(ctx, ledger.RecordLedgerEventInput{
		Kind:       tx.Kind,
		ExternalID: tx.ExternalID,
		Type:       eventType,
		Amount:     tx.Amount,
		Reference:  reference,
		Detail:     detail,
	})
	if err != nil {
		c.logg.Warn(ctx, "ledger event not recorded", err)
	}
}

// StatusURL is the frontend page the payer lands on after the gateway.
func (c *Coordinator) StatusURL(kind enums.TransactionKind, externalID string, success bool) string {
	status := "failed"
	if success {
		status = "success"
	}
	q := url.Values{}
	q.Set("status", status)
	q.Set("id", externalID)
	q.Set("type", string(kind))
	return c.frontendURL + "/payment/status?" + q.Encode()
}
