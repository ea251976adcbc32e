package shipping

import (
	"context"
	"strings"

	"shipdesk/internal/carrier"
	"shipdesk/internal/eventlog"
	"shipdesk/internal/logger"
	"shipdesk/internal/validation"
	"shipdesk/models"
)

// Carrier is the part of the carrier API the shipping operations forward to.
type Carrier interface {
	Rates(ctx context.Context, req *carrier.RateRequest) (*carrier.RateQuote, error)
	CompareContentTypes(ctx context.Context, req *carrier.RateRequest) (*carrier.ContentTypeComparison, error)
	CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error)
	SchedulePickup(ctx context.Context, req *carrier.PickupRequest) (*carrier.Pickup, error)
	Contacts(ctx context.Context) ([]carrier.Contact, error)
	CreateContact(ctx context.Context, contact *carrier.Contact) (*carrier.Contact, error)
	DeleteContact(ctx context.Context, id string) error
	History(ctx context.Context, limit int) ([]carrier.HistoryEntry, error)
}

var _ Carrier = (*carrier.Client)(nil)

// Defaults supplies the operator's preferred account and units.
type Defaults interface {
	Defaults(ctx context.Context, username string) (account string, units carrier.Units)
}

// ShippingService validates shipping requests and forwards them to the carrier.
// Successful operations are written to the activity log.
type ShippingService struct {
	Events   *eventlog.EventLogService
	defaults Defaults
}

func NewShippingService(events *eventlog.EventLogService, defaults Defaults) *ShippingService {
	return &ShippingService{Events: events, defaults: defaults}
}

func (s *ShippingService) fill(ctx context.Context, username string, account *string, units *carrier.Units) {
	if s.defaults == nil || (*account != "" && *units != "") {
		return
	}
	defAccount, defUnits := s.defaults.Defaults(ctx, username)
	if *account == "" {
		*account = defAccount
	}
	if *units == "" {
		*units = defUnits
	}
}

func (s *ShippingService) Rates(ctx context.Context, c Carrier, username string, req *carrier.RateRequest) (*carrier.RateQuote, error) {
	s.fill(ctx, username, &req.AccountNumber, &req.Units)
	if err := validation.RateRequest(req); err != nil {
		return nil, err
	}
	quote, err := c.Rates(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Events.Record(username, models.RateQuoted, req.AccountNumber)
	return quote, nil
}

func (s *ShippingService) CompareContentTypes(ctx context.Context, c Carrier, username string, req *carrier.RateRequest) (*carrier.ContentTypeComparison, error) {
	s.fill(ctx, username, &req.AccountNumber, &req.Units)
	if err := validation.RateRequest(req); err != nil {
		return nil, err
	}
	cmp, err := c.CompareContentTypes(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Events.Record(username, models.ContentTypesCompared, req.AccountNumber)
	return cmp, nil
}

func (s *ShippingService) CreateShipment(ctx context.Context, c Carrier, username string, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	s.fill(ctx, username, &req.AccountNumber, &req.Units)
	if err := validation.ShipmentRequest(req); err != nil {
		return nil, err
	}
	shipment, err := c.CreateShipment(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Events.Record(username, models.ShipmentCreated, shipment.TrackingNumber)
	return shipment, nil
}

func (s *ShippingService) SchedulePickup(ctx context.Context, c Carrier, username string, req *carrier.PickupRequest) (*carrier.Pickup, error) {
	s.fill(ctx, username, &req.AccountNumber, &req.Units)
	if err := validation.PickupRequest(req); err != nil {
		return nil, err
	}
	pickup, err := c.SchedulePickup(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Events.Record(username, models.PickupScheduled, pickup.ConfirmationNumber)
	return pickup, nil
}

func (s *ShippingService) Contacts(ctx context.Context, c Carrier) ([]carrier.Contact, error) {
	return c.Contacts(ctx)
}

func (s *ShippingService) CreateContact(ctx context.Context, c Carrier, username string, contact *carrier.Contact) (*carrier.Contact, error) {
	contact.Nickname = strings.TrimSpace(contact.Nickname)
	if err := validation.Contact(contact); err != nil {
		return nil, err
	}
	created, err := c.CreateContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	s.Events.Record(username, models.ContactCreated, created.Nickname)
	return created, nil
}

func (s *ShippingService) DeleteContact(ctx context.Context, c Carrier, username, id string) error {
	if err := c.DeleteContact(ctx, id); err != nil {
		return err
	}
	s.Events.Record(username, models.ContactDeleted, id)
	return nil
}

func (s *ShippingService) History(ctx context.Context, c Carrier, limit int) ([]carrier.HistoryEntry, error) {
	return c.History(ctx, eventlog.ClampLimit(limit))
}

// PreferenceDefaults reads the defaults from the operator preferences.
type PreferenceDefaults struct {
	Lookup func(ctx context.Context, username string) (*models.Settings, error)
}

func (p PreferenceDefaults) Defaults(ctx context.Context, username string) (string, carrier.Units) {
	settings, err := p.Lookup(ctx, username)
	if err != nil || settings == nil {
		if err != nil {
			logger.GetLogger("shipping").Warnf("Could not load preferences for %s: %v", username, err)
		}
		return "", carrier.Metric
	}
	units := carrier.Units(settings.Units)
	if units == "" {
		units = carrier.Metric
	}
	return settings.SelectedAccount, units
}
