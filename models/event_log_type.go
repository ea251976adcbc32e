package models

type EEventLogType string

const (
	Login                EEventLogType = "Login"
	Logout               EEventLogType = "Logout"
	SessionExpired       EEventLogType = "Session expired"
	AccountAdded         EEventLogType = "Account added"
	AccountRemoved       EEventLogType = "Account removed"
	RateQuoted           EEventLogType = "Rate quoted"
	ContentTypesCompared EEventLogType = "Content types compared"
	ShipmentCreated      EEventLogType = "Shipment created"
	PickupScheduled      EEventLogType = "Pickup scheduled"
	ContactCreated       EEventLogType = "Contact created"
	ContactDeleted       EEventLogType = "Contact deleted"
	LocationResolved     EEventLogType = "Location resolved"
	LocationCacheCleared EEventLogType = "Location cache cleared"
	PreferencesUpdated   EEventLogType = "Preferences updated"
	Warning              EEventLogType = "Warning"
)
