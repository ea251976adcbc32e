package carrier

import "time"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Profile is the operator profile returned by the carrier on login.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type Address struct {
	Name            string `json:"name"`
	Company         string `json:"company,omitempty"`
	Line1           string `json:"line1"`
	Line2           string `json:"line2,omitempty"`
	Line3           string `json:"line3,omitempty"`
	City            string `json:"city"`
	StateCode       string `json:"stateCode,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	CountryCode     string `json:"countryCode"`
	ServiceAreaCode string `json:"serviceAreaCode,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
}

type Package struct {
	Weight      float64 `json:"weight"`
	Length      float64 `json:"length"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Description string  `json:"description,omitempty"`
	Reference   string  `json:"reference,omitempty"`
}

// Units is "metric" (kg/cm) or "imperial" (lb/in).
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

type RateRequest struct {
	AccountNumber     string    `json:"accountNumber"`
	Origin            Address   `json:"origin"`
	Destination       Address   `json:"destination"`
	Packages          []Package `json:"packages"`
	ShippingDate      string    `json:"plannedShippingDate"`
	Units             Units     `json:"unitOfMeasurement"`
	CustomsDeclarable bool      `json:"isCustomsDeclarable"`
	DeclaredValue     float64   `json:"declaredValue,omitempty"`
	DeclaredCurrency  string    `json:"declaredValueCurrency,omitempty"`
}

type Charge struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Product struct {
	Code         string   `json:"productCode"`
	Name         string   `json:"productName"`
	TotalPrice   float64  `json:"totalPrice"`
	Currency     string   `json:"currency"`
	DeliveryDate string   `json:"estimatedDeliveryDate,omitempty"`
	TransitDays  int      `json:"transitDays,omitempty"`
	Breakdown    []Charge `json:"breakdown,omitempty"`
}

type RateQuote struct {
	Products []Product `json:"products"`
}

// ContentTypeComparison holds the quotes for the same shipment sent as documents and as
// dutiable goods; landed cost is computed by the carrier.
type ContentTypeComparison struct {
	Documents    []Product `json:"documents"`
	NonDocuments []Product `json:"nonDocuments"`
}

type ShipmentRequest struct {
	AccountNumber     string    `json:"accountNumber"`
	ProductCode       string    `json:"productCode"`
	Shipper           Address   `json:"shipper"`
	Receiver          Address   `json:"receiver"`
	Packages          []Package `json:"packages"`
	ShippingDate      string    `json:"plannedShippingDate"`
	Units             Units     `json:"unitOfMeasurement"`
	Description       string    `json:"description"`
	Reference         string    `json:"reference,omitempty"`
	CustomsDeclarable bool      `json:"isCustomsDeclarable"`
	DeclaredValue     float64   `json:"declaredValue,omitempty"`
	DeclaredCurrency  string    `json:"declaredValueCurrency,omitempty"`
	LabelFormat       string    `json:"labelFormat,omitempty"`
}

type Document struct {
	Type    string `json:"type"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

type Shipment struct {
	TrackingNumber  string     `json:"trackingNumber"`
	PackageTracking []string   `json:"packageTrackingNumbers,omitempty"`
	Documents       []Document `json:"documents,omitempty"`
}

type PickupRequest struct {
	AccountNumber string    `json:"accountNumber"`
	Address       Address   `json:"address"`
	PickupDate    string    `json:"pickupDate"`
	ReadyTime     string    `json:"readyTime"`
	CloseTime     string    `json:"closeTime"`
	Location      string    `json:"location,omitempty"`
	Instructions  string    `json:"specialInstructions,omitempty"`
	Units         Units     `json:"unitOfMeasurement"`
	Packages      []Package `json:"packages"`
}

type Pickup struct {
	ConfirmationNumber string `json:"confirmationNumber"`
	ReadyByTime        string `json:"readyByTime,omitempty"`
	NextPickupDate     string `json:"nextPickupDate,omitempty"`
	WarehouseCode      string `json:"warehouseCode,omitempty"`
}

type Contact struct {
	ID       string  `json:"id,omitempty"`
	Nickname string  `json:"nickname"`
	Address  Address `json:"address"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Reference string    `json:"reference,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}
