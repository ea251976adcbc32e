// Package validation holds the advisory limits the console checks before a request is
// forwarded to the carrier. The carrier stays authoritative.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"shipdesk/internal/carrier"
)

// Field length limits.
const (
	MaxName        = 45
	MaxCompany     = 45
	MaxAddressLine = 45
	MaxCity        = 45
	MaxPostalCode  = 12
	MaxPhone       = 25
	MaxEmail       = 60
	MaxDescription = 70
	MaxReference   = 35
	MaxNickname    = 45

	MinPackages = 1
	MaxPackages = 99
)

// Limits are the package weight and dimension bounds for one unit system.
type Limits struct {
	MaxWeight    float64
	MaxDimension float64
	WeightUnit   string
	LengthUnit   string
}

var unitLimits = map[carrier.Units]Limits{
	carrier.Metric:   {MaxWeight: 1000, MaxDimension: 300, WeightUnit: "kg", LengthUnit: "cm"},
	carrier.Imperial: {MaxWeight: 2200, MaxDimension: 118, WeightUnit: "lb", LengthUnit: "in"},
}

func LimitsFor(units carrier.Units) (Limits, bool) {
	l, ok := unitLimits[units]
	return l, ok
}

var (
	accountNumber = regexp.MustCompile(`^[0-9]{9,}$`)
	email         = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	countryCode   = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ValidAccountNumber reports whether number is at least nine digits.
func ValidAccountNumber(number string) bool {
	return accountNumber.MatchString(number)
}

// Errors maps a field path to its message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) add(field, format string, args ...interface{}) {
	if _, exists := e[field]; !exists {
		e[field] = fmt.Sprintf(format, args...)
	}
}

// Err returns nil when nothing was recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.add(field, "is required")
		return false
	}
	return true
}

func (e Errors) maxLen(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		e.add(field, "must be at most %d characters", max)
	}
}

func (e Errors) account(field, number string) {
	if e.required(field, number) && !ValidAccountNumber(number) {
		e.add(field, "must be at least 9 digits")
	}
}

func (e Errors) units(field string, units carrier.Units) (Limits, bool) {
	l, ok := LimitsFor(units)
	if !ok {
		e.add(field, "must be %q or %q", carrier.Metric, carrier.Imperial)
	}
	return l, ok
}

func (e Errors) address(prefix string, a carrier.Address) {
	e.required(prefix+".name", a.Name)
	e.maxLen(prefix+".name", a.Name, MaxName)
	e.maxLen(prefix+".company", a.Company, MaxCompany)
	e.required(prefix+".line1", a.Line1)
	e.maxLen(prefix+".line1", a.Line1, MaxAddressLine)
	e.maxLen(prefix+".line2", a.Line2, MaxAddressLine)
	e.maxLen(prefix+".line3", a.Line3, MaxAddressLine)
	e.required(prefix+".city", a.City)
	e.maxLen(prefix+".city", a.City, MaxCity)
	e.maxLen(prefix+".postalCode", a.PostalCode, MaxPostalCode)
	if e.required(prefix+".countryCode", a.CountryCode) && !countryCode.MatchString(a.CountryCode) {
		e.add(prefix+".countryCode", "must be a two-letter ISO code")
	}
	e.maxLen(prefix+".phone", a.Phone, MaxPhone)
	e.maxLen(prefix+".email", a.Email, MaxEmail)
	if a.Email != "" && !email.MatchString(a.Email) {
		e.add(prefix+".email", "is not a valid email address")
	}
}

// location checks only what a rate quote needs from an address.
func (e Errors) location(prefix string, a carrier.Address) {
	if e.required(prefix+".countryCode", a.CountryCode) && !countryCode.MatchString(a.CountryCode) {
		e.add(prefix+".countryCode", "must be a two-letter ISO code")
	}
	e.maxLen(prefix+".city", a.City, MaxCity)
	e.maxLen(prefix+".postalCode", a.PostalCode, MaxPostalCode)
}

func (e Errors) packages(pkgs []carrier.Package, units carrier.Units) {
	if len(pkgs) < MinPackages {
		e.add("packages", "at least %d package is required", MinPackages)
		return
	}
	if len(pkgs) > MaxPackages {
		e.add("packages", "at most %d packages are allowed", MaxPackages)
		return
	}
	limits, ok := e.units("units", units)
	for i, p := range pkgs {
		prefix := fmt.Sprintf("packages[%d]", i)
		if p.Weight <= 0 {
			e.add(prefix+".weight", "must be greater than zero")
		} else if ok && p.Weight > limits.MaxWeight {
			e.add(prefix+".weight", "must be at most %g %s", limits.MaxWeight, limits.WeightUnit)
		}
		for name, v := range map[string]float64{"length": p.Length, "width": p.Width, "height": p.Height} {
			if v < 0 {
				e.add(prefix+"."+name, "must not be negative")
			} else if ok && v > limits.MaxDimension {
				e.add(prefix+"."+name, "must be at most %g %s", limits.MaxDimension, limits.LengthUnit)
			}
		}
		e.maxLen(prefix+".description", p.Description, MaxDescription)
		e.maxLen(prefix+".reference", p.Reference, MaxReference)
	}
}

func RateRequest(req *carrier.RateRequest) error {
	e := Errors{}
	e.account("accountNumber", req.AccountNumber)
	e.location("origin", req.Origin)
	e.location("destination", req.Destination)
	e.required("plannedShippingDate", req.ShippingDate)
	e.packages(req.Packages, req.Units)
	if req.CustomsDeclarable && req.DeclaredValue <= 0 {
		e.add("declaredValue", "is required for dutiable shipments")
	}
	return e.Err()
}

func ShipmentRequest(req *carrier.ShipmentRequest) error {
	e := Errors{}
	e.account("accountNumber", req.AccountNumber)
	e.required("productCode", req.ProductCode)
	e.address("shipper", req.Shipper)
	e.address("receiver", req.Receiver)
	e.required("plannedShippingDate", req.ShippingDate)
	e.packages(req.Packages, req.Units)
	if e.required("description", req.Description) {
		e.maxLen("description", req.Description, MaxDescription)
	}
	e.maxLen("reference", req.Reference, MaxReference)
	if req.CustomsDeclarable && req.DeclaredValue <= 0 {
		e.add("declaredValue", "is required for dutiable shipments")
	}
	return e.Err()
}

func PickupRequest(req *carrier.PickupRequest) error {
	e := Errors{}
	e.account("accountNumber", req.AccountNumber)
	e.address("address", req.Address)
	e.required("pickupDate", req.PickupDate)
	e.required("readyTime", req.ReadyTime)
	e.required("closeTime", req.CloseTime)
	if req.ReadyTime != "" && req.CloseTime != "" && req.CloseTime <= req.ReadyTime {
		e.add("closeTime", "must be after the ready time")
	}
	e.packages(req.Packages, req.Units)
	return e.Err()
}

func Contact(c *carrier.Contact) error {
	e := Errors{}
	if e.required("nickname", c.Nickname) {
		e.maxLen("nickname", c.Nickname, MaxNickname)
	}
	e.address("address", c.Address)
	return e.Err()
}
