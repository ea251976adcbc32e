package location

import "strings"

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type City struct {
	Name            string `json:"name"`
	StateCode       string `json:"stateCode,omitempty"`
	ServiceAreaCode string `json:"serviceAreaCode,omitempty"`
}

type ServiceArea struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	StateCode string `json:"stateCode,omitempty"`
}

type PostalCode struct {
	Value           string `json:"value"`
	Range           string `json:"range,omitempty"`
	City            string `json:"city,omitempty"`
	StateCode       string `json:"stateCode,omitempty"`
	ServiceAreaCode string `json:"serviceAreaCode,omitempty"`
}

// CityField names the city-like discriminator a country uses.
type CityField string

const (
	CityFieldCity        CityField = "city"
	CityFieldServiceArea CityField = "serviceArea"
)

// CountryStructure describes which cascade levels a country exposes.
type CountryStructure struct {
	CountryCode          string    `json:"countryCode"`
	HasStates            bool      `json:"hasStates"`
	HasCities            bool      `json:"hasCities"`
	HasServiceAreas      bool      `json:"hasServiceAreas"`
	HasPostalCodes       bool      `json:"hasPostalCodes"`
	RecommendedCityField CityField `json:"recommendedCityField"`
	StateCount           int       `json:"stateCount"`
	CityCount            int       `json:"cityCount"`
	ServiceAreaCount     int       `json:"serviceAreaCount"`
	PostalCodeCount      int       `json:"postalCodeCount"`
}

// Selection is the operator's location choice. Lower fields depend on higher ones.
type Selection struct {
	CountryCode     string `json:"countryCode"`
	CountryName     string `json:"countryName"`
	StateCode       string `json:"stateCode"`
	StateName       string `json:"stateName"`
	City            string `json:"city"`
	ServiceAreaCode string `json:"serviceAreaCode"`
	ServiceAreaName string `json:"serviceAreaName"`
	PostalCode      string `json:"postalCode"`
	PostalCodeRange string `json:"postalCodeRange"`
}

// FilterOptions are the narrowing choices offered when a postal code lookup is refused.
type FilterOptions struct {
	States       []State       `json:"states"`
	Cities       []City        `json:"cities"`
	ServiceAreas []ServiceArea `json:"serviceAreas"`
}

// Result is the uniform answer of every lookup. Failures carry an empty Data and an
// Error message; Err keeps the underlying error for callers that need to branch on it.
type Result[T any] struct {
	Success          bool           `json:"success"`
	Data             T              `json:"data"`
	Error            string         `json:"error,omitempty"`
	RequiresFilters  bool           `json:"requiresFilters,omitempty"`
	AvailableFilters *FilterOptions `json:"availableFilters,omitempty"`
	Cached           bool           `json:"cached"`
	Err              error          `json:"-"`
}

type CityQuery struct {
	Country string
	State   string
	Search  string
}

type ServiceAreaQuery struct {
	Country string
	State   string
	City    string
}

type PostalCodeQuery struct {
	Country     string
	State       string
	City        string
	ServiceArea string
	Search      string
}

// HasNarrowingFilter reports whether a state, city or service area was supplied.
func (q PostalCodeQuery) HasNarrowingFilter() bool {
	return strings.TrimSpace(q.State) != "" ||
		strings.TrimSpace(q.City) != "" ||
		strings.TrimSpace(q.ServiceArea) != ""
}

// compositeKey builds the cache key: country plus the optional filters, normalized.
func compositeKey(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(normalized, "|")
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
