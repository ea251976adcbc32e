package location

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"shipdesk/internal/carrier"
)

// The carrier names the same field differently across endpoints and API versions, and
// some lists come back as bare strings. Records are normalized here.

type record map[string]interface{}

func (r record) pick(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func (r record) count(keys ...string) int {
	for _, k := range keys {
		if v, ok := r[k].(float64); ok {
			return int(v)
		}
	}
	return 0
}

func (r record) flag(keys ...string) (bool, bool) {
	for _, k := range keys {
		if v, ok := r[k].(bool); ok {
			return v, true
		}
	}
	return false, false
}

// decodeList decodes env.Data as a list, turning each element into T with fn. Elements
// that produce an empty key are dropped, as are duplicates.
func decodeList[T any](fn func(record) (T, string)) func(carrier.Envelope) ([]T, error) {
	return func(env carrier.Envelope) ([]T, error) {
		out := []T{}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return out, nil
		}

		var items []json.RawMessage
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("expected a list: %w", err)
		}

		seen := make(map[string]bool, len(items))
		for _, item := range items {
			var r record
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				r = record{"name": s, "code": s, "value": s}
			} else if err := json.Unmarshal(item, &r); err != nil {
				return nil, fmt.Errorf("unexpected list element: %w", err)
			}

			v, key := fn(r)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
		return out, nil
	}
}

func decodeCountry(r record) (Country, string) {
	c := Country{
		Code: normalizeCode(r.pick("code", "countryCode", "iso2")),
		Name: r.pick("name", "countryName"),
	}
	if c.Name == "" {
		c.Name = c.Code
	}
	return c, c.Code
}

func decodeState(r record) (State, string) {
	s := State{
		Code: normalizeCode(r.pick("code", "stateCode", "provinceCode")),
		Name: r.pick("name", "stateName", "provinceName"),
	}
	if s.Code == "" {
		s.Code = normalizeCode(s.Name)
	}
	if s.Name == "" {
		s.Name = s.Code
	}
	return s, s.Code
}

func decodeCity(r record) (City, string) {
	c := City{
		Name:            r.pick("name", "city", "cityName"),
		StateCode:       normalizeCode(r.pick("stateCode", "state")),
		ServiceAreaCode: normalizeCode(r.pick("serviceAreaCode", "serviceArea")),
	}
	if c.Name == "" {
		return c, ""
	}
	return c, strings.ToLower(c.Name) + "|" + c.StateCode
}

func decodeServiceArea(r record) (ServiceArea, string) {
	sa := ServiceArea{
		Code:      normalizeCode(r.pick("code", "serviceAreaCode")),
		Name:      r.pick("name", "serviceAreaName", "description"),
		StateCode: normalizeCode(r.pick("stateCode", "state")),
	}
	if sa.Name == "" {
		sa.Name = sa.Code
	}
	return sa, sa.Code
}

func decodePostalCode(r record) (PostalCode, string) {
	pc := PostalCode{
		Value:           r.pick("postalCode", "value", "code"),
		Range:           r.pick("range", "displayRange"),
		City:            r.pick("city", "cityName"),
		StateCode:       normalizeCode(r.pick("stateCode", "state")),
		ServiceAreaCode: normalizeCode(r.pick("serviceAreaCode", "serviceArea")),
	}
	if pc.Range == "" {
		from, to := r.pick("postalCodeFrom", "from"), r.pick("postalCodeTo", "to")
		switch {
		case from != "" && to != "" && from != to:
			pc.Range = from + " - " + to
			if pc.Value == "" {
				pc.Value = from
			}
		case from != "" && pc.Value == "":
			pc.Value = from
		}
	}
	if pc.Range == "" {
		pc.Range = pc.Value
	}
	return pc, pc.Value
}

func decodeStructure(country string) func(carrier.Envelope) (CountryStructure, error) {
	return func(env carrier.Envelope) (CountryStructure, error) {
		var r record
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return CountryStructure{}, fmt.Errorf("expected an object: %w", err)
		}
		return deriveStructure(country, r), nil
	}
}

// deriveStructure turns the remote analysis (flags and/or counts) into a descriptor.
// Explicit flags win over counts.
func deriveStructure(country string, r record) CountryStructure {
	s := CountryStructure{
		CountryCode:      country,
		StateCount:       r.count("stateCount", "states"),
		CityCount:        r.count("cityCount", "cities"),
		ServiceAreaCount: r.count("serviceAreaCount", "serviceAreas"),
		PostalCodeCount:  r.count("postalCodeCount", "postalCodes"),
	}

	s.HasStates = s.StateCount > 0
	if v, ok := r.flag("hasStates"); ok {
		s.HasStates = v
	}
	s.HasCities = s.CityCount > 0
	if v, ok := r.flag("hasCities"); ok {
		s.HasCities = v
	}
	s.HasServiceAreas = s.ServiceAreaCount > 0
	if v, ok := r.flag("hasServiceAreas"); ok {
		s.HasServiceAreas = v
	}
	s.HasPostalCodes = s.PostalCodeCount > 0
	if v, ok := r.flag("hasPostalCodes"); ok {
		s.HasPostalCodes = v
	}

	switch strings.ToLower(r.pick("recommendedCityField", "recommendedField")) {
	case "servicearea", "service_area", "service-area":
		s.RecommendedCityField = CityFieldServiceArea
	case "city":
		s.RecommendedCityField = CityFieldCity
	default:
		if !s.HasCities && s.HasServiceAreas {
			s.RecommendedCityField = CityFieldServiceArea
		} else {
			s.RecommendedCityField = CityFieldCity
		}
	}
	return s
}

func permissiveStructure(country string) CountryStructure {
	return CountryStructure{
		CountryCode:          country,
		HasStates:            true,
		HasCities:            true,
		HasServiceAreas:      true,
		HasPostalCodes:       true,
		RecommendedCityField: CityFieldCity,
	}
}
