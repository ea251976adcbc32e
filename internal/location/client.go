package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"shipdesk/internal/carrier"
	"shipdesk/internal/config"
	"shipdesk/internal/logger"
)

// FiltersRequiredMessage is returned with postal code lookups refused for large countries.
const FiltersRequiredMessage = "select a state, city or service area before loading postal codes"

// Fetcher performs an authenticated GET against the carrier API.
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Policy holds the per-country fetch rules.
type Policy struct {
	// LargeCountries refuse unfiltered postal code lookups
	LargeCountries map[string]bool
	// CountryLevelCityCountries always list cities for the whole country
	CountryLevelCityCountries map[string]bool
}

func PolicyFromConfig(p config.LocationPolicy) Policy {
	policy := Policy{
		LargeCountries:            make(map[string]bool, len(p.LargeCountries)),
		CountryLevelCityCountries: make(map[string]bool, len(p.CountryLevelCityCountries)),
	}
	for _, c := range p.LargeCountries {
		policy.LargeCountries[normalizeCode(c)] = true
	}
	for _, c := range p.CountryLevelCityCountries {
		policy.CountryLevelCityCountries[normalizeCode(c)] = true
	}
	return policy
}

func (p Policy) IsLargeCountry(country string) bool {
	return p.LargeCountries[normalizeCode(country)]
}

func (p Policy) CitiesAtCountryLevel(country string) bool {
	return p.CountryLevelCityCountries[normalizeCode(country)]
}

// Client wraps the remote location lookups behind the shared cache.
type Client struct {
	cache   *Cache
	fetcher Fetcher
	policy  Policy
}

func NewClient(cache *Cache, fetcher Fetcher, policy Policy) *Client {
	return &Client{cache: cache, fetcher: fetcher, policy: policy}
}

func (c *Client) Policy() Policy {
	return c.policy
}

func countryPath(country, resource string) string {
	return "/locations/countries/" + url.PathEscape(normalizeCode(country)) + resource
}

func (c *Client) Countries(ctx context.Context) Result[[]Country] {
	return lookup(ctx, c, CategoryCountries, compositeKey("all"),
		"/locations/countries", nil, decodeList(decodeCountry))
}

func (c *Client) Structure(ctx context.Context, country string) Result[CountryStructure] {
	country = normalizeCode(country)
	if country == "" {
		return failure[CountryStructure](errors.New("country is required"))
	}
	res := lookup(ctx, c, CategoryStructure, compositeKey(country),
		countryPath(country, "/structure"), nil, decodeStructure(country))
	if !res.Success {
		// keep the cascade usable: assume every level may exist
		res.Data = permissiveStructure(country)
	}
	return res
}

func (c *Client) States(ctx context.Context, country string) Result[[]State] {
	country = normalizeCode(country)
	if country == "" {
		return failure[[]State](errors.New("country is required"))
	}
	return lookup(ctx, c, CategoryStates, compositeKey(country),
		countryPath(country, "/states"), nil, decodeList(decodeState))
}

func (c *Client) Cities(ctx context.Context, q CityQuery) Result[[]City] {
	q.Country = normalizeCode(q.Country)
	if q.Country == "" {
		return failure[[]City](errors.New("country is required"))
	}
	if c.policy.CitiesAtCountryLevel(q.Country) {
		q.State = ""
	}
	query := url.Values{}
	setIf(query, "state", q.State)
	setIf(query, "search", q.Search)
	return lookup(ctx, c, CategoryCities, compositeKey(q.Country, q.State, q.Search),
		countryPath(q.Country, "/cities"), query, decodeList(decodeCity))
}

func (c *Client) ServiceAreas(ctx context.Context, q ServiceAreaQuery) Result[[]ServiceArea] {
	q.Country = normalizeCode(q.Country)
	if q.Country == "" {
		return failure[[]ServiceArea](errors.New("country is required"))
	}
	query := url.Values{}
	setIf(query, "state", q.State)
	setIf(query, "city", q.City)
	return lookup(ctx, c, CategoryServiceAreas, compositeKey(q.Country, q.State, q.City),
		countryPath(q.Country, "/service-areas"), query, decodeList(decodeServiceArea))
}

func (c *Client) PostalCodes(ctx context.Context, q PostalCodeQuery) Result[[]PostalCode] {
	q.Country = normalizeCode(q.Country)
	if q.Country == "" {
		return failure[[]PostalCode](errors.New("country is required"))
	}
	if c.policy.IsLargeCountry(q.Country) && !q.HasNarrowingFilter() {
		return c.filtersRequired(ctx, q.Country)
	}

	query := url.Values{}
	setIf(query, "state", q.State)
	setIf(query, "city", q.City)
	setIf(query, "serviceArea", q.ServiceArea)
	setIf(query, "search", q.Search)
	return lookup(ctx, c, CategoryPostalCodes,
		compositeKey(q.Country, q.State, q.City, q.ServiceArea, q.Search),
		countryPath(q.Country, "/postal-codes"), query, decodeList(decodePostalCode))
}

// filtersRequired answers an unfiltered large-country postal lookup without calling
// the remote; the narrowing options come from cache-first lookups.
func (c *Client) filtersRequired(ctx context.Context, country string) Result[[]PostalCode] {
	var states Result[[]State]
	var areas Result[[]ServiceArea]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		states = c.States(gctx, country)
		return nil
	})
	g.Go(func() error {
		areas = c.ServiceAreas(gctx, ServiceAreaQuery{Country: country})
		return nil
	})
	_ = g.Wait()

	filters := &FilterOptions{States: []State{}, Cities: []City{}, ServiceAreas: []ServiceArea{}}
	if states.Success {
		filters.States = states.Data
	}
	if areas.Success {
		filters.ServiceAreas = areas.Data
	}
	if cached, ok := c.cache.Get(CategoryCities, compositeKey(country, "", "")); ok {
		if cities, ok := cached.(Result[[]City]); ok && cities.Success {
			filters.Cities = cities.Data
		}
	}

	return Result[[]PostalCode]{
		Data:             []PostalCode{},
		Error:            FiltersRequiredMessage,
		RequiresFilters:  true,
		AvailableFilters: filters,
	}
}

func setIf(query url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		query.Set(key, v)
	}
}

func failure[T any](err error) Result[T] {
	var zero T
	return Result[T]{Data: zero, Error: carrier.Message(err), Err: err}
}

// lookup is the cache-first fetch shared by every operation. Failures are cached for
// the short error TTL; cancellations and failures tied to the caller's token are never
// cached, and a caller that joined another session's flight retries those with its own token.
func lookup[T any](ctx context.Context, c *Client, category Category, key, path string,
	query url.Values, decode func(carrier.Envelope) (T, error)) Result[T] {

	if cached, ok := c.cache.Get(category, key); ok {
		if res, ok := cached.(Result[T]); ok {
			res.Cached = true
			return res
		}
	}

	fetch := func(ctx context.Context) Result[T] {
		raw, err := c.fetcher.Get(ctx, path, query)
		res := buildResult(raw, err, decode)
		switch {
		case tokenScoped(err):
		case res.Success:
			c.cache.Set(category, key, res)
		default:
			c.cache.SetWithTTL(category, key, res, c.cache.ErrorTTL())
		}
		return res
	}

	led := false
	flightKey := string(category) + "\x00" + key
	ch := c.cache.inflight.DoChan(flightKey, func() (interface{}, error) {
		led = true
		// the shared call must not die with the first caller's request
		return fetch(context.WithoutCancel(ctx)), nil
	})

	select {
	case <-ctx.Done():
		return failure[T](ctx.Err())
	case out := <-ch:
		res, ok := out.Val.(Result[T])
		if !ok {
			return failure[T](fmt.Errorf("%w: unexpected cached type", carrier.ErrMalformedResponse))
		}
		if !led && tokenScoped(res.Err) {
			logger.GetLogger("location").Debugf("retrying %s %q with own token after shared lookup was rejected", category, key)
			return fetch(ctx)
		}
		return res
	}
}

// tokenScoped reports whether err says something about the token that made the call
// rather than about the location data.
func tokenScoped(err error) bool {
	if errors.Is(err, carrier.ErrUnauthorized) {
		return true
	}
	var apiErr *carrier.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden
}

func buildResult[T any](raw json.RawMessage, err error, decode func(carrier.Envelope) (T, error)) Result[T] {
	log := logger.GetLogger("location")
	if err != nil {
		log.Warnf("location lookup failed: %v", err)
		res := failure[T](err)
		res.Data = emptyOf[T]()
		return res
	}

	env, err := carrier.Unwrap(raw)
	if err != nil {
		res := failure[T](err)
		res.Data = emptyOf[T]()
		return res
	}

	if env.RequiresFilters {
		res := Result[T]{Data: emptyOf[T](), Error: env.Error, RequiresFilters: true}
		if res.Error == "" {
			res.Error = FiltersRequiredMessage
		}
		if len(env.AvailableFilters) > 0 {
			var filters FilterOptions
			if json.Unmarshal(env.AvailableFilters, &filters) == nil {
				res.AvailableFilters = &filters
			}
		}
		return res
	}

	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "lookup was not successful"
		}
		return Result[T]{Data: emptyOf[T](), Error: msg, Err: &carrier.APIError{Status: 200, Message: msg}}
	}

	data, err := decode(env)
	if err != nil {
		log.Warnf("location payload could not be decoded: %v", err)
		res := failure[T](fmt.Errorf("%w: %v", carrier.ErrMalformedResponse, err))
		res.Data = emptyOf[T]()
		return res
	}
	return Result[T]{Success: true, Data: data}
}

// emptyOf returns an empty, non-nil slice for slice types so JSON renders [] not null.
func emptyOf[T any]() T {
	var zero T
	switch any(zero).(type) {
	case []Country:
		return any([]Country{}).(T)
	case []State:
		return any([]State{}).(T)
	case []City:
		return any([]City{}).(T)
	case []ServiceArea:
		return any([]ServiceArea{}).(T)
	case []PostalCode:
		return any([]PostalCode{}).(T)
	}
	return zero
}
