package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shipdesk/internal/carrier"
	"shipdesk/internal/logger"
)

var (
	ErrUnknownOption    = errors.New("option is not in the current candidate list")
	ErrLevelUnavailable = errors.New("level is not available for the selected country")
	ErrCountryRequired  = errors.New("select a country first")
)

// Phase is the position of a picker in the country → postal code cascade.
type Phase string

const (
	PhaseEmpty                      Phase = "empty"
	PhaseCountrySelected            Phase = "countrySelected"
	PhaseStateSelected              Phase = "stateSelected"
	PhaseCitySelected               Phase = "citySelected"
	PhaseServiceAreaOrFilterApplied Phase = "serviceAreaOrFilterApplied"
	PhasePostalCodeSelected         Phase = "postalCodeSelected"
)

// Source is what the controller needs from the location client.
type Source interface {
	Countries(ctx context.Context) Result[[]Country]
	Structure(ctx context.Context, country string) Result[CountryStructure]
	States(ctx context.Context, country string) Result[[]State]
	Cities(ctx context.Context, q CityQuery) Result[[]City]
	ServiceAreas(ctx context.Context, q ServiceAreaQuery) Result[[]ServiceArea]
	PostalCodes(ctx context.Context, q PostalCodeQuery) Result[[]PostalCode]
	Policy() Policy
}

var _ Source = (*Client)(nil)

// sequence tags each fetch of a level. Starting a new fetch cancels the previous one,
// and a response is only applied while its number is still the current one.
type sequence struct {
	seq    uint64
	cancel context.CancelFunc
}

func (s *sequence) next(parent context.Context) (context.Context, uint64) {
	s.stop()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, s.seq
}

func (s *sequence) stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

func (s *sequence) finish(seq uint64) bool {
	if seq != s.seq {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

type level[T any] struct {
	sequence
	options []T
	loading bool
	err     string
}

func (l *level[T]) begin(parent context.Context) (context.Context, uint64) {
	ctx, seq := l.next(parent)
	l.options = nil
	l.loading = true
	l.err = ""
	return ctx, seq
}

func (l *level[T]) clear() {
	l.stop()
	l.options = nil
	l.loading = false
	l.err = ""
}

func (l *level[T]) settle(seq uint64, res Result[[]T]) bool {
	if !l.finish(seq) {
		return false
	}
	l.loading = false
	l.options = res.Data
	l.err = ""
	if !res.Success {
		l.options = nil
		l.err = res.Error
	}
	if l.options == nil {
		l.options = []T{}
	}
	return true
}

type depth int

const (
	depthCountry depth = iota
	depthState
	depthCity
)

type fetchPlan []func() error

func (p fetchPlan) run() error {
	var g errgroup.Group
	for _, fetch := range p {
		g.Go(fetch)
	}
	return g.Wait()
}

// Controller drives one location picker. Selecting a level invalidates everything below
// it and reloads the dependent candidate lists. Operations may be called concurrently;
// the latest selection always wins.
type Controller struct {
	src        Source
	onResolved func(Selection)
	log        *zap.SugaredLogger

	mu           sync.Mutex
	selection    Selection
	structure    *CountryStructure
	structureSeq sequence
	citySearch   string
	prompt       *FilterPrompt

	countries    level[Country]
	states       level[State]
	cities       level[City]
	serviceAreas level[ServiceArea]
	postalCodes  level[PostalCode]
}

// NewController creates a picker. onResolved, if set, is called with every completed
// selection.
func NewController(src Source, onResolved func(Selection)) *Controller {
	return &Controller{
		src:        src,
		onResolved: onResolved,
		log:        logger.GetLogger("location"),
	}
}

func (c *Controller) LoadCountries(ctx context.Context) error {
	c.mu.Lock()
	lctx, seq := c.countries.begin(ctx)
	c.mu.Unlock()
	return settleList(c, &c.countries, seq, c.src.Countries(lctx))
}

func (c *Controller) SelectCountry(ctx context.Context, code string) error {
	code = normalizeCode(code)

	c.mu.Lock()
	if code == c.selection.CountryCode {
		c.mu.Unlock()
		return nil
	}
	if code == "" {
		c.resetLocked()
		c.mu.Unlock()
		return nil
	}
	loaded := len(c.countries.options) > 0
	c.mu.Unlock()

	if !loaded {
		if err := c.LoadCountries(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	country, ok := find(c.countries.options, func(o Country) bool { return o.Code == code })
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: country %q", ErrUnknownOption, code)
	}
	if code == c.selection.CountryCode {
		c.mu.Unlock()
		return nil
	}
	c.clearBelowLocked(depthCountry)
	c.selection = Selection{CountryCode: country.Code, CountryName: country.Name}
	sctx, sseq := c.structureSeq.next(ctx)
	c.mu.Unlock()

	res := c.src.Structure(sctx, code)

	c.mu.Lock()
	if !c.structureSeq.finish(sseq) {
		c.mu.Unlock()
		c.log.Debugf("discarding superseded structure response for %s", code)
		return nil
	}
	if errors.Is(res.Err, carrier.ErrUnauthorized) {
		c.mu.Unlock()
		return res.Err
	}
	structure := res.Data
	if structure.CountryCode == "" {
		structure = permissiveStructure(code)
	}
	c.structure = &structure

	var plan fetchPlan
	if structure.HasStates {
		plan = append(plan, c.fetchStatesLocked(ctx))
	}
	plan = append(plan, c.cityLevelsLocked(ctx)...)
	c.mu.Unlock()

	return plan.run()
}

func (c *Controller) SelectState(ctx context.Context, code string) error {
	code = normalizeCode(code)

	c.mu.Lock()
	if err := c.requireLocked(func(s *CountryStructure) bool { return s.HasStates }); err != nil {
		c.mu.Unlock()
		return err
	}
	if code == c.selection.StateCode {
		c.mu.Unlock()
		return nil
	}
	var state State
	if code != "" {
		var ok bool
		state, ok = find(c.states.options, func(o State) bool { return o.Code == code })
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: state %q", ErrUnknownOption, code)
		}
	}
	c.clearBelowLocked(depthState)
	c.selection.StateCode, c.selection.StateName = state.Code, state.Name
	plan := c.cityLevelsLocked(ctx)
	c.mu.Unlock()

	return plan.run()
}

func (c *Controller) SelectCity(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	if err := c.requireLocked(func(s *CountryStructure) bool {
		return s.HasCities || len(c.cities.options) > 0
	}); err != nil {
		c.mu.Unlock()
		return err
	}
	if strings.EqualFold(name, c.selection.City) {
		c.mu.Unlock()
		return nil
	}
	var city City
	if name != "" {
		var ok bool
		city, ok = find(c.cities.options, func(o City) bool { return strings.EqualFold(o.Name, name) })
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: city %q", ErrUnknownOption, name)
		}
	}
	c.clearBelowLocked(depthCity)
	c.selection.City = city.Name
	plan := c.postalLevelLocked(ctx)
	c.mu.Unlock()

	return plan.run()
}

func (c *Controller) SelectServiceArea(ctx context.Context, code string) error {
	code = normalizeCode(code)

	c.mu.Lock()
	if err := c.requireLocked(func(s *CountryStructure) bool { return s.HasServiceAreas }); err != nil {
		c.mu.Unlock()
		return err
	}
	if code == c.selection.ServiceAreaCode {
		c.mu.Unlock()
		return nil
	}
	var area ServiceArea
	if code != "" {
		var ok bool
		area, ok = find(c.serviceAreas.options, func(o ServiceArea) bool { return o.Code == code })
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: service area %q", ErrUnknownOption, code)
		}
	}
	c.clearBelowLocked(depthCity)
	c.selection.ServiceAreaCode, c.selection.ServiceAreaName = area.Code, area.Name
	plan := c.postalLevelLocked(ctx)
	c.mu.Unlock()

	return plan.run()
}

// SearchCities narrows the city candidates by free text. The current city selection is
// kept.
func (c *Controller) SearchCities(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)

	c.mu.Lock()
	if err := c.requireLocked(func(s *CountryStructure) bool {
		return s.HasCities || s.RecommendedCityField == CityFieldServiceArea || len(c.cities.options) > 0
	}); err != nil {
		c.mu.Unlock()
		return err
	}
	if term == c.citySearch && !c.cities.loading && c.cities.options != nil {
		c.mu.Unlock()
		return nil
	}
	c.citySearch = term
	plan := fetchPlan{c.fetchCitiesLocked(ctx)}
	c.mu.Unlock()

	return plan.run()
}

// SelectPostalCode completes the cascade. An empty value clears the postal code.
func (c *Controller) SelectPostalCode(value string) (Selection, error) {
	value = strings.TrimSpace(value)

	c.mu.Lock()
	if err := c.requireLocked(func(s *CountryStructure) bool { return s.HasPostalCodes }); err != nil {
		c.mu.Unlock()
		return Selection{}, err
	}
	if value == "" {
		c.selection.PostalCode, c.selection.PostalCodeRange = "", ""
		sel := c.selection
		c.mu.Unlock()
		return sel, nil
	}
	pc, ok := find(c.postalCodes.options, func(o PostalCode) bool { return strings.EqualFold(o.Value, value) })
	if !ok {
		c.mu.Unlock()
		return Selection{}, fmt.Errorf("%w: postal code %q", ErrUnknownOption, value)
	}
	c.selection.PostalCode, c.selection.PostalCodeRange = pc.Value, pc.Range
	sel := c.selection
	onResolved := c.onResolved
	c.mu.Unlock()

	if onResolved != nil {
		onResolved(sel)
	}
	return sel, nil
}

// Reset clears the selection and every dependent list. Loaded countries are kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// Close cancels every outstanding fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	c.resetLocked()
	c.countries.clear()
	c.mu.Unlock()
}

func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

func (c *Controller) resetLocked() {
	c.clearBelowLocked(depthCountry)
	c.selection = Selection{}
}

func (c *Controller) clearBelowLocked(d depth) {
	if d <= depthCountry {
		c.structureSeq.stop()
		c.structure = nil
		c.states.clear()
		c.selection.StateCode, c.selection.StateName = "", ""
	}
	if d <= depthState {
		c.cities.clear()
		c.serviceAreas.clear()
		c.citySearch = ""
		c.selection.City = ""
		c.selection.ServiceAreaCode, c.selection.ServiceAreaName = "", ""
	}
	c.postalCodes.clear()
	c.prompt = nil
	c.selection.PostalCode, c.selection.PostalCodeRange = "", ""
}

func (c *Controller) requireLocked(available func(*CountryStructure) bool) error {
	if c.selection.CountryCode == "" {
		return ErrCountryRequired
	}
	if c.structure == nil || !available(c.structure) {
		return ErrLevelUnavailable
	}
	return nil
}

// cityLevelsLocked plans the fetches that follow a country or state selection.
func (c *Controller) cityLevelsLocked(ctx context.Context) fetchPlan {
	s := c.structure
	var plan fetchPlan
	// a service-area recommendation still probes cities; a non-empty list wins
	if s.HasCities || s.RecommendedCityField == CityFieldServiceArea {
		plan = append(plan, c.fetchCitiesLocked(ctx))
	}
	if s.HasServiceAreas {
		plan = append(plan, c.fetchServiceAreasLocked(ctx))
	}
	return append(plan, c.postalLevelLocked(ctx)...)
}

func (c *Controller) postalLevelLocked(ctx context.Context) fetchPlan {
	if !c.postalReadyLocked() {
		return nil
	}
	return fetchPlan{c.fetchPostalCodesLocked(ctx)}
}

func (c *Controller) postalReadyLocked() bool {
	s := c.structure
	if s == nil || !s.HasPostalCodes {
		return false
	}
	if c.selection.City != "" || c.selection.ServiceAreaCode != "" {
		return true
	}
	if s.HasCities || s.HasServiceAreas || len(c.cities.options) > 0 {
		return false
	}
	return !s.HasStates || c.selection.StateCode != ""
}

func (c *Controller) fetchStatesLocked(ctx context.Context) func() error {
	country := c.selection.CountryCode
	lctx, seq := c.states.begin(ctx)
	return func() error {
		return settleList(c, &c.states, seq, c.src.States(lctx, country))
	}
}

func (c *Controller) fetchCitiesLocked(ctx context.Context) func() error {
	q := CityQuery{Country: c.selection.CountryCode, State: c.selection.StateCode, Search: c.citySearch}
	if c.src.Policy().CitiesAtCountryLevel(q.Country) {
		q.State = ""
	}
	lctx, seq := c.cities.begin(ctx)
	return func() error {
		return settleList(c, &c.cities, seq, c.src.Cities(lctx, q))
	}
}

func (c *Controller) fetchServiceAreasLocked(ctx context.Context) func() error {
	q := ServiceAreaQuery{Country: c.selection.CountryCode, State: c.selection.StateCode}
	lctx, seq := c.serviceAreas.begin(ctx)
	return func() error {
		return settleList(c, &c.serviceAreas, seq, c.src.ServiceAreas(lctx, q))
	}
}

func (c *Controller) fetchPostalCodesLocked(ctx context.Context) func() error {
	q := PostalCodeQuery{
		Country:     c.selection.CountryCode,
		State:       c.selection.StateCode,
		City:        c.selection.City,
		ServiceArea: c.selection.ServiceAreaCode,
	}
	lctx, seq := c.postalCodes.begin(ctx)
	c.prompt = nil
	return func() error {
		res := c.src.PostalCodes(lctx, q)

		c.mu.Lock()
		defer c.mu.Unlock()
		if res.RequiresFilters {
			if !c.postalCodes.settle(seq, Result[[]PostalCode]{Success: true, Data: []PostalCode{}}) {
				return nil
			}
			c.prompt = &FilterPrompt{Message: res.Error, Filters: res.AvailableFilters}
			return nil
		}
		if !c.postalCodes.settle(seq, res) {
			c.log.Debugf("discarding superseded postal code response for %s", q.Country)
			return nil
		}
		if errors.Is(res.Err, carrier.ErrUnauthorized) {
			return res.Err
		}
		return nil
	}
}

func settleList[T any](c *Controller, l *level[T], seq uint64, res Result[[]T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !l.settle(seq, res) {
		return nil
	}
	if errors.Is(res.Err, carrier.ErrUnauthorized) {
		return res.Err
	}
	return nil
}

func find[T any](options []T, match func(T) bool) (T, bool) {
	for _, o := range options {
		if match(o) {
			return o, true
		}
	}
	var zero T
	return zero, false
}
