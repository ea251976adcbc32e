package location

// FilterPrompt asks the operator to narrow the selection before postal codes load.
type FilterPrompt struct {
	Message string         `json:"message"`
	Filters *FilterOptions `json:"filters,omitempty"`
}

// LevelView is the render state of one cascade level.
type LevelView[T any] struct {
	Options  []T    `json:"options"`
	Loading  bool   `json:"loading"`
	Disabled bool   `json:"disabled"`
	Hidden   bool   `json:"hidden"`
	Error    string `json:"error,omitempty"`
}

// View is a consistent snapshot of a picker.
type View struct {
	Phase        Phase                  `json:"phase"`
	Selection    Selection              `json:"selection"`
	Structure    *CountryStructure      `json:"structure,omitempty"`
	CityField    CityField              `json:"cityField"`
	CitySearch   string                 `json:"citySearch,omitempty"`
	Countries    LevelView[Country]     `json:"countries"`
	States       LevelView[State]       `json:"states"`
	Cities       LevelView[City]        `json:"cities"`
	ServiceAreas LevelView[ServiceArea] `json:"serviceAreas"`
	PostalCodes  LevelView[PostalCode]  `json:"postalCodes"`
	FilterPrompt *FilterPrompt          `json:"filterPrompt,omitempty"`
	Resolved     bool                   `json:"resolved"`
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel := c.selection
	noCountry := sel.CountryCode == ""
	s := c.structure

	v := View{
		Phase:      c.phaseLocked(),
		Selection:  sel,
		CityField:  c.cityFieldLocked(),
		CitySearch: c.citySearch,
		Countries:  levelView(&c.countries, false, false),
		Resolved:   sel.PostalCode != "",
	}
	if s != nil {
		structure := *s
		v.Structure = &structure
	}

	v.States = levelView(&c.states, noCountry, s != nil && !s.HasStates)
	v.Cities = levelView(&c.cities, noCountry,
		s != nil && !s.HasCities && len(c.cities.options) == 0 && !c.cities.loading)
	v.ServiceAreas = levelView(&c.serviceAreas, noCountry, s != nil && !s.HasServiceAreas)

	postalBlocked := noCountry || (len(c.postalCodes.options) == 0 && !c.postalCodes.loading && !c.postalReadyLocked())
	v.PostalCodes = levelView(&c.postalCodes, postalBlocked, s != nil && !s.HasPostalCodes)

	if c.prompt != nil {
		prompt := *c.prompt
		v.FilterPrompt = &prompt
	}
	return v
}

func levelView[T any](l *level[T], prerequisiteUnset, hidden bool) LevelView[T] {
	options := make([]T, len(l.options))
	copy(options, l.options)
	return LevelView[T]{
		Options:  options,
		Loading:  l.loading,
		Disabled: l.loading || prerequisiteUnset,
		Hidden:   hidden,
		Error:    l.err,
	}
}

func (c *Controller) phaseLocked() Phase {
	sel := c.selection
	switch {
	case sel.CountryCode == "":
		return PhaseEmpty
	case sel.PostalCode != "":
		return PhasePostalCodeSelected
	case sel.ServiceAreaCode != "":
		return PhaseServiceAreaOrFilterApplied
	case sel.City != "":
		return PhaseCitySelected
	case sel.StateCode != "":
		return PhaseStateSelected
	}
	return PhaseCountrySelected
}

// cityFieldLocked picks the city-like discriminator: a non-empty live city list wins
// over the structure recommendation.
func (c *Controller) cityFieldLocked() CityField {
	if len(c.cities.options) > 0 || c.structure == nil {
		return CityFieldCity
	}
	if c.structure.RecommendedCityField == CityFieldServiceArea {
		return CityFieldServiceArea
	}
	return CityFieldCity
}
