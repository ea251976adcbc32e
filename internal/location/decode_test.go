package location

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/internal/carrier"
)

func envelope(t *testing.T, data interface{}) carrier.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return carrier.Envelope{Success: true, Data: raw}
}

func TestDecodeList_NullAndEmpty(t *testing.T) {
	decode := decodeList(decodeState)

	got, err := decode(carrier.Envelope{Success: true})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = decode(carrier.Envelope{Success: true, Data: json.RawMessage("null")})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decode(carrier.Envelope{Success: true, Data: json.RawMessage(`{"code":"CA"}`)})
	assert.Error(t, err)
}

func TestDecodeState_FallsBackToName(t *testing.T) {
	got, err := decodeList(decodeState)(envelope(t, []interface{}{
		map[string]string{"provinceName": "ontario"},
		map[string]interface{}{"code": 12, "name": "Numeric"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []State{{Code: "ONTARIO", Name: "ontario"}, {Code: "12", Name: "Numeric"}}, got)
}

func TestDecodeCity_DistinctPerState(t *testing.T) {
	got, err := decodeList(decodeCity)(envelope(t, []map[string]string{
		{"name": "Springfield", "stateCode": "IL"},
		{"cityName": "springfield", "state": "il"},
		{"name": "Springfield", "stateCode": "MO"},
		{"serviceArea": "x"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []City{
		{Name: "Springfield", StateCode: "IL"},
		{Name: "Springfield", StateCode: "MO"},
	}, got)
}

func TestDecodeServiceArea(t *testing.T) {
	got, err := decodeList(decodeServiceArea)(envelope(t, []map[string]string{
		{"serviceAreaCode": "dxb", "description": "Dubai"},
		{"code": "AUH"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []ServiceArea{{Code: "DXB", Name: "Dubai"}, {Code: "AUH", Name: "AUH"}}, got)
}

func TestDecodePostalCode(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]string
		want PostalCode
	}{
		{"plain", map[string]string{"postalCode": "10115"}, PostalCode{Value: "10115", Range: "10115"}},
		{"display range", map[string]string{"value": "1000", "displayRange": "1000-1099"}, PostalCode{Value: "1000", Range: "1000-1099"}},
		{"from to", map[string]string{"from": "2000", "to": "2999"}, PostalCode{Value: "2000", Range: "2000 - 2999"}},
		{"same bounds", map[string]string{"from": "3000", "to": "3000"}, PostalCode{Value: "3000", Range: "3000"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, key := decodePostalCode(record(toInterfaces(tc.in)))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want.Value, key)
		})
	}
}

func toInterfaces(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func TestDeriveStructure(t *testing.T) {
	t.Run("counts", func(t *testing.T) {
		s := deriveStructure("US", record{"stateCount": 51.0, "cityCount": 19000.0, "postalCodeCount": 41000.0})
		assert.True(t, s.HasStates)
		assert.True(t, s.HasCities)
		assert.False(t, s.HasServiceAreas)
		assert.True(t, s.HasPostalCodes)
		assert.Equal(t, CityFieldCity, s.RecommendedCityField)
	})

	t.Run("flags win over counts", func(t *testing.T) {
		s := deriveStructure("GB", record{"stateCount": 4.0, "hasStates": false})
		assert.False(t, s.HasStates)
		assert.Equal(t, 4, s.StateCount)
	})

	t.Run("explicit recommendation", func(t *testing.T) {
		s := deriveStructure("QA", record{"cityCount": 3.0, "recommendedCityField": "service_area"})
		assert.Equal(t, CityFieldServiceArea, s.RecommendedCityField)
	})

	t.Run("service areas without cities", func(t *testing.T) {
		s := deriveStructure("AE", record{"serviceAreaCount": 8.0})
		assert.Equal(t, CityFieldServiceArea, s.RecommendedCityField)
	})
}

func TestDecodeStructure_RejectsLists(t *testing.T) {
	_, err := decodeStructure("US")(envelope(t, []string{"US"}))
	assert.Error(t, err)
}
