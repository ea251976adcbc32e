package carrier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrap(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		success     bool
		data        string
		errMsg      string
		requiresFil bool
	}{
		{name: "bare array", body: `[1,2]`, success: true, data: `[1,2]`},
		{name: "bare object", body: `{"code":"US"}`, success: true, data: `{"code":"US"}`},
		{name: "envelope", body: `{"success":true,"data":["a"]}`, success: true, data: `["a"]`},
		{name: "data only", body: `{"data":{"x":1}}`, success: true, data: `{"x":1}`},
		{name: "failure with message", body: `{"success":false,"message":"nope"}`, errMsg: "nope"},
		{name: "failure with error", body: `{"success":false,"error":"bad","message":"ignored"}`, errMsg: "bad"},
		{name: "filters", body: `{"success":false,"requiresFilters":true}`, requiresFil: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Unwrap([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.success, env.Success)
			assert.Equal(t, tc.errMsg, env.Error)
			assert.Equal(t, tc.requiresFil, env.RequiresFilters)
			if tc.data != "" {
				assert.JSONEq(t, tc.data, string(env.Data))
			}
		})
	}
}

func TestUnwrap_Malformed(t *testing.T) {
	for _, body := range []string{"", "null", `"text"`, `{broken`, "42"} {
		_, err := Unwrap([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}

func TestDecodeData(t *testing.T) {
	var out []string
	require.NoError(t, DecodeData([]byte(`{"success":true,"data":["a","b"]}`), &out))
	assert.Equal(t, []string{"a", "b"}, out)

	var quote RateQuote
	require.NoError(t, DecodeData([]byte(`{"success":true,"data":null}`), &quote))
	assert.Empty(t, quote.Products)

	err := DecodeData([]byte(`{"success":false}`), &out)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "request was not successful", apiErr.Message)

	assert.ErrorIs(t, DecodeData([]byte(`{"data":"x"}`), &out), ErrMalformedResponse)
}
