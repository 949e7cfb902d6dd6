package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/boxmin/internal/logging"
	"github.com/copyleftdev/boxmin/internal/optimization"
	"github.com/copyleftdev/boxmin/internal/optimization/bfgs"
	"github.com/copyleftdev/boxmin/internal/optimization/functions"
)

func TestWrapClassifies(t *testing.T) {
	var m bfgs.Minimizer
	bounds := optimization.Bounds{Lower: []float64{0}, Upper: []float64{1}}

	_, numErr := m.Minimize(functions.NaN(1), []float64{0.5}, bounds, 1e-5)
	require.Error(t, numErr)
	_, preErr := m.Minimize(functions.Sphere{N: 2}, []float64{0.5}, bounds, 1e-5)
	require.Error(t, preErr)

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "numerical failure", err: numErr, want: ServerError},
		{name: "precondition", err: preErr, want: InvalidParams},
		{name: "foreign error", err: fmt.Errorf("disk on fire"), want: Internal},
		{name: "already classified", err: New(NotFound, "optimization not found"), want: NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Wrap(tt.err, "job failed")
			assert.Equal(t, tt.want, e.Code)
			assert.Equal(t, tt.want, CodeOf(e))
			assert.ErrorIs(t, e, tt.err)
			assert.Contains(t, e.Error(), "job failed: ")
		})
	}

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, Internal, CodeOf(fmt.Errorf("plain")))
}

func TestObjectCarriesNumericalFailure(t *testing.T) {
	_, err := optimization.Value("numdiff.Gradient", functions.NaN(2), []float64{1, 2})
	require.Error(t, err)

	obj := Wrap(err, "optimization failed").Object()
	assert.Equal(t, ServerError, obj.Code)
	data, ok := obj.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "numdiff.Gradient", data["operation"])
	assert.Equal(t, "[1 2]", data["input"])
	assert.Equal(t, "[NaN]", data["values"])

	_, err = json.Marshal(obj)
	assert.NoError(t, err)
}

func TestInternalErrorsCaptureStack(t *testing.T) {
	assert.NotEmpty(t, New(Internal, "boom").Stack)
	assert.Empty(t, New(InvalidParams, "bad").Stack)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, InvalidParams.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ParseError.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound.HTTPStatus())
	assert.Equal(t, http.StatusUnprocessableEntity, ServerError.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal.HTTPStatus())
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := logging.New(logging.ErrorLevel, &discard{})
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("objective exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		Error   Object `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, Internal, resp.Error.Code)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
