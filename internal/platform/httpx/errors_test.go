package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", shared.NewValidation("bad input"), http.StatusBadRequest},
		{"not found", shared.NewNotFound("missing"), http.StatusNotFound},
		{"business rule", shared.NewBusinessRule("rejected"), http.StatusUnprocessableEntity},
		{"conflict", shared.NewConflict("lost update", nil), http.StatusConflict},
		{"infrastructure", shared.NewInfrastructure("db down", errors.New("dial tcp")), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.status, rec.Code)

			var problem ProblemDetail
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
			require.Equal(t, tc.status, problem.Status)
		})
	}
}

func TestRespondErrorHidesInfrastructureDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.NewInfrastructure("store failure", errors.New("password=secret host=10.0.0.1")))

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	require.Empty(t, problem.Detail, "internal causes must not leak to clients")
}
