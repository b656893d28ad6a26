package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHTTP(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantKind    Kind
		wantMessage string
	}{
		{"typed", Expired("link expired"), http.StatusNotFound, KindExpired, "link expired"},
		{"capacity", CapacityExhausted("no codes left"), http.StatusServiceUnavailable, KindCapacityExhausted, "no codes left"},
		{"untyped hides cause", errors.New("pq: relation users does not exist"), http.StatusInternalServerError, KindStore, "internal error"},
		{"store hides cause", Store(errors.New("disk full")), http.StatusInternalServerError, KindStore, "storage failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Error errorBody `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error.Kind)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
			assert.NotContains(t, rec.Body.String(), "disk full")
		})
	}
}
