package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.New(errs.ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{errs.New(errs.ErrCodeUnknownVertex, "x"), http.StatusBadRequest},
		{errs.New(errs.ErrCodeCycle, "x"), http.StatusUnprocessableEntity},
		{errs.Wrap(errs.ErrCodeConstraintConflict, errs.New(errs.ErrCodeCycle, "inner"), "x"), http.StatusUnprocessableEntity},
		{errs.New(errs.ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	status := WriteError(rec, errs.New(errs.ErrCodeDegenerateInput, "x is constant"))
	if status != http.StatusUnprocessableEntity || rec.Code != status {
		t.Errorf("WriteError() status = %d, recorded %d", status, rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != errs.ErrCodeDegenerateInput || body.Error.Message != "x is constant" {
		t.Errorf("WriteError() body = %+v", body)
	}

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("boom"))
	if !strings.Contains(rec.Body.String(), `"INTERNAL_ERROR"`) {
		t.Errorf("WriteError(plain) body = %s", rec.Body)
	}
}

func TestDecodeJSON(t *testing.T) {
	type req struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name  string
		body  string
		limit int64
		ok    bool
	}{
		{"valid", `{"name": "x"}`, 0, true},
		{"empty", ``, 0, false},
		{"unknown field", `{"nom": "x"}`, 0, false},
		{"trailing", `{"name": "x"} {}`, 0, false},
		{"too large", `{"name": "xxxxxxxxxxxxxxxx"}`, 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v req
			err := DecodeJSON(httptest.NewRecorder(), r, &v, tt.limit)
			if (err == nil) != tt.ok {
				t.Errorf("DecodeJSON() error = %v, want ok %v", err, tt.ok)
			}
		})
	}
}
