package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// DefaultMaxBody bounds request bodies: 32 MiB.
const DefaultMaxBody = 32 << 20

// DecodeJSON decodes the body of r into v. Bodies larger than limit (or
// DefaultMaxBody when limit is zero), unknown fields and trailing data are
// errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	if limit <= 0 {
		limit = DefaultMaxBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errs.New(errs.ErrCodeInvalidFormat, "request body is empty")
		}
		return errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode request")
	}
	if dec.More() {
		return errs.New(errs.ErrCodeInvalidFormat, "request body has trailing data")
	}
	return nil
}
