package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"atlas/internal/auth"
	"atlas/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, false)
}

// decodeStrictJSON is decodeJSON rejecting keys dst does not declare.
func decodeStrictJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		var (
			ve       *core.ValidationError
			tooLarge *http.MaxBytesError
			typeErr  *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &ve):
			return err
		case errors.Is(err, io.EOF):
			return core.Invalid("body", "request body is empty")
		case errors.As(err, &tooLarge):
			return core.Invalid("body", "request body too large")
		case errors.As(err, &typeErr):
			if typeErr.Field == "" {
				return core.Invalid("body", "request body has the wrong shape")
			}
			return core.Invalid(typeErr.Field, "field "+typeErr.Field+" has the wrong type")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return core.Invalid("body", "unknown field "+field)
		default:
			return core.Invalid("body", "malformed JSON body")
		}
	}

	if dec.More() {
		return core.Invalid("body", "request body must contain a single JSON value")
	}
	return nil
}

// pathID parses a positive integer path wildcard.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid(name, name+" must be a positive integer")
	}
	return id, nil
}

// pathYearMonth reads the {year} and {month} wildcards.
func pathYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, 0, core.Invalid("year", "year must be a number")
	}
	month, err = strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return 0, 0, core.Invalid("month", "month must be a number")
	}
	return year, month, nil
}

// queryYearMonth reads ?year=&month=, defaulting each to the month of today.
func queryYearMonth(r *http.Request, today core.Date) (year, month int, err error) {
	year, month = today.Year(), today.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, core.Invalid("year", "year must be a number")
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, core.Invalid("month", "month must be a number")
		}
	}
	return year, month, nil
}

// bearerToken extracts the credential of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// principal returns the caller set by requireAuth.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}
