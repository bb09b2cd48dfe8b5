package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atlas/internal/core"
)

type sample struct {
	Name   string      `json:"name"`
	Amount *core.Money `json:"amount"`
	Count  int         `json:"count"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		strict  bool
		wantErr string
	}{
		{name: "valid", body: `{"name":"a","amount":"1.5","count":2}`},
		{name: "unknown key lenient", body: `{"name":"a","extra":true}`},
		{name: "unknown key strict", body: `{"name":"a","extra":true}`, strict: true, wantErr: `unknown field "extra"`},
		{name: "empty", body: ``, wantErr: "request body is empty"},
		{name: "malformed", body: `{"name":`, wantErr: "malformed JSON body"},
		{name: "wrong field type", body: `{"count":"two"}`, wantErr: "field count has the wrong type"},
		{name: "array instead of object", body: `[1,2]`, wantErr: "wrong shape"},
		{name: "bad money", body: `{"amount":"abc"}`, wantErr: "amount must be a decimal number"},
		{name: "trailing value", body: `{"name":"a"} {"name":"b"}`, wantErr: "single JSON value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var dst sample
			var err error
			if tt.strict {
				err = decodeStrictJSON(w, r, &dst)
			} else {
				err = decodeJSON(w, r, &dst)
			}

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("error %v does not match ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst sample
	err := decodeJSON(httptest.NewRecorder(), r, &dst)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("err = %v", err)
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var (
		got    int64
		gotErr error
	)
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = pathID(r, "id")
	})

	tests := []struct {
		path    string
		want    int64
		wantErr bool
	}{
		{"/items/42", 42, false},
		{"/items/0", 0, true},
		{"/items/-3", 0, true},
		{"/items/abc", 0, true},
	}
	for _, tt := range tests {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
		if (gotErr != nil) != tt.wantErr || got != tt.want {
			t.Errorf("%s: got (%d, %v)", tt.path, got, gotErr)
		}
	}
}

func TestQueryYearMonth(t *testing.T) {
	today := core.NewDate(2024, 2, 24)

	tests := []struct {
		query     string
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"", 2024, 2, false},
		{"?year=2023&month=11", 2023, 11, false},
		{"?month=7", 2024, 7, false},
		{"?year=abc", 0, 0, true},
		{"?month=x", 0, 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		year, month, err := queryYearMonth(r, today)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.query, err)
			continue
		}
		if year != tt.wantYear || month != tt.wantMonth {
			t.Errorf("%q: got %d-%d", tt.query, year, month)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(r)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%q: got (%q, %v)", tt.header, got, ok)
		}
	}
}

func TestFlexibleID(t *testing.T) {
	tests := []struct {
		body    string
		want    int64
		wantErr bool
	}{
		{`{"transaction_id":17}`, 17, false},
		{`{"transaction_id":"17"}`, 17, false},
		{`{"transaction_id":null}`, 0, false},
		{`{"transaction_id":"x"}`, 0, true},
		{`{"transaction_id":1.5}`, 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		var req markReadRequest
		err := decodeJSON(httptest.NewRecorder(), r, &req)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.body, err)
			continue
		}
		if !tt.wantErr && int64(req.TransactionID) != tt.want {
			t.Errorf("%s: got %d", tt.body, req.TransactionID)
		}
	}
}
