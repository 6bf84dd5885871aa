package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestURLOrigin(t *testing.T) {
	cases := []struct {
		URL    string
		Want   string
		HasErr bool
	}{
		{"ws://localhost:8080/rpc", "http://localhost:8080", false},
		{"wss://example.com/rpc?x=1", "https://example.com", false},
		{"https://example.com", "https://example.com", false},
		{"ftp://example.com", "", true},
	}

	for _, tc := range cases {
		got, err := URLOrigin(tc.URL)
		if (err != nil) != tc.HasErr {
			t.Errorf("%s: unexpected error state: %v", tc.URL, err)
			continue
		}
		if got != tc.Want {
			t.Errorf("%s: got: %q; want %q", tc.URL, got, tc.Want)
		}
	}
}

func TestCheckOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if !CheckOrigin(r, "https://example.com") {
		t.Error("requests without Origin should be accepted")
	}
	if got, want := RequestOrigin(r), r.RemoteAddr; got != want {
		t.Errorf("got: %q; want %q", got, want)
	}

	r.Header.Set("Origin", "https://evil.com")
	if CheckOrigin(r, "https://example.com") {
		t.Error("mismatched origin should be rejected")
	}
	if !CheckOrigin(r, "*") {
		t.Error("any origin should be accepted")
	}
	if got, want := RequestOrigin(r), "https://evil.com"; got != want {
		t.Errorf("got: %q; want %q", got, want)
	}
}
