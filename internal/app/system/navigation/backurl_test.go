package navigation

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeBackURL(t *testing.T) {
	cases := []struct {
		name string
		ret  string
		want string
	}{
		{"empty", "", "/"},
		{"page", "/products?x=1", "/products?x=1"},
		{"absolute url rejected", "https://evil.example/", "/"},
		{"scheme relative rejected", "//evil.example/", "/"},
		{"login excluded", "/login?return=/users", "/"},
		{"fragment endpoint excluded", "/users/table", "/"},
		{"push endpoint excluded", "/loans/live", "/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/login?return="+url.QueryEscape(tc.ret), nil)
			assert.Equal(t, tc.want, SafeBackURL(r, LoginReturn))
		})
	}
}

func TestSafeBackURLFromForm(t *testing.T) {
	form := url.Values{"return": {"/loan-users"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, "/loan-users", SafeBackURL(r, LoginReturn))
}

func TestSafeBackURLPrefix(t *testing.T) {
	opts := BackURLOptions{AllowedPrefix: "/products", Fallback: "/products"}
	r := httptest.NewRequest(http.MethodGet, "/?return=/users", nil)
	assert.Equal(t, "/products", SafeBackURL(r, opts))
}
