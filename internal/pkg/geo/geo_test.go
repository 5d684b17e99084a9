package geo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDisabledEnricherReturnsEmpty(t *testing.T) {
	e := &disabledEnricher{}
	assert.True(t, e.Lookup(context.Background(), "8.8.8.8").IsEmpty())
}

func TestHTTPEnricherResolvesLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		fmt.Fprint(w, `{"country":"India","countryCode":"IN","regionName":"Karnataka","region":"KA","city":"Bengaluru"}`)
	}))
	defer server.Close()

	e := &httpEnricher{
		endpoint: server.URL,
		timeout:  time.Second,
		client:   server.Client(),
		logger:   testLogger(),
	}

	loc := e.Lookup(context.Background(), "203.0.113.7")
	assert.Equal(t, "India", loc.Country)
	assert.Equal(t, "IN", loc.CountryCode)
	assert.Equal(t, "Karnataka", loc.Region)
	assert.Equal(t, "KA", loc.RegionCode)
	assert.Equal(t, "Bengaluru", loc.City)
}

func TestHTTPEnricherEmptyIP(t *testing.T) {
	e := &httpEnricher{endpoint: "http://127.0.0.1:1", timeout: time.Second, client: &http.Client{}, logger: testLogger()}
	assert.True(t, e.Lookup(context.Background(), "").IsEmpty())
}

func TestHTTPEnricherTimeoutReturnsEmpty(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	e := &httpEnricher{
		endpoint: server.URL,
		timeout:  50 * time.Millisecond,
		client:   server.Client(),
		logger:   testLogger(),
	}

	start := time.Now()
	loc := e.Lookup(context.Background(), "203.0.113.7")
	assert.True(t, loc.IsEmpty())
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPEnricherNon2xxReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := &httpEnricher{
		endpoint: server.URL,
		timeout:  time.Second,
		client:   server.Client(),
		logger:   testLogger(),
	}
	assert.True(t, e.Lookup(context.Background(), "203.0.113.7").IsEmpty())
}

func TestHTTPEnricherBadJSONReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer server.Close()

	e := &httpEnricher{
		endpoint: server.URL,
		timeout:  time.Second,
		client:   server.Client(),
		logger:   testLogger(),
	}
	assert.True(t, e.Lookup(context.Background(), "203.0.113.7").IsEmpty())
}

func TestMMDBEnricherInvalidIP(t *testing.T) {
	e := &mmdbEnricher{timeout: time.Second, logger: testLogger()}
	assert.True(t, e.Lookup(context.Background(), "not-an-ip").IsEmpty())
}
