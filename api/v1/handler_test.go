// Package v1_test contains tests for the API v1 handlers
package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebeam/internal/events"
	"sitebeam/internal/testsupport"
)

const testTimeoutMs = 5000

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	resp, err := app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body), "body: %s", string(raw))
	return body
}

func loginTestAdmin(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	resp := postJSON(t, app, "/x/api/v1/admin/login", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	req := httptest.NewRequest("GET", "/_health", nil)
	resp, err := app.Test(req, testTimeoutMs)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestBeaconEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	t.Run("stores a classified page view", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		resp := postJSON(t, app, "/x/api/v1/beacon", map[string]interface{}{
			"path":     "/pricing",
			"clientId": "client-abc",
			"referrer": "https://www.google.com/search?q=sitebeam",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])

		var pv events.PageView
		require.NoError(t, db.First(&pv).Error)
		assert.Equal(t, "/pricing", pv.Path)
		assert.Equal(t, "client-abc", pv.ClientID)
		assert.Equal(t, "organic", pv.SourceCategory)
		assert.True(t, pv.IsOrganic)
		assert.Equal(t, "www.google.com", pv.ReferrerHost)
		assert.Equal(t, "desktop", pv.DeviceType)
		assert.Equal(t, "chrome", pv.Browser)
	})

	t.Run("malformed payload still returns success", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		req := httptest.NewRequest("POST", "/x/api/v1/beacon", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Safari/604.1")

		resp, err := app.Test(req, testTimeoutMs)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])

		// The view is still recorded with the fields the server derives itself.
		var pv events.PageView
		require.NoError(t, db.First(&pv).Error)
		assert.Equal(t, "/", pv.Path)
		assert.Equal(t, "direct", pv.SourceCategory)
		assert.Equal(t, "mobile", pv.DeviceType)
	})

	t.Run("accepts any fetch context", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		// Cross-site browser posts and clients sending no fetch
		// metadata at all must both get through.
		for _, fetchSite := range []string{"cross-site", "same-site", "same-origin", ""} {
			req := httptest.NewRequest("POST", "/x/api/v1/beacon", strings.NewReader(`{"path":"/docs"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0")
			req.Header.Set("Origin", "https://example.com")
			if fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", fetchSite)
			}

			resp, err := app.Test(req, testTimeoutMs)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode, "Sec-Fetch-Site=%q", fetchSite)

			body := decodeBody(t, resp)
			assert.Equal(t, true, body["success"])
		}
	})

	t.Run("preflight is allowed", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/x/api/v1/beacon", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")

		resp, err := app.Test(req, testTimeoutMs)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestLoginEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CleanAllTables(db)
	testsupport.CreateTestUser(t, db, "admin@example.com", "correct-horse")

	t.Run("valid credentials issue a token", func(t *testing.T) {
		resp := postJSON(t, app, "/x/api/v1/admin/login", map[string]string{
			"email":    "admin@example.com",
			"password": "correct-horse",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["token"])

		expiresAt, ok := body["expiresAt"].(string)
		require.True(t, ok)
		_, err := time.Parse(time.RFC3339, expiresAt)
		assert.NoError(t, err)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		resp := postJSON(t, app, "/x/api/v1/admin/login", map[string]string{
			"email":    "admin@example.com",
			"password": "battery-staple",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		resp := postJSON(t, app, "/x/api/v1/admin/login", map[string]string{
			"email":    "ghost@example.com",
			"password": "whatever",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	paths := []string{
		"/x/api/v1/admin/summary",
		"/x/api/v1/admin/settings",
		"/x/api/v1/admin/messages",
		"/x/api/v1/admin/subscribers",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			resp, err := app.Test(req, testTimeoutMs)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			req = httptest.NewRequest("GET", path, nil)
			req.Header.Set("Authorization", "Bearer not-a-real-token")
			resp, err = app.Test(req, testTimeoutMs)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSummaryEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CleanAllTables(db)
	testsupport.CreateTestUser(t, db, "admin@example.com", "correct-horse")
	token := loginTestAdmin(t, app, "admin@example.com", "correct-horse")

	now := time.Now().UTC()
	testsupport.CreatePageView(t, db, func(pv *events.PageView) {
		pv.ClientID = "client-1"
		pv.SourceCategory = "organic"
		pv.IsOrganic = true
		pv.ReferrerHost = "www.google.com"
		pv.CreatedAt = now
	})
	testsupport.CreatePageView(t, db, func(pv *events.PageView) {
		pv.ClientID = "client-2"
		pv.Path = "/pricing"
		pv.CreatedAt = now
	})

	req := httptest.NewRequest("GET", "/x/api/v1/admin/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["dbConfigured"])
	assert.EqualValues(t, 2, body["totalPageViews"])
	assert.EqualValues(t, 2, body["totalVisitors"])
	assert.EqualValues(t, 1, body["organicCount"])

	t.Run("explicit range excludes events outside it", func(t *testing.T) {
		start := now.AddDate(0, 0, -60).Format("2006-01-02")
		end := now.AddDate(0, 0, -30).Format("2006-01-02")

		req := httptest.NewRequest("GET",
			fmt.Sprintf("/x/api/v1/admin/summary?start=%s&end=%s", start, end), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, testTimeoutMs)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["dbConfigured"])
		assert.EqualValues(t, 0, body["totalPageViews"])
	})
}

func TestSiteConfigEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CleanAllTables(db)

	req := httptest.NewRequest("GET", "/x/api/v1/site-config", nil)
	resp, err := app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Sitebeam", body["companyName"])
	assert.Equal(t, false, body["maintenanceMode"])

	// Public config must not leak admin-only fields.
	_, hasTimezone := body["timezone"]
	assert.False(t, hasTimezone)
}

func TestSettingsEndpoints(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CleanAllTables(db)
	testsupport.CreateTestUser(t, db, "admin@example.com", "correct-horse")
	token := loginTestAdmin(t, app, "admin@example.com", "correct-horse")

	req := httptest.NewRequest("GET", "/x/api/v1/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Sitebeam", body["companyName"])
	assert.Equal(t, "UTC", body["timezone"])

	update := map[string]interface{}{
		"companyName":        "Beam Industries",
		"websiteUrl":         "https://beam.example",
		"timezone":           "Europe/Madrid",
		"language":           "es",
		"maintenanceMode":    true,
		"maintenanceMessage": "upgrading",
	}
	payload, err := json.Marshal(update)
	require.NoError(t, err)

	req = httptest.NewRequest("POST", "/x/api/v1/admin/settings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/x/api/v1/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decodeBody(t, resp)
	assert.Equal(t, "Beam Industries", body["companyName"])
	assert.Equal(t, true, body["maintenanceMode"])

	// The public endpoint reflects the maintenance flag immediately.
	req = httptest.NewRequest("GET", "/x/api/v1/site-config", nil)
	resp, err = app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = decodeBody(t, resp)
	assert.Equal(t, true, body["maintenanceMode"])
	assert.Equal(t, "upgrading", body["maintenanceMessage"])
}

func TestContactEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CleanAllTables(db)

	t.Run("valid submission", func(t *testing.T) {
		resp := postJSON(t, app, "/x/api/v1/contact", map[string]string{
			"name":    "Ada",
			"email":   "ada@example.com",
			"subject": "Pricing",
			"message": "Do you offer annual plans?",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("invalid email", func(t *testing.T) {
		resp := postJSON(t, app, "/x/api/v1/contact", map[string]string{
			"name":    "Bob",
			"email":   "not-an-email",
			"message": "hi",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("admin inbox lists and marks submissions", func(t *testing.T) {
		testsupport.CreateTestUser(t, db, "admin@example.com", "correct-horse")
		token := loginTestAdmin(t, app, "admin@example.com", "correct-horse")

		req := httptest.NewRequest("GET", "/x/api/v1/admin/messages", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req, testTimeoutMs)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var msgs []map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msgs))
		require.Len(t, msgs, 1)

		id := int(msgs[0]["ID"].(float64))
		req = httptest.NewRequest("POST", fmt.Sprintf("/x/api/v1/admin/messages/%d/read", id), nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = app.Test(req, testTimeoutMs)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestSubscribeEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CleanAllTables(db)

	resp := postJSON(t, app, "/x/api/v1/subscribe", map[string]string{
		"email": "reader@example.com",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/x/api/v1/subscribe", map[string]string{
		"email": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	testsupport.CreateTestUser(t, db, "admin@example.com", "correct-horse")
	token := loginTestAdmin(t, app, "admin@example.com", "correct-horse")

	req := httptest.NewRequest("GET", "/x/api/v1/admin/subscribers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	respList, err := app.Test(req, testTimeoutMs)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, respList.StatusCode)

	raw, err := io.ReadAll(respList.Body)
	require.NoError(t, err)

	var subs []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "reader@example.com", subs[0]["Email"])
}
