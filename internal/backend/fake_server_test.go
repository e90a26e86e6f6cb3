package backend

import (
	"net/http"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const (
	testEndpoint  = "http://appwrite.test/v1"
	testProjectID = "project-1"
	testPlatform  = "com.zel.restate"
	sessionCookie = "a_session_" + testProjectID
)

// fakeBackend is an in-process stand-in for the REST API.
type fakeBackend struct {
	app *fiber.App

	mu       sync.Mutex
	requests []recordedRequest
	users    map[string]string // secret -> userId
	loggedIn string
}

type recordedRequest struct {
	Method  string
	Path    string
	Headers map[string]string
	Queries []string
}

// fiberTransport sends requests straight into the fiber app.
type fiberTransport struct {
	app *fiber.App
}

func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		app:   fiber.New(fiber.Config{DisableStartupMessage: true}),
		users: map[string]string{"s3cret": "user-1"},
	}
	f.app.Use(func(c *fiber.Ctx) error {
		rec := recordedRequest{
			Method:  c.Method(),
			Path:    c.Path(),
			Headers: map[string]string{},
		}
		c.Request().Header.VisitAll(func(k, v []byte) {
			rec.Headers[http.CanonicalHeaderKey(string(k))] = string(v)
		})
		c.Context().QueryArgs().VisitAll(func(k, v []byte) {
			if string(k) == "queries[]" {
				rec.Queries = append(rec.Queries, string(v))
			}
		})
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()
		return c.Next()
	})

	v1 := f.app.Group("/v1")
	v1.Get("/health/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"version": "1.6.0"})
	})
	v1.Post("/account/sessions/token", f.createSession)
	v1.Delete("/account/sessions/:id", f.deleteSession)
	v1.Get("/account", f.getAccount)
	v1.Get("/databases/:db/collections/:coll/documents", f.listDocuments)
	v1.Get("/databases/:db/collections/:coll/documents/:id", f.getDocument)
	return f
}

func apiError(c *fiber.Ctx, code int, typ, msg string) error {
	return c.Status(code).JSON(fiber.Map{"message": msg, "code": code, "type": typ, "version": "1.6.0"})
}

func (f *fakeBackend) authenticated(c *fiber.Ctx) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedIn == "" {
		return false
	}
	return c.Cookies(sessionCookie) == f.loggedIn || c.Get(headerFallbackCookies) != ""
}

func (f *fakeBackend) createSession(c *fiber.Ctx) error {
	var body struct {
		UserID string `json:"userId"`
		Secret string `json:"secret"`
	}
	if err := c.BodyParser(&body); err != nil {
		return apiError(c, fiber.StatusBadRequest, "general_argument_invalid", "invalid body")
	}
	f.mu.Lock()
	userID, ok := f.users[body.Secret]
	if ok && userID == body.UserID {
		f.loggedIn = "sess-" + userID
	}
	f.mu.Unlock()
	if !ok || userID != body.UserID {
		return apiError(c, fiber.StatusUnauthorized, "user_invalid_token", "Invalid token passed in the request.")
	}

	c.Cookie(&fiber.Cookie{Name: sessionCookie, Value: "sess-" + userID, Path: "/"})
	c.Set(headerFallbackCookies, `{"`+sessionCookie+`":"sess-`+userID+`"}`)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"$id":        "sess-" + userID,
		"$createdAt": "2024-11-02T10:15:30.123+00:00",
		"userId":     userID,
		"expire":     "2025-11-02T10:15:30.123+00:00",
		"provider":   "oauth2",
		"current":    true,
	})
}

func (f *fakeBackend) deleteSession(c *fiber.Ctx) error {
	if !f.authenticated(c) {
		return apiError(c, fiber.StatusUnauthorized, "general_unauthorized_scope", "User (role: guests) missing scope (account)")
	}
	f.mu.Lock()
	f.loggedIn = ""
	f.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

func (f *fakeBackend) getAccount(c *fiber.Ctx) error {
	if !f.authenticated(c) {
		return apiError(c, fiber.StatusUnauthorized, "general_unauthorized_scope", "User (role: guests) missing scope (account)")
	}
	return c.JSON(fiber.Map{
		"$id":        "user-1",
		"$createdAt": "2024-11-02T10:15:30.123+00:00",
		"$updatedAt": "2024-11-02T10:15:30.123+00:00",
		"name":       "Ada Lovelace",
		"email":      "ada@example.com",
		"status":     true,
		"labels":     []string{},
		"prefs":      fiber.Map{},
	})
}

func (f *fakeBackend) listDocuments(c *fiber.Ctx) error {
	if c.Params("coll") != "properties" {
		return apiError(c, fiber.StatusNotFound, "collection_not_found", "Collection with the requested ID could not be found.")
	}
	return c.JSON(fiber.Map{
		"total": 1,
		"documents": []fiber.Map{{
			"$id":           "p1",
			"$collectionId": "properties",
			"$databaseId":   c.Params("db"),
			"$createdAt":    "2024-11-02T10:15:30.123+00:00",
			"$updatedAt":    "2024-11-02T10:15:30.123+00:00",
			"$permissions":  []string{},
			"name":          "Sea Loft",
			"type":          "Condo",
		}},
	})
}

func (f *fakeBackend) getDocument(c *fiber.Ctx) error {
	if c.Params("id") != "p1" {
		return apiError(c, fiber.StatusNotFound, "document_not_found", "Document with the requested ID could not be found.")
	}
	return c.JSON(fiber.Map{
		"$id":           "p1",
		"$collectionId": c.Params("coll"),
		"$databaseId":   c.Params("db"),
		"$createdAt":    "2024-11-02T10:15:30.123+00:00",
		"$updatedAt":    "2024-11-02T10:15:30.123+00:00",
		"$permissions":  []string{},
		"name":          "Sea Loft",
	})
}

func (f *fakeBackend) lastRequest() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return recordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestClient(t *testing.T, f *fakeBackend, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: fiberTransport{app: f.app}})}, opts...)
	c, err := NewClient(testEndpoint, testProjectID, testPlatform, opts...)
	require.NoError(t, err)
	return c
}
