package di_test

import (
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "restate/internal/auth/adapter/http"
	"restate/internal/auth/provider"
	"restate/internal/backend/memory"
	"restate/internal/backend/model"
	"restate/internal/config"
	"restate/internal/di"
	"restate/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ContainerTestSuite struct {
	suite.Suite
	container *di.Container
}

func (suite *ContainerTestSuite) SetupTest() {
	cfg := config.DefaultConfig()
	cfg.Backend.ProjectID = "project-1"
	cfg.Backend.MemorySeedFile = "../backend/memory/testdata/seed.json"
	cfg.AuthSession.OpenBrowser = false

	suite.container = di.NewContainer(cfg, logger.Nop())
	suite.Require().NoError(suite.container.Initialize())
}

func (suite *ContainerTestSuite) TearDownTest() {
	suite.NoError(suite.container.Close())
}

func (suite *ContainerTestSuite) TestInitialize_MemoryDriver() {
	suite.NotNil(suite.container.GetAuthModule())
	suite.NotNil(suite.container.GetPropertyModule())
	suite.NotNil(suite.container.Browser)
	suite.IsType(&memory.Backend{}, suite.container.Backend)

	suite.Equal(config.DriverMemory, suite.container.Config.Backend.Driver)
}

func (suite *ContainerTestSuite) TestHealthEndpoint() {
	app := suite.container.NewApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	suite.Require().NoError(err)
	suite.Equal(200, resp.StatusCode)

	var body map[string]interface{}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.Equal("HEALTHY", body["status"])
	suite.Equal(config.DriverMemory, body["driver"])
}

func (suite *ContainerTestSuite) TestLatestPropertiesEndpoint() {
	app := suite.container.NewApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/properties/latest", nil))
	suite.Require().NoError(err)
	suite.Equal(200, resp.StatusCode)

	var body struct {
		Documents []model.Document `json:"documents"`
	}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	suite.Require().Len(body.Documents, 5)
	suite.Equal("p1", body.Documents[0].ID)
}

func (suite *ContainerTestSuite) TestPropertyByIDEndpoint() {
	app := suite.container.NewApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/properties/p3", nil))
	suite.Require().NoError(err)
	suite.Equal(200, resp.StatusCode)

	var doc model.Document
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&doc))
	suite.Equal("Garden Villa", doc.String("name"))

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/properties/missing", nil))
	suite.Require().NoError(err)
	suite.Equal(404, resp.StatusCode)
}

func (suite *ContainerTestSuite) TestMetricsEndpoint() {
	app := suite.container.NewApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	suite.Require().NoError(err)
	suite.Equal(200, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.Contains(string(raw), "go_goroutines")
}

func (suite *ContainerTestSuite) TestResponsesCarryRequestID() {
	app := suite.container.NewApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	suite.Require().NoError(err)
	suite.NotEmpty(resp.Header.Get("X-Request-ID"))
}

func TestContainerTestSuite(t *testing.T) {
	suite.Run(t, new(ContainerTestSuite))
}

func TestInitializeBackend_UnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.Driver = "sqlite"

	c := di.NewContainer(cfg, logger.Nop())
	err := c.InitializeBackend()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestInitializeAuth_RequiresBackend(t *testing.T) {
	c := di.NewContainer(config.DefaultConfig(), logger.Nop())
	assert.Error(t, c.InitializeAuth())
	assert.Error(t, c.InitializeProperty())
}

func TestHealthCheck_UnreachableHTTPBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.Driver = config.DriverHTTP
	cfg.Backend.Endpoint = "http://127.0.0.1:1/v1"
	cfg.Backend.ProjectID = "project-1"

	c := di.NewContainer(cfg, logger.Nop())
	require.NoError(t, c.Initialize())
	defer func() { _ = c.Close() }()

	app := c.NewApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestSessionEndpoint_NotLoggedIn(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.ProjectID = "project-1"

	c := di.NewContainer(cfg, logger.Nop())
	require.NoError(t, c.Initialize())
	defer func() { _ = c.Close() }()

	app := c.NewApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["isLoggedIn"])
}

func freeLoopbackAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func decodeJSON[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestGateway_LoginFlowWithMemoryBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.ProjectID = "project-1"
	cfg.Backend.MemorySeedFile = "../backend/memory/testdata/seed.json"
	cfg.AuthSession.OpenBrowser = false
	cfg.AuthSession.CallbackAddr = freeLoopbackAddr(t)
	cfg.AuthSession.Timeout = 10 * time.Second

	c := di.NewContainer(cfg, logger.Nop())
	require.NoError(t, c.Initialize())
	defer func() { _ = c.Close() }()
	c.Start()
	app := c.NewApp()

	getSession := func() provider.SessionState {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session", nil))
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		return decodeJSON[provider.SessionState](t, resp.Body)
	}

	require.Eventually(t, func() bool { return !getSession().Loading }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, getSession().IsLoggedIn)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/v1/session/login", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	login := decodeJSON[authhttp.ActionResponse](t, resp.Body)
	assert.True(t, login.Success)
	assert.True(t, login.Session.IsLoggedIn)
	assert.False(t, login.Session.Loading)

	state := getSession()
	assert.True(t, state.IsLoggedIn)
	require.NotNil(t, state.User)
	assert.Equal(t, "Ada Lovelace", state.User.Name)
	assert.Contains(t, state.User.Avatar, "name=Ada+Lovelace")

	resp, err = app.Test(httptest.NewRequest("POST", "/api/v1/session/logout", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	logout := decodeJSON[authhttp.ActionResponse](t, resp.Body)
	assert.True(t, logout.Success)
	assert.False(t, logout.Session.IsLoggedIn)

	state = getSession()
	assert.False(t, state.IsLoggedIn)
	assert.Nil(t, state.User)
	assert.False(t, state.Loading)
}

func TestGateway_PropertyListingWithMemoryBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend.ProjectID = "project-1"
	cfg.Backend.MemorySeedFile = "../backend/memory/testdata/seed.json"

	c := di.NewContainer(cfg, logger.Nop())
	require.NoError(t, c.Initialize())
	defer func() { _ = c.Close() }()
	app := c.NewApp()

	type listing struct {
		Documents []model.Document `json:"documents"`
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/properties?filter=All&limit=10", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	all := decodeJSON[listing](t, resp.Body)
	require.Len(t, all.Documents, 6)
	for i := 1; i < len(all.Documents); i++ {
		assert.False(t, all.Documents[i].CreatedAt.After(all.Documents[i-1].CreatedAt))
	}
	assert.Equal(t, "p6", all.Documents[0].ID)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/properties?filter=Villa", nil))
	require.NoError(t, err)
	villas := decodeJSON[listing](t, resp.Body)
	require.Len(t, villas.Documents, 1)
	assert.Equal(t, "p3", villas.Documents[0].ID)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/properties?query=seaside", nil))
	require.NoError(t, err)
	found := decodeJSON[listing](t, resp.Body)
	require.Len(t, found.Documents, 1)
	assert.Equal(t, "p3", found.Documents[0].ID)
}
