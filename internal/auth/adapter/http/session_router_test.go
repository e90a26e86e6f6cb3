package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	authhttp "restate/internal/auth/adapter/http"
	"restate/internal/auth/domain/model"
	"restate/internal/auth/provider"
	backendmodel "restate/internal/backend/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// Mock session usecase
type mockSessionUsecase struct {
	mock.Mock
}

func (m *mockSessionUsecase) Login(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockSessionUsecase) Logout(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockSessionUsecase) GetCurrentUser(ctx context.Context) *model.User {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*model.User)
}

// switchableUser is what the provider reads in these tests.
type switchableUser struct {
	mu   sync.Mutex
	user *model.User
}

func (s *switchableUser) set(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

func (s *switchableUser) get(context.Context) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

type SessionHTTPTestSuite struct {
	suite.Suite
	app      *fiber.App
	usecase  *mockSessionUsecase
	users    *switchableUser
	provider *provider.GlobalProvider
}

func (suite *SessionHTTPTestSuite) SetupTest() {
	suite.usecase = &mockSessionUsecase{}
	suite.users = &switchableUser{}
	suite.provider = provider.NewGlobalProvider(suite.users.get)

	suite.app = fiber.New()
	api := suite.app.Group("/api/v1", authhttp.ProvideGlobalContext(suite.provider))
	authhttp.NewSessionHTTPHandler(suite.usecase, nil).RegisterRoutes(api)
}

func TestSessionHTTPTestSuite(t *testing.T) {
	suite.Run(t, new(SessionHTTPTestSuite))
}

func (suite *SessionHTTPTestSuite) do(method, path string, out interface{}) int {
	resp, err := suite.app.Test(httptest.NewRequest(method, path, nil), -1)
	suite.Require().NoError(err)
	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	if out != nil {
		suite.Require().NoError(json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func ada() *model.User {
	return model.NewUser(backendmodel.Account{ID: "user-1", Name: "Ada"}, "memory://avatars/initials?name=Ada")
}

func (suite *SessionHTTPTestSuite) TestGetSession_BeforeMountIsLoading() {
	var state provider.SessionState
	suite.Equal(fiber.StatusOK, suite.do("GET", "/api/v1/session", &state))
	suite.True(state.Loading)
	suite.False(state.IsLoggedIn)
}

func (suite *SessionHTTPTestSuite) TestLogin_SuccessRefetchesSession() {
	suite.usecase.On("Login", mock.Anything).Run(func(mock.Arguments) {
		suite.users.set(ada())
	}).Return(true)

	var resp authhttp.ActionResponse
	suite.Equal(fiber.StatusOK, suite.do("POST", "/api/v1/session/login", &resp))
	suite.True(resp.Success)
	suite.True(resp.Session.IsLoggedIn)
	suite.Require().NotNil(resp.Session.User)
	suite.Equal("Ada", resp.Session.User.Name)
	suite.NotEmpty(resp.Session.User.Avatar)

	var state provider.SessionState
	suite.do("GET", "/api/v1/session", &state)
	suite.True(state.IsLoggedIn)
}

func (suite *SessionHTTPTestSuite) TestLogin_Failure() {
	suite.usecase.On("Login", mock.Anything).Return(false)

	var resp authhttp.ActionResponse
	suite.Equal(fiber.StatusUnauthorized, suite.do("POST", "/api/v1/session/login", &resp))
	suite.False(resp.Success)
	suite.False(resp.Session.IsLoggedIn)
}

func (suite *SessionHTTPTestSuite) TestLogout() {
	suite.users.set(ada())
	suite.provider.Refetch(context.Background())

	suite.usecase.On("Logout", mock.Anything).Run(func(mock.Arguments) {
		suite.users.set(nil)
	}).Return(true).Once()

	var resp authhttp.ActionResponse
	suite.Equal(fiber.StatusOK, suite.do("POST", "/api/v1/session/logout", &resp))
	suite.True(resp.Success)
	suite.False(resp.Session.IsLoggedIn)

	suite.usecase.On("Logout", mock.Anything).Return(false).Once()
	suite.Equal(fiber.StatusBadGateway, suite.do("POST", "/api/v1/session/logout", &resp))
	suite.False(resp.Success)
}

func (suite *SessionHTTPTestSuite) TestRefetch() {
	suite.users.set(ada())

	var state provider.SessionState
	suite.Equal(fiber.StatusOK, suite.do("POST", "/api/v1/session/refetch", &state))
	suite.True(state.IsLoggedIn)
	suite.False(state.Loading)
}

func (suite *SessionHTTPTestSuite) TestOutsideProvider() {
	app := fiber.New()
	authhttp.NewSessionHTTPHandler(suite.usecase, nil).RegisterRoutes(app.Group("/api/v1"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/session", nil))
	suite.Require().NoError(err)
	suite.Equal(fiber.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	suite.Contains(string(body), provider.ErrOutsideProvider.Error())
}
