package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/web/middleware"
)

// MockGalleryService is a mock implementation of GalleryService
type MockGalleryService struct {
	mock.Mock
}

func (m *MockGalleryService) Add(ctx context.Context, name, contact string, embedding []float64, image []byte) (*domain.Identity, error) {
	args := m.Called(ctx, name, contact, embedding, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

func (m *MockGalleryService) Search(ctx context.Context, field repository.SearchField, substring string) ([]domain.Identity, error) {
	args := m.Called(ctx, field, substring)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Identity), args.Error(1)
}

func (m *MockGalleryService) Update(ctx context.Context, id int64, name, contact string) error {
	args := m.Called(ctx, id, name, contact)
	return args.Error(0)
}

func (m *MockGalleryService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGalleryService) Get(ctx context.Context, id int64) (*domain.Identity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

// MockCapturer is a mock implementation of Capturer
type MockCapturer struct {
	mock.Mock
}

func (m *MockCapturer) CaptureOnce(ctx context.Context) ([]float64, []byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]float64), args.Get(1).([]byte), args.Error(2)
}

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, username, password string) error {
	args := m.Called(ctx, username, password)
	return args.Error(0)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) error {
	args := m.Called(ctx, username, password)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApp builds a Fiber app with the real templates and session
// middleware around the handlers under test.
func newTestApp(gallery *MockGalleryService, capturer *MockCapturer, auth *MockAuthService) *fiber.App {
	logger := testLogger()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		Views:        web.ViewEngine(),
		ViewsLayout:  "layouts/main",
	})
	app.Use(middleware.LoadSession(session.NewManager("test-secret")))

	authHandler := handler.NewAuthHandler(auth, logger)
	app.Get("/login", authHandler.LoginPage)
	app.Post("/login", authHandler.Login)
	app.Get("/signup", authHandler.SignupPage)
	app.Post("/signup", authHandler.Signup)

	facesHandler := handler.NewFacesHandler(gallery, capturer, logger)
	app.Get("/faces", facesHandler.Manage)
	app.Get("/faces/add", facesHandler.AddPage)
	app.Post("/faces/add", facesHandler.AddSave)
	app.Post("/faces/add/capture", facesHandler.Capture)
	app.Get("/faces/add/preview", facesHandler.Preview)
	app.Get("/faces/delete", facesHandler.DeletePage)
	app.Get("/faces/:id/image", facesHandler.Image)
	app.Post("/faces/:id/edit", facesHandler.Edit)
	app.Post("/faces/:id/delete", facesHandler.RequestDelete)
	app.Post("/faces/:id/confirm", facesHandler.ConfirmDelete)
	app.Post("/faces/:id", facesHandler.Save)

	return app
}

func formRequest(path string, form url.Values, cookie string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req
}

func getRequest(path, cookie string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req
}

// sessionCookie extracts the session cookie so a follow-up request lands on
// the same session.
func sessionCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success redirects home", func(t *testing.T) {
		auth := new(MockAuthService)
		auth.On("Login", mock.Anything, "admin", "secret").Return(nil)
		app := newTestApp(new(MockGalleryService), new(MockCapturer), auth)

		resp, err := app.Test(formRequest("/login", url.Values{
			"username": {"admin"},
			"password": {"secret"},
		}, ""))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("wrong credentials re-render the form", func(t *testing.T) {
		auth := new(MockAuthService)
		auth.On("Login", mock.Anything, "admin", "wrong").Return(domain.ErrInvalidCredentials)
		app := newTestApp(new(MockGalleryService), new(MockCapturer), auth)

		resp, err := app.Test(formRequest("/login", url.Values{
			"username": {"admin"},
			"password": {"wrong"},
		}, ""))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Invalid username or password")
	})
}

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("success redirects to login", func(t *testing.T) {
		auth := new(MockAuthService)
		auth.On("SignUp", mock.Anything, "admin", "secret").Return(nil)
		app := newTestApp(new(MockGalleryService), new(MockCapturer), auth)

		resp, err := app.Test(formRequest("/signup", url.Values{
			"username": {"admin"},
			"password": {"secret"},
		}, ""))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login?created=1", resp.Header.Get("Location"))
	})

	t.Run("taken username", func(t *testing.T) {
		auth := new(MockAuthService)
		auth.On("SignUp", mock.Anything, "admin", "secret").Return(domain.ErrUsernameTaken)
		app := newTestApp(new(MockGalleryService), new(MockCapturer), auth)

		resp, err := app.Test(formRequest("/signup", url.Values{
			"username": {"admin"},
			"password": {"secret"},
		}, ""))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Username already exists")
	})
}

func TestFacesHandler_Manage(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Search", mock.Anything, repository.SearchByContact, "555").Return([]domain.Identity{
		{ID: 1, Name: "Alice", Contact: "555-0100", Image: []byte("jpg")},
		{ID: 2, Name: "Bob", Contact: "555-0101"},
	}, nil)
	app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

	resp, err := app.Test(getRequest("/faces?by=contact&q=555", ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "555-0101")
	assert.Contains(t, body, "/faces/1/image")
	// Bob has no stored image
	assert.NotContains(t, body, "/faces/2/image")
	gallery.AssertExpectations(t)
}

func TestFacesHandler_EditFlagShowsForm(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Search", mock.Anything, repository.SearchByName, "").Return([]domain.Identity{
		{ID: 5, Name: "Alice", Contact: "555-0100"},
	}, nil)
	app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/5/edit", url.Values{"name": {"Alice"}}, ""))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	resp, err = app.Test(getRequest("/faces", cookie))
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), `action="/faces/5"`)

	// A different session does not see the open form.
	resp, err = app.Test(getRequest("/faces", ""))
	require.NoError(t, err)
	assert.NotContains(t, readBody(t, resp), `action="/faces/5"`)
}

func TestFacesHandler_Save(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Update", mock.Anything, int64(5), "Alicia", "555-0199").Return(nil)
	app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/5", url.Values{
		"name":          {"Alicia"},
		"contact":       {"555-0199"},
		"original_name": {"Alice"},
	}, ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/faces?flash=updated", resp.Header.Get("Location"))
	gallery.AssertExpectations(t)
}

func TestFacesHandler_TwoStepDelete(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Delete", mock.Anything, int64(7)).Return(nil)
	app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

	// First step only raises the confirmation.
	resp, err := app.Test(formRequest("/faces/7/delete", url.Values{"name": {"Alice"}}, ""))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	gallery.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	// Second step removes the record.
	resp, err = app.Test(formRequest("/faces/7/confirm", url.Values{"name": {"Alice"}}, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/faces/delete?flash=deleted", resp.Header.Get("Location"))
	gallery.AssertExpectations(t)
}

func TestFacesHandler_ConfirmWithoutRequestIsIgnored(t *testing.T) {
	gallery := new(MockGalleryService)
	app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/7/confirm", url.Values{"name": {"Alice"}}, ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	gallery.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestFacesHandler_DeleteConfirmationDoesNotSurviveNavigation(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Search", mock.Anything, repository.SearchByName, "").Return([]domain.Identity{
		{ID: 7, Name: "Alice", Contact: "555-0100"},
	}, nil)
	app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/7/delete", url.Values{"name": {"Alice"}}, ""))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)

	// Visiting Add Face drops the pending confirmation.
	resp, err = app.Test(getRequest("/faces/add", cookie))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(getRequest("/faces/delete", cookie))
	require.NoError(t, err)
	assert.NotContains(t, readBody(t, resp), "Confirm Delete")
}

func TestFacesHandler_Image(t *testing.T) {
	t.Run("serves stored jpeg", func(t *testing.T) {
		gallery := new(MockGalleryService)
		gallery.On("Get", mock.Anything, int64(3)).Return(&domain.Identity{
			ID:    3,
			Name:  "Alice",
			Image: []byte("jpeg-bytes"),
		}, nil)
		app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

		resp, err := app.Test(getRequest("/faces/3/image", ""))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
		assert.Equal(t, "jpeg-bytes", readBody(t, resp))
	})

	t.Run("unknown id", func(t *testing.T) {
		gallery := new(MockGalleryService)
		gallery.On("Get", mock.Anything, int64(9)).Return(nil, domain.ErrFaceNotFound)
		app := newTestApp(gallery, new(MockCapturer), new(MockAuthService))

		resp, err := app.Test(getRequest("/faces/9/image", ""))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestFacesHandler_AddFlow(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Add", mock.Anything, "Alice", "555-0100", []float64{0.1, 0.2}, []byte("frame-jpeg")).
		Return(&domain.Identity{ID: 1, Name: "Alice"}, nil)
	capturer := new(MockCapturer)
	capturer.On("CaptureOnce", mock.Anything).Return([]float64{0.1, 0.2}, []byte("frame-jpeg"), nil)
	app := newTestApp(gallery, capturer, new(MockAuthService))

	// Capture holds the face in the session.
	resp, err := app.Test(formRequest("/faces/add/capture", url.Values{}, ""))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/faces/add?flash=captured", resp.Header.Get("Location"))
	cookie := sessionCookie(t, resp)

	// The held frame is previewable.
	resp, err = app.Test(getRequest("/faces/add/preview", cookie))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "frame-jpeg", readBody(t, resp))

	// Saving enrolls and consumes the capture.
	resp, err = app.Test(formRequest("/faces/add", url.Values{
		"name":    {"Alice"},
		"contact": {"555-0100"},
	}, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/faces/add?flash=added", resp.Header.Get("Location"))

	resp, err = app.Test(getRequest("/faces/add/preview", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	gallery.AssertExpectations(t)
	capturer.AssertExpectations(t)
}

func TestFacesHandler_CaptureWithoutFace(t *testing.T) {
	capturer := new(MockCapturer)
	capturer.On("CaptureOnce", mock.Anything).Return(nil, nil, domain.ErrNoFaceDetected)
	app := newTestApp(new(MockGalleryService), capturer, new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/add/capture", url.Values{}, ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "No face detected. Try again.")
}

func TestFacesHandler_AddDuplicateClearsCapture(t *testing.T) {
	gallery := new(MockGalleryService)
	gallery.On("Add", mock.Anything, "Alice", "555-0100", []float64{0.1, 0.2}, []byte("frame-jpeg")).
		Return(nil, domain.ErrDuplicateFace)
	capturer := new(MockCapturer)
	capturer.On("CaptureOnce", mock.Anything).Return([]float64{0.1, 0.2}, []byte("frame-jpeg"), nil)
	app := newTestApp(gallery, capturer, new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/add/capture", url.Values{}, ""))
	require.NoError(t, err)
	cookie := sessionCookie(t, resp)

	resp, err = app.Test(formRequest("/faces/add", url.Values{
		"name":    {"Alice"},
		"contact": {"555-0100"},
	}, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "already in the gallery")

	resp, err = app.Test(getRequest("/faces/add/preview", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFacesHandler_AddWithoutCapture(t *testing.T) {
	app := newTestApp(new(MockGalleryService), new(MockCapturer), new(MockAuthService))

	resp, err := app.Test(formRequest("/faces/add", url.Values{
		"name":    {"Alice"},
		"contact": {"555-0100"},
	}, ""))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	healthy := handler.NewHealthHandler(stubPinger{})
	degraded := handler.NewHealthHandler(stubPinger{err: errors.New("connection refused")})
	app.Get("/health", healthy.Health)
	app.Get("/ready", healthy.Ready)
	app.Get("/ready-degraded", degraded.Ready)

	t.Run("health is static", func(t *testing.T) {
		resp, err := app.Test(getRequest("/health", ""))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), `"ok"`)
	})

	t.Run("ready pings the database", func(t *testing.T) {
		resp, err := app.Test(getRequest("/ready", ""))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), `"ready"`)
	})

	t.Run("failed ping reports degraded", func(t *testing.T) {
		resp, err := app.Test(getRequest("/ready-degraded", ""))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), `"degraded"`)
	})
}
