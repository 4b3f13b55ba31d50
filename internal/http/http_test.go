package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/streamgate/internal/config"
	deviceHTTP "github.com/allisson/streamgate/internal/device/http"
	"github.com/allisson/streamgate/internal/device/repository"
	deviceService "github.com/allisson/streamgate/internal/device/service"
	deviceUseCase "github.com/allisson/streamgate/internal/device/usecase"
	"github.com/allisson/streamgate/internal/metrics"
	relayHTTP "github.com/allisson/streamgate/internal/relay/http"
	relayService "github.com/allisson/streamgate/internal/relay/service"
	relayUseCase "github.com/allisson/streamgate/internal/relay/usecase"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		CORSEnabled:             true,
		CORSAllowOrigins:        "*",
		MetricsNamespace:        "router_test",
		TokenDefaultTTLMinutes:  60,
		TokenEnforceLatest:      true,
		RelayRequireDeviceToken: true,
		RelayConnectTimeout:     2 * time.Second,
		RelayReadTimeout:        2 * time.Second,
		RelayMaxConcurrent:      4,
		RelayBufferSize:         1024,
		RelayUserAgent:          "streamgate-test",
	}
}

type testApp struct {
	server   *Server
	handler  http.Handler
	adminKey string
}

// setupTestApp wires the real device and relay stacks over the in-memory registry.
func setupTestApp(t *testing.T, cfg *config.Config, withAdmin bool) *testApp {
	t.Helper()

	logger := testLogger()
	adminKeyService := deviceService.NewAdminKeyService()

	var adminKey string
	if withAdmin {
		plain, hash, err := adminKeyService.GenerateKey()
		require.NoError(t, err)
		adminKey = plain
		cfg.AdminKeyHash = hash
	}

	signer, err := deviceService.NewTokenSigner([]byte("router-test-secret"))
	require.NoError(t, err)
	devices := deviceUseCase.NewDeviceUseCase(cfg, repository.NewMemoryDeviceRepository(), signer, clock.New())

	transport, err := relayService.NewTransport(relayService.TransportConfig{ConnectTimeout: cfg.RelayConnectTimeout})
	require.NoError(t, err)
	t.Cleanup(transport.CloseIdleConnections)

	selector, err := relayHTTP.NewSelector(cfg)
	require.NoError(t, err)
	relays := relayUseCase.NewRelayUseCase(cfg, &http.Client{Transport: transport})

	provider, err := metrics.NewProvider(cfg.MetricsNamespace)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := NewServer(nil, "127.0.0.1", 0, 5*time.Second, logger)
	server.SetupRouter(ctx, cfg, RouterDeps{
		DeviceHandler:   deviceHTTP.NewDeviceHandler(devices, logger),
		DeviceUseCase:   devices,
		AdminKeyService: adminKeyService,
		RelayHandler:    relayHTTP.NewRelayHandler(relays, selector, logger),
		MetricsProvider: provider,
	})

	return &testApp{server: server, handler: server.GetHandler(), adminKey: adminKey}
}

func (a *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testApp) createDevice(t *testing.T, deviceID string) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/devices", strings.NewReader(`{"device_id":"`+deviceID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.adminKey)

	w := a.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Token
}

func identification(deviceID, token string) string {
	return "OTT TV/1.7.2.2 (Linux;Android 13; en; " + deviceID + ":" + token + ")"
}

func TestRouter_HealthAndReady(t *testing.T) {
	app := setupTestApp(t, testConfig(), false)

	w := app.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = app.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","components":{"database":"memory"}}`, w.Body.String())

	requestID := w.Header().Get("X-Request-Id")
	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestReadinessHandler_Database(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	server := NewServer(db, "127.0.0.1", 0, time.Second, testLogger())

	mock.ExpectPing()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.readinessHandler(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.readinessHandler(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"error"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_AdminRoutesDisabledWithoutHash(t *testing.T) {
	app := setupTestApp(t, testConfig(), false)

	req := httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
	req.Header.Set("Authorization", "Bearer anything")

	assert.Equal(t, http.StatusNotFound, app.do(t, req).Code)
}

func TestRouter_AdminRequiresKey(t *testing.T) {
	app := setupTestApp(t, testConfig(), true)

	req := httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, app.do(t, req).Code)
}

func TestRouter_DeviceLifecycleAndRelay(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp2t")
		_, _ = io.WriteString(w, "segment-bytes")
	}))
	defer upstream.Close()

	app := setupTestApp(t, testConfig(), true)
	token := app.createDevice(t, "abc123")

	relayRequest := func(ua string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/v1/proxy?url="+url.QueryEscape(upstream.URL+"/seg.ts"), nil)
		req.Header.Set("User-Agent", ua)
		return req
	}

	t.Run("valid token relays", func(t *testing.T) {
		w := app.do(t, relayRequest(identification("abc123", token)))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "segment-bytes", w.Body.String())
		assert.Equal(t, "video/mp2t", w.Header().Get("Content-Type"))
	})

	t.Run("cross device replay rejected", func(t *testing.T) {
		w := app.do(t, relayRequest(identification("other", token)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed identification", func(t *testing.T) {
		w := app.do(t, relayRequest("Mozilla/5.0"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list shows device", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/devices", nil)
		req.Header.Set("Authorization", "Bearer "+app.adminKey)
		w := app.do(t, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"abc123"`)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/devices/abc123/revoke", nil)
		req.Header.Set("Authorization", "Bearer "+app.adminKey)
		w := app.do(t, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())

		w = app.do(t, relayRequest(identification("abc123", token)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/devices/abc123", nil)
		req.Header.Set("Authorization", "Bearer "+app.adminKey)
		assert.Equal(t, http.StatusNoContent, app.do(t, req).Code)

		req = httptest.NewRequest(http.MethodDelete, "/v1/devices/abc123", nil)
		req.Header.Set("Authorization", "Bearer "+app.adminKey)
		assert.Equal(t, http.StatusNotFound, app.do(t, req).Code)
	})
}

func TestRouter_RelayWithoutDeviceTokens(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "open")
	}))
	defer upstream.Close()

	cfg := testConfig()
	cfg.RelayRequireDeviceToken = false
	app := setupTestApp(t, cfg, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/proxy?url="+url.QueryEscape(upstream.URL), nil)
	w := app.do(t, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "open", w.Body.String())
}

func TestRouter_CORS(t *testing.T) {
	app := setupTestApp(t, testConfig(), false)

	req := httptest.NewRequest(http.MethodOptions, "/v1/proxy", nil)
	req.Header.Set("Origin", "https://player.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := app.do(t, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(testLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/abort", func(c *gin.Context) {
		panic(http.ErrAbortHandler)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "test panic")

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/v1/proxy", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/proxy?url=https%3A%2F%2Fcdn.example.com%2F%3Fsecret%3Dx", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"path":"/v1/proxy"`)
	assert.NotContains(t, buf.String(), "secret")
}

func TestCustomLoggerMiddleware_AbortedRelay(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(RecoveryMiddleware(testLogger()))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/v1/channels/:name", func(c *gin.Context) {
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		_, _ = c.Writer.WriteString("partial")
		panic(http.ErrAbortHandler)
	})
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/channels/news", nil))
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "/v1/channels/news", entry["path"])
	assert.Equal(t, true, entry["aborted"])
	assert.InDelta(t, float64(http.StatusOK), entry["status"], 0)
	assert.InDelta(t, float64(len("partial")), entry["bytes"], 0)

	buf.Reset()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, buf.String())
}

func TestServer_StartAndShutdown(t *testing.T) {
	app := setupTestApp(t, testConfig(), false)

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.server.Shutdown(ctx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("metrics_server_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, testLogger(), provider)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	NewMetricsServer("localhost", 8081, testLogger(), nil).GetHandler().
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
