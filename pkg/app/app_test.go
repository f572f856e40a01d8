package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	shutdownCh chan struct{}
}

func (a *testApp) Init(_ Config, _ *newrelic.Application) error { return nil }

func (a *testApp) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func (a *testApp) ShutdownChan() <-chan struct{} { return a.shutdownCh }

func (a *testApp) Stop() {}

func TestRouter(t *testing.T) {
	var middlewareCalls int
	counting := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			middlewareCalls++
			next.ServeHTTP(w, r)
		})
	}

	o := opts{}
	WithMiddleware(counting)(&o)

	router := newRouter(&testApp{shutdownCh: make(chan struct{})}, o)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 2, middlewareCalls)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o600))

	data, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), data)

	data, err = LoadFile("file://" + path)
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), data)

	_, err = LoadFile("s3://bucket/cert.pem")
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: storage-server
listen_address: ":9000"
app:
  use_memory_stores: true
`), 0o600))

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "5s")

	config, err := loadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "storage-server", config.AppName)
	assert.Equal(t, ":9000", config.ListenAddress)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 5*time.Second, config.ShutdownGracePeriod)
	assert.Equal(t, 10*time.Second, config.ReadHeaderTimeout)
	assert.Equal(t, ":8123", config.DebugListenAddress)
	assert.Equal(t, true, config.AppConfig["use_memory_stores"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := loadConfig(viper.New(), missing)
	assert.ErrorContains(t, err, "app_name")

	t.Setenv("APP_NAME", "storage-server")
	config, err := loadConfig(viper.New(), missing)
	require.NoError(t, err)
	assert.Equal(t, "info", config.LogLevel)

	t.Setenv("TLS_CERTIFICATE", "cert.pem")
	_, err = loadConfig(viper.New(), missing)
	assert.ErrorContains(t, err, "tls_private_key")
}

func TestScheduleRestart(t *testing.T) {
	restartCh, err := scheduleRestart(BaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, restartCh)

	_, err = scheduleRestart(BaseConfig{EnableScheduledRestart: true, RestartSchedule: "not a schedule"})
	assert.Error(t, err)

	restartCh, err = scheduleRestart(BaseConfig{EnableScheduledRestart: true, RestartSchedule: "0 5 * * *"})
	require.NoError(t, err)
	assert.NotNil(t, restartCh)
}
