package app

import (
	"context"
	"crypto/tls"
	"expvar"
	"flag"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	metrics_util "github.com/solana-token-factory/factory/pkg/metrics"
	"github.com/solana-token-factory/factory/pkg/osutil"
)

const HealthPath = "/healthz"

// App is an HTTP service whose lifecycle is bound to the process. Init runs
// before the listener accepts requests and Stop after it has drained.
type App interface {
	// Init blocks until the app can serve requests
	Init(config Config, metricsProvider *newrelic.Application) error

	HTTPHandler() http.Handler

	// ShutdownChan is closed when the app wants the process to exit
	ShutdownChan() <-chan struct{}

	// Stop releases the app's resources. It must be idempotent.
	Stop()
}

var configPath = flag.String("config", "config.yaml", "configuration file path")

// Run serves app until a signal arrives, the server fails, the app asks to
// shut down or a scheduled restart fires. It exits the process on setup
// failures.
func Run(app App, options ...Option) error {
	flag.Parse()

	log := logrus.StandardLogger().WithField("type", "app")
	fatal := func(err error, msg string) {
		log.WithError(err).Error(msg)
		os.Exit(1)
	}

	config, err := loadConfig(viper.GetViper(), *configPath)
	if err != nil {
		fatal(err, "failed to load config")
	}

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		fatal(err, "failed to connect to new relic")
	}
	configureLogger(config, metricsProvider)

	startDebugServer(config, log)

	ballast := allocateBallast(config)

	restartCh, err := scheduleRestart(config)
	if err != nil {
		fatal(err, "failed to schedule restart")
	}

	lis, err := listen(config)
	if err != nil {
		fatal(err, "failed to listen")
	}

	var o opts
	for _, option := range options {
		option(&o)
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		fatal(err, "failed to initialize application")
	}

	server := &http.Server{
		Handler:           newRouter(app, o),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	servedCh := make(chan struct{})
	go func() {
		defer close(servedCh)

		err := server.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			return
		}
		log.Info("http server stopped")
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	select {
	case sig := <-signalCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case <-servedCh:
		log.Info("shutting down after http server exit")
	case <-restartCh:
		log.Info("shutting down for scheduled restart")
	case <-app.ShutdownChan():
		log.Info("shutting down at app request")
	}

	return shutdown(server, app, config.ShutdownGracePeriod, ballast)
}

// shutdown drains the server then stops the app, giving up after grace
func shutdown(server *http.Server, app App, grace time.Duration, ballast []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)

		if err := server.Shutdown(ctx); err != nil {
			logrus.StandardLogger().WithError(err).Warn("http server did not drain")
		}
		app.Stop()
	}()

	select {
	case <-doneCh:
		// Keep the ballast reachable for the lifetime of the process
		if len(ballast) > 0 {
			ballast[0] = 1
		}
		return nil
	case <-time.After(grace):
		return errors.Errorf("application did not stop within %v", grace)
	}
}

func newMetricsProvider(config BaseConfig) (*newrelic.Application, error) {
	if config.NewRelicLicenseKey == "" {
		return nil, nil
	}

	return newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
}

// startDebugServer exposes pprof and expvar on their own listener so they
// never reach the public address
func startDebugServer(config BaseConfig, log *logrus.Entry) {
	if !config.EnableExpvar && !config.EnablePprof {
		return
	}

	// Both packages register on the default mux as a side effect of import
	http.DefaultServeMux = http.NewServeMux()

	mux := http.NewServeMux()
	if config.EnableExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	go func() {
		for {
			server := &http.Server{
				Addr:              config.DebugListenAddress,
				Handler:           mux,
				ReadHeaderTimeout: config.ReadHeaderTimeout,
			}
			if err := server.ListenAndServe(); err != nil {
				log.WithError(err).Warn("debug server failed, restarting in 5s")
			}
			time.Sleep(5 * time.Second)
		}
	}()
}

func allocateBallast(config BaseConfig) []byte {
	if !config.EnableBallast {
		return nil
	}

	capacity := config.BallastCapacity
	if capacity > 0.5 {
		capacity = 0.5
	}
	return make([]byte, uint64(capacity*float32(osutil.GetTotalMemory())))
}

// scheduleRestart returns a channel closed at the next RestartSchedule tick,
// or nil when restarts are disabled
func scheduleRestart(config BaseConfig) (<-chan struct{}, error) {
	if !config.EnableScheduledRestart {
		return nil, nil
	}

	restartCh := make(chan struct{})
	c := cron.New(cron.WithLocation(time.Local))
	_, err := c.AddFunc(config.RestartSchedule, func() {
		c.Stop()
		close(restartCh)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule %q", config.RestartSchedule)
	}

	c.Start()
	return restartCh, nil
}

func listen(config BaseConfig) (net.Listener, error) {
	lis, err := net.Listen("tcp", config.ListenAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "error listening on %s", config.ListenAddress)
	}
	if config.TLSCertificate == "" {
		return lis, nil
	}

	cert, err := loadKeyPair(config.TLSCertificate, config.TLSKey)
	if err != nil {
		lis.Close()
		return nil, err
	}
	return tls.NewListener(lis, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}), nil
}

func loadKeyPair(certURL, keyURL string) (tls.Certificate, error) {
	certPEM, err := LoadFile(certURL)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "error loading tls certificate")
	}
	keyPEM, err := LoadFile(keyURL)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "error loading tls key")
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "invalid tls key pair")
	}
	return cert, nil
}

// newRouter mounts the app's handler behind the configured middleware
// alongside a health check
func newRouter(app App, o opts) http.Handler {
	r := chi.NewRouter()
	for _, middleware := range o.middleware {
		r.Use(middleware)
	}

	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/", app.HTTPHandler())

	return r
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.JSONFormatter{}
	if metricsProvider != nil {
		formatter = metrics_util.NewCustomNewRelicLogFormatter(metricsProvider, formatter)
	}
	logrus.SetFormatter(formatter)
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
		return
	}
	logrus.SetLevel(level)
}
