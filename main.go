package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	alertapp "railguard-cloud/internal/alerts/application"
	alertrepo "railguard-cloud/internal/alerts/infrastructure/postgres"
	alertinterfaces "railguard-cloud/internal/alerts/interfaces"
	alerthttp "railguard-cloud/internal/alerts/interfaces/http"
	alertnotify "railguard-cloud/internal/alerts/notify"
	"railguard-cloud/internal/auth"
	"railguard-cloud/internal/enrichment"
	"railguard-cloud/internal/eventing"
	"railguard-cloud/internal/fanout"
	"railguard-cloud/internal/observability/metrics"
	telemetryevents "railguard-cloud/internal/telemetry/application/events"
	telemetrymqtt "railguard-cloud/internal/telemetry/interfaces/mqtt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	hub := fanout.NewHub(logger)
	go hub.Run()
	metrics.RegisterObserverGauge(func() float64 { return float64(hub.ObserverCount()) })

	classifier, err := enrichment.NewClient(cfg.ClassifierURL, logger, enrichment.WithTimeout(cfg.ClassifierTimeout))
	if err != nil {
		logger.Fatalf("classifier client error: %v", err)
	}

	bus := eventing.NewInMemoryBus()

	alertStore := alertrepo.NewAlertRepository(db)
	serviceOpts := []alertapp.ServiceOption{}
	if cfg.AlertWebhookURL != "" {
		channel, err := alertnotify.NewWebhookChannel(cfg.AlertWebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		notifier, err := alertnotify.NewNotifier(channel, logger, alertnotify.WithCooldown(cfg.AlertNotifyCooldown))
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		serviceOpts = append(serviceOpts, alertapp.WithNotifier(notifier))
	}
	alertService, err := alertapp.NewService(alertStore, hub, logger, serviceOpts...)
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}
	alertConsumer, err := alertinterfaces.NewAnomalyConsumer(alertService, logger)
	if err != nil {
		logger.Fatalf("alert consumer error: %v", err)
	}
	bus.Subscribe(eventing.EventTypeOf[telemetryevents.AnomalyDetected](), alertConsumer.Consume)

	listener, err := telemetrymqtt.NewListener(cfg.MQTTTopic, classifier, hub, bus, logger)
	if err != nil {
		logger.Fatalf("mqtt listener error: %v", err)
	}
	if err := listener.Start(cfg.MQTTBrokerURL, cfg.MQTTClientID); err != nil {
		logger.Fatalf("mqtt connect error: %v", err)
	}
	defer listener.Stop()

	alertHandler, err := alerthttp.NewHandler(alertStore)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/ws"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/ws", fanout.ServeWS(hub))
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown error: %v", err)
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack forwards to the underlying writer so the websocket upgrade on /ws
// works through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
