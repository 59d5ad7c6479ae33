package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"birdsbuddy/internal/channel"
	"birdsbuddy/internal/config"
	"birdsbuddy/internal/handlers"
	"birdsbuddy/internal/logger"
	"birdsbuddy/internal/metrics"
	"birdsbuddy/internal/pushnotify"
	"birdsbuddy/internal/repository"
	"birdsbuddy/internal/repository/db"
	"birdsbuddy/internal/server"
	"birdsbuddy/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv("BIRDSBUDDY_CONFIG"))
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		log.Warnw("unknown display timezone; using UTC", "timezone", cfg.Display.Timezone, "err", err)
		loc = time.UTC
	}

	// open DB (optional)
	sqlDB, err := openDB(cfg.Storage, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	if sqlDB != nil {
		defer func() {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Errorw("failed to close sqlite", "err", cerr)
			}
		}()
	}

	repos := repository.NewRepository(sqlDB)
	if cfg.History.Driver == config.HistoryInflux {
		influx := repository.NewTelemetryInflux(cfg.History.Influx.URL, cfg.History.Influx.Token,
			cfg.History.Influx.Org, cfg.History.Influx.Bucket)
		defer influx.Close()
		repos.Telemetry = influx
	} else if cfg.History.Driver == config.HistoryNone {
		repos.Telemetry = nil
	}

	obs := metrics.NewPromObs(prometheus.DefaultRegisterer)
	session := service.NewSession(service.SessionOptions{
		Location:           loc,
		Log:                log.Named("session"),
		Observer:           obs,
		EventLog:           repos.EventLog,
		ResumeOnDisconnect: cfg.Simulator.ResumeOnDisconnect,
	})
	defer session.Close()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := openChannel(ctx, cfg.Channel, log.Named("channel"))
	if ch != nil {
		defer func() { _ = ch.Close() }()
	}

	opts := service.Options{
		Breaker:      service.NewCommandBreaker(cfg.Channel.Breaker.MaxFailures, cfg.Channel.Breaker.OpenTimeout),
		WriteTimeout: cfg.Channel.WriteTimeout,
		Rand:         service.NewRand(cfg.Simulator.Seed),
		Observer:     obs,
		Log:          log,
	}
	if ch != nil {
		opts.Channel = ch
	}
	if cfg.Push.Enabled() && repos.Push != nil {
		pool := pushnotify.NewWorkerPool(cfg.Push.Workers, repos.Push, &webpush.Options{
			Subscriber:      cfg.Push.Subject,
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			TTL:             cfg.Push.TTL,
		}, log.Named("push"))
		pool.Start(ctx)
		opts.PushKey = cfg.Push.PublicKey
		opts.PushQueue = pool
	} else if cfg.Push.Enabled() {
		log.Warnw("push keys configured without storage.path; web push disabled")
	}

	services := service.NewService(session, repos, opts)

	// archive and push subscribe before the channel can log anything
	archived := services.Archiver.Start(ctx, session)
	stopForward := services.Notifier.Forward(session)
	defer stopForward()

	if ch != nil {
		detach := session.AttachChannel(ch)
		defer detach()
	} else {
		session.DeclareChannelUnavailable()
	}

	go services.Simulator.Run(ctx, cfg.Simulator.Tick)
	go services.Sampler.Run(ctx, cfg.History.SampleEvery)

	apiHandler := handlers.NewHandler(services, log.Named("http"),
		handlers.WithCommandRate(cfg.Server.CommandRatePerSec, cfg.Server.CommandBurst),
		handlers.WithHistoryCache(cfg.Server.HistoryCacheTTL),
		handlers.WithMetrics(promhttp.Handler()),
	)

	srv := server.New(cfg.Server.Port, apiHandler.InitRoutes())
	go func() {
		log.Infow("http_listening", "addr", srv.Addr(), "channel", cfg.Channel.Driver, "history", cfg.History.Driver)
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()

	waitForShutdown(cancel, srv, log)
	<-archived
}

// openDB opens the archive database when storage.path is set.
func openDB(cfg config.StorageConfig, log *logger.Logger) (*sql.DB, error) {
	if cfg.Path == "" {
		log.Infow("storage.path not set; archive, history and push storage disabled")
		return nil, nil
	}
	return db.InitDB(cfg.Path)
}

// openChannel returns nil when no driver is configured or the driver cannot
// start; the session then stays in simulation for its lifetime.
func openChannel(ctx context.Context, cfg config.ChannelConfig, log *logger.Logger) channel.Channel {
	switch cfg.Driver {
	case config.DriverMQTT:
		dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout*time.Duration(cfg.MQTT.ConnectRetries+1))
		defer cancel()
		m, err := channel.DialMQTT(dialCtx, channel.MQTTOptions{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			QoS:            cfg.MQTT.QoS,
			ConnectRetries: cfg.MQTT.ConnectRetries,
			ConnectTimeout: cfg.ConnectTimeout,
		}, log)
		if err != nil {
			log.Warnw("channel_unavailable", "driver", cfg.Driver, "err", err)
			return nil
		}
		return m
	case config.DriverFirebase:
		f, err := channel.NewFirebase(channel.FirebaseOptions{
			DatabaseURL:  cfg.Firebase.DatabaseURL,
			AuthToken:    cfg.Firebase.AuthToken,
			SensorsPath:  cfg.Firebase.SensorsPath,
			CommandsPath: cfg.Firebase.CommandsPath,
		}, log)
		if err != nil {
			log.Warnw("channel_unavailable", "driver", cfg.Driver, "err", err)
			return nil
		}
		return f
	default:
		return nil
	}
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
