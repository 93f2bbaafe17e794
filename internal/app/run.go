package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"feedwatch/internal/activity"
	"feedwatch/internal/cache"
	"feedwatch/internal/config"
	"feedwatch/internal/db"
	"feedwatch/internal/events"
	"feedwatch/internal/fetch"
	"feedwatch/internal/httpapi"
	"feedwatch/internal/migrate"
	"feedwatch/internal/monitor"
	"feedwatch/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"feedBaseURL", cfg.Feed.BaseURL,
		"channelID", cfg.Feed.ChannelID,
		"updateInterval", cfg.Feed.UpdateInterval,
		"staleThreshold", cfg.Feed.StaleThreshold,
		"maxRetries", cfg.Feed.MaxRetries,
		"mqttEnabled", cfg.MQTT.Enabled,
		"mqttBroker", cfg.MQTT.BrokerURL,
		"mqttTopic", cfg.MQTT.Topic,
		"sensors", len(cfg.Sensors),
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	store := cache.NewStore(dbConn, nil)
	if err := store.Ping(ctx); err != nil {
		return err
	}
	logger.Info("database connection successful")

	stats := activity.NewStats()
	client := fetch.NewClient(fetch.Options{
		MaxRetries:     cfg.Feed.MaxRetries,
		RetryDelay:     cfg.Feed.RetryDelay,
		RequestTimeout: cfg.Feed.RequestTimeout,
		Recorder:       stats,
		Logger:         logger.With("component", "fetch"),
	})
	feed := fetch.NewFeed(client, cfg.Feed.BaseURL, cfg.Feed.ChannelID, cfg.Feed.APIKey, nil)

	mon, err := monitor.New(monitor.Deps{
		Config:   cfg.Feed,
		Sensors:  cfg.Sensors,
		Feed:     feed,
		Cache:    store,
		Stats:    stats,
		Observer: events.Multi{events.SlogObserver{Logger: logger.With("component", "events")}},
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var sub *mqtt.Subscriber
	if cfg.MQTT.Enabled {
		sub, err = mqtt.NewSubscriber(cfg.MQTT, mqtt.Options{
			OnMessage:        mon.RealtimeMessage,
			OnReading:        mon.HandleRealtime,
			OnConnect:        mon.RealtimeConnected,
			OnConnectionLost: mon.RealtimeLost,
		}, logger)
		if err != nil {
			return err
		}

		// Startup must not block on an unreachable broker; paho keeps retrying.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = sub.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing with polling only)", "error", err)
		}
	}

	monCtx, monCancel := context.WithCancel(ctx)
	defer monCancel()
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		if err := mon.Run(monCtx); err != nil {
			logger.Error("monitor stopped", "error", err)
		}
	}()

	srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(store, mon, logger), logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	monCancel()
	<-monDone

	if sub != nil {
		logger.Info("mqtt disconnecting")
		sub.Disconnect()
	}

	if serveErr != nil {
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
