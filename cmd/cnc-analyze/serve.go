package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/opscart/cnc-uptime-analyzer/pkg/config"
	"github.com/opscart/cnc-uptime-analyzer/pkg/metrics"
	"github.com/opscart/cnc-uptime-analyzer/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var listenAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and reports over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from LISTEN_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, closeStream, err := openStream(cfg, log)
	if err != nil {
		return err
	}
	defer closeStream()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	var limiter gin.HandlerFunc
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, rate limiting disabled until it recovers")
		}
		limiter = server.NewRateLimiter(server.RateLimiterConfig{
			Client: client,
			Limit:  cfg.RateLimit,
			Window: cfg.RateWindow,
			Logger: log,
		})
	}

	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	opts, _ := cfg.AnalyzerOptions()
	loc, _ := cfg.Location()
	srv := server.New(server.Config{
		Stream:         stream,
		Analysis:       opts,
		Location:       loc,
		Observer:       recorder,
		Gatherer:       reg,
		RateLimiter:    limiter,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         log,
	})

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, log, func(next *config.Config) {
				nextOpts, err := next.AnalyzerOptions()
				if err != nil {
					log.WithError(err).Error("ignoring reloaded config")
					return
				}
				srv.UpdateOptions(nextOpts)
			}, applyFlags)
			if err != nil {
				log.WithError(err).Error("config watcher stopped")
			}
		}()
	}

	addr := cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
