/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Command exnotifyd runs HTTP and gRPC servers behind the exnotify error
// boundary and mails a notice for every unexpected error.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"dirpx.dev/exnotify"
	"dirpx.dev/exnotify/address"
	"dirpx.dev/exnotify/classify"
	"dirpx.dev/exnotify/grpcx"
	"dirpx.dev/exnotify/internal/config"
	"dirpx.dev/exnotify/internal/logger"
	"dirpx.dev/exnotify/mail"
	"dirpx.dev/exnotify/notice"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "exnotifyd").Logger()

	n, err := newNotifier(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise notifier")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           routes(n, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor(n)),
		grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor(n)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Server.GRPCAddr).Msg("failed to listen")
	}

	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	log.Info().
		Str("http_addr", cfg.Server.HTTPAddr).
		Str("grpc_addr", cfg.Server.GRPCAddr).
		Strs("recipients", cfg.Mail.Recipients).
		Msg("exnotifyd started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server terminated with error")
	}

	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	grpcSrv.GracefulStop()
}

func newNotifier(cfg *config.Config, log zerolog.Logger) (*exnotify.Notifier, error) {
	classifier, err := classify.New(classify.WithNotFound(cfg.Notifier.NotFoundKinds...))
	if err != nil {
		return nil, err
	}
	trusted, err := address.New(cfg.Notifier.ConsiderLocal...)
	if err != nil {
		return nil, err
	}
	mailer, err := mail.New(mail.Config{
		Host:          cfg.Mail.SMTP.Host,
		Port:          cfg.Mail.SMTP.Port,
		User:          cfg.Mail.SMTP.User,
		Pass:          cfg.Mail.SMTP.Pass,
		From:          cfg.Mail.Sender,
		To:            cfg.Mail.Recipients,
		SubjectPrefix: cfg.Mail.SubjectPrefix,
	}, log.With().Str("component", "mail").Logger())
	if err != nil {
		return nil, err
	}
	normalizer := notice.NewNormalizer(
		notice.WithRoot(cfg.Notifier.AppRoot),
		notice.WithFilterParameters(cfg.Notifier.FilterParameters...),
		notice.WithClassPolicy(cfg.Notifier.ClassPolicy),
	)
	return exnotify.New(exnotify.Config{
		Classifier:         classifier,
		Normalizer:         normalizer,
		Trusted:            trusted,
		Deliverer:          mailer,
		ShowLocal:          cfg.Notifier.ShowLocal,
		RateLimitPerMinute: cfg.Notifier.RateLimit,
		RateBurst:          cfg.Notifier.RateBurst,
		Logger:             log,
	})
}

func fail(stage string, err error) {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	l.Fatal().Err(err).Str("stage", stage).Msg("exnotifyd init failed")
}
