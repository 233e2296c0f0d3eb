/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/guessmaster/answering"
	"github.com/Seednode/guessmaster/stream"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

func serveVersion(cfg *Config, logger zerolog.Logger) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("guessmaster v" + releaseVersion + "\n"))
		if err != nil {
			logger.Debug().Err(err).Msg("failed to write version")
			return
		}

		logger.Debug().
			Str("page", "version").
			Str("size", humanReadableSize(int64(written))).
			Str("ip", realIP(r)).
			Dur("elapsed", time.Since(startTime)).
			Msg("served")
	}
}

// answeringHandler builds the ask endpoint, wrapped for cross-origin callers
// when any origins are allowed.
func answeringHandler(cfg *Config, logger zerolog.Logger) (http.Handler, error) {
	prompt, err := answering.LoadPrompt(cfg.promptFile)
	if err != nil {
		return nil, err
	}

	svc, err := answering.New(answering.Config{
		APIKey:  cfg.openAIKey,
		BaseURL: cfg.openAIBaseURL,
		Model:   cfg.model,
		Prompt:  prompt,
		Limit:   cfg.questionLimit,
		Debug:   cfg.debugFrames,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	if len(cfg.allowedOrigins) == 0 {
		return svc, nil
	}

	return cors.New(cors.Options{
		AllowedOrigins: cfg.allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}).Handler(svc), nil
}

func newRouter(cfg *Config, gm *GameManager, logger zerolog.Logger) (*httprouter.Router, error) {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		logger.Error().Interface("panic", i).Str("path", r.URL.Path).Msg("recovered from panic")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		_, _ = io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/", serveHomePage(cfg))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, logger))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, logger))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, logger))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, logger))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, logger))

	if cfg.profile {
		registerProfileHandlers(cfg, mux, logger)
	}

	if !cfg.noAnswering {
		h, err := answeringHandler(cfg, logger)
		if err != nil {
			return nil, errors.Wrap(err, "answering service")
		}
		mux.Handler(http.MethodPost, cfg.prefix+stream.AskPath, h)
		if len(cfg.allowedOrigins) > 0 {
			mux.Handler(http.MethodOptions, cfg.prefix+stream.AskPath, h)
		}
	}

	registerTwentyQ(cfg, "/play", mux, gm)

	return mux, nil
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	logger := newLogger(cfg, os.Stderr)

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logger.Info().Str("version", releaseVersion).Msg("starting guessmaster")

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	answerer, err := newRemoteAnswerer(cfg.answeringURL(), logger)
	if err != nil {
		return err
	}

	gm := newGameManager(ctx, cfg, answerer, logger)

	mux, err := newRouter(cfg, gm, logger)
	if err != nil {
		return err
	}

	// No WriteTimeout: answers stream for as long as the model takes.
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("url", fmt.Sprintf("%s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)).
			Str("answering", cfg.answeringURL()).
			Msg("listening")

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		gm.reaperLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		gm.closeAll()
		err := srv.Shutdown(shutdownCtx)

		logger.Info().Msg("stopped")

		return err
	})

	return g.Wait()
}
