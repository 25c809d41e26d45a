// Package server wires the webhook endpoint, health and metrics routes
// on top of echo, and owns the lifecycle of the bot's gateways.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/groupmate/ai/imagegen"
	"github.com/hrygo/groupmate/ai/intent"
	"github.com/hrygo/groupmate/ai/llm"
	"github.com/hrygo/groupmate/ai/websearch"
	"github.com/hrygo/groupmate/bot"
	"github.com/hrygo/groupmate/bot/state"
	"github.com/hrygo/groupmate/feishu"
	"github.com/hrygo/groupmate/internal/profile"
	"github.com/hrygo/groupmate/plugin/metrics"
	"github.com/hrygo/groupmate/server/intake"
	"github.com/hrygo/groupmate/store"
)

// Server hosts the webhook intake and the bot behind it.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
	store      *store.Store

	bot        *bot.Bot
	dispatcher *bot.Dispatcher
	connector  *intake.Connector
	exporter   *metrics.Exporter
}

// NewServer builds the full pipeline: Feishu client, model gateways,
// conversation engine, dispatcher and HTTP routes.
func NewServer(_ context.Context, p *profile.Profile, storeInstance *store.Store) (*Server, error) {
	exporter := metrics.NewExporter(metrics.DefaultConfig())

	feishuClient := feishu.NewClient(p.FeishuAPIBase, p.FeishuAppID, p.FeishuAppSecret)

	gateway := llm.NewGateway(
		llm.Config{BaseURL: p.LLMBaseURL, APIKey: p.LLMAPIKey, Model: p.LLMModel, Timeout: p.LLMTimeout},
		llm.Config{BaseURL: p.SmallModelBaseURL, APIKey: p.SmallModelAPIKey, Model: p.SmallModel, Timeout: p.SmallModelTimeout},
	)
	classifier := intent.NewClassifier(gateway.SmallChat)

	var imageGen bot.ImageGenerator = imagegen.NewGenerator(imagegen.Config{
		BaseURL: p.ImageModelBaseURL,
		APIKey:  p.ImageModelAPIKey,
		Model:   p.ImageModel,
		MaxSize: p.ImageMaxSize,
		Timeout: p.ImageTimeout,
	})

	var searcher bot.Searcher
	if sx := websearch.NewSearxClient(p.SearxngURL, time.Duration(p.SearxngTimeout)*time.Second); sx != nil {
		searcher = sx
	}

	stateStore := state.New(p.ChatLogsMaxLen, time.Duration(p.ConversationTTLSeconds)*time.Second, nil)

	engine := bot.New(p, bot.Options{
		Chat:       feishuClient,
		Model:      gateway,
		Classifier: classifier,
		ImageGen:   imageGen,
		Fetcher:    websearch.NewFetcher(0),
		Searcher:   searcher,
		Store:      storeInstance,
		State:      stateStore,
		Metrics:    exporter,
	})

	dispatcher := bot.NewDispatcher(0, 0, 0)

	connector := intake.NewConnector(intake.Options{
		VerificationToken: p.FeishuVerificationToken,
		Exporter:          exporter,
		DedupCapacity:     p.RecentEventsMaxLen,
		OnMessage: func(_ context.Context, msg *bot.IncomingMessage) {
			start := time.Now()
			ok := dispatcher.Submit(msg.EventID, func(ctx context.Context) {
				engine.HandleMessage(ctx, msg)
				exporter.ObserveHandleLatency("message", time.Since(start))
			})
			if !ok {
				exporter.RecordDropped()
			}
		},
		OnMemberJoined: func(_ context.Context, ev *bot.MemberJoined) {
			start := time.Now()
			ok := dispatcher.Submit("member_joined", func(ctx context.Context) {
				engine.HandleMemberJoined(ctx, ev)
				exporter.ObserveHandleLatency("member_joined", time.Since(start))
			})
			if !ok {
				exporter.RecordDropped()
			}
		},
	})

	s := &Server{
		profile:    p,
		store:      storeInstance,
		bot:        engine,
		dispatcher: dispatcher,
		connector:  connector,
		exporter:   exporter,
	}
	s.echoServer = s.newEcho()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))

	e.POST("/feishu/events", s.handleWebhook)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": s.profile.Version})
	})
	e.GET("/metrics", echo.WrapHandler(s.exporter.Handler()))
	return e
}

func (s *Server) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	resp, err := s.connector.Handle(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "validation failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Start begins serving. It returns once the listener stops.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server listening", "addr", addr, "mode", s.profile.Mode)
	go func() {
		if err := s.echoServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown drains the HTTP server, the dispatcher and the store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to drain dispatcher", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server shutdown complete")
}
