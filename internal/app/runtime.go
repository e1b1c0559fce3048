package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loopworks/dealbot/internal/audit"
	"github.com/loopworks/dealbot/internal/board"
	"github.com/loopworks/dealbot/internal/chat"
	"github.com/loopworks/dealbot/internal/config"
	"github.com/loopworks/dealbot/internal/dates"
	"github.com/loopworks/dealbot/internal/identity"
	"github.com/loopworks/dealbot/internal/intent"
	"github.com/loopworks/dealbot/internal/jobs"
	"github.com/loopworks/dealbot/internal/llm"
	"github.com/loopworks/dealbot/internal/reminder"
	"github.com/loopworks/dealbot/internal/router"
)

// Runtime owns every long-lived component and all mutable caches. No
// package-level state anywhere in the tree.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	auditLog   *audit.Log
	boardCli   *board.Client
	chatCli    *chat.Client
	connector  *chat.Connector
	roster     *identity.Roster
	checker    *reminder.Checker
	jobs       *jobs.Service
	httpServer *http.Server
}

// platformAdapter bridges the chat client's profile type onto the
// identity resolver's platform interface.
type platformAdapter struct {
	client *chat.Client
}

func (p platformAdapter) UserInfo(ctx context.Context, userID string) (identity.User, error) {
	user, err := p.client.UserInfo(ctx, userID)
	if err != nil {
		return identity.User{}, err
	}
	return identity.User(user), nil
}

func (p platformAdapter) ListUsers(ctx context.Context) ([]identity.User, error) {
	users, err := p.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	converted := make([]identity.User, 0, len(users))
	for _, user := range users {
		converted = append(converted, identity.User(user))
	}
	return converted, nil
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	auditLog, err := audit.Open(cfg.AuditDBPath, logger.With("component", "audit"))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	boardCli := board.New(board.Config{
		APIURL:   cfg.BoardAPI,
		Token:    cfg.BoardToken,
		BoardID:  cfg.BoardID,
		Timeout:  time.Duration(cfg.BoardTimeout) * time.Second,
		Location: loc,
	}, auditLog, logger.With("component", "board"))

	chatCli := chat.NewClient(chat.Config{
		APIURL:          cfg.ChatAPI,
		Token:           cfg.ChatToken,
		FallbackChannel: cfg.ChatFallbackChannel,
	}, logger.With("component", "chat"))

	roster := identity.NewRoster(cfg.RosterPath, logger.With("component", "roster"))
	resolver := identity.NewResolver(platformAdapter{client: chatCli}, boardCli, roster, logger.With("component", "identity"))

	llmCli := llm.New(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}, logger.With("component", "llm"))
	classifier := intent.NewClassifier(llmCli, logger.With("component", "classifier"))

	store, err := reminder.NewStore(cfg.ReminderPath)
	if err != nil {
		return nil, fmt.Errorf("open reminder store: %w", err)
	}

	interpreter := dates.NewInterpreter(loc)
	route := router.New(classifier, boardCli, chatCli, resolver, interpreter, store, logger.With("component", "router"))
	connector := chat.NewConnector(chatCli, route, logger.With("component", "connector"))

	emailer := newMailerFromConfig(cfg, logger)
	checker := reminder.NewChecker(store, boardCli, chatCli, emailer,
		time.Duration(cfg.ReminderIntervalSec)*time.Second, logger.With("component", "reminders"))

	jobService := jobs.New(boardCli, chatCli, cfg.ChatDigestChannel, loc, logger.With("component", "jobs"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Runtime{
		cfg:       cfg,
		logger:    logger,
		auditLog:  auditLog,
		boardCli:  boardCli,
		chatCli:   chatCli,
		connector: connector,
		roster:    roster,
		checker:   checker,
		jobs:      jobService,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (r *Runtime) Close() error {
	if r.auditLog == nil {
		return nil
	}
	return r.auditLog.Close()
}
