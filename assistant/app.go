package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/config"
	"github.com/xiaot623/gogo/assistant/internal/adapter/llm"
	"github.com/xiaot623/gogo/assistant/internal/adapter/location"
	"github.com/xiaot623/gogo/assistant/internal/adapter/retriever"
	"github.com/xiaot623/gogo/assistant/internal/dialogue"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/evaluation"
	"github.com/xiaot623/gogo/assistant/internal/logging"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/policy"
	"github.com/xiaot623/gogo/assistant/internal/ranking"
	"github.com/xiaot623/gogo/assistant/internal/repository"
	"github.com/xiaot623/gogo/assistant/internal/service"
)

// app holds the wired collaborators of one process.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *repository.SQLiteStore
	prefs  *repository.PreferencesFile
	ledger *repository.LedgerFile
	svc    *service.Service
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := repository.NewSQLiteStore(cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		prefs:  repository.NewPreferencesFile(cfg.Storage.PreferencesPath),
		ledger: repository.NewLedgerFile(cfg.Storage.FeedbackPath),
	}

	chat := llm.NewChatClient(cfg.LLM.Mode, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout, logger)
	intentModel := cfg.LLM.IntentModel
	if intentModel == "" {
		intentModel = cfg.LLM.Model
	}

	ret, err := newRetriever(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	loc, err := newLocator(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	generator := llm.NewGenerator(chat, llm.GeneratorConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)
	ranker := ranking.NewEngine(ranking.NewRegistry(ranking.Options{HistoryBonus: cfg.Ranking.HistoryBonus}), a.ledger)

	svc, err := service.New(service.Dependencies{
		Store:       store,
		Preferences: a.prefs,
		Ledger:      a.ledger,
		Classifier:  llm.NewIntentClassifier(chat, intentModel, logger),
		Retriever:   ret,
		Ranker:      ranker,
		Generator:   generator,
		Locator:     loc,
		Quality:     evaluation.LexicalQualityScorer{MaxWords: cfg.Dialogue.MaxWords},
		Observer:    metrics.DialogueObserver{},
		Logger:      logger,
	}, service.Options{
		Dialogue: dialogue.Config{
			CaptureDuration: cfg.Dialogue.CaptureDuration,
			UseFeedback:     cfg.Dialogue.UseFeedback,
			Aliases:         cfg.Dialogue.Aliases,
		},
		RatingAttempts: cfg.Dialogue.RatingAttempts,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newRetriever(ctx context.Context, cfg *config.Config, logger *zap.Logger) (dialogue.Retriever, error) {
	rc := cfg.Retrieval

	var ret retriever.Retriever
	if rc.Mode == "static" {
		static, err := retriever.LoadStatic(rc.StaticPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load static candidates: %w", err)
		}
		ret = static
	} else {
		guard := retriever.GuardConfig{
			RequestsPerSecond: rc.RequestsPerSecond,
			Burst:             rc.Burst,
			FailureThreshold:  rc.FailureThreshold,
			OpenTimeout:       rc.OpenTimeout,
		}
		electric := retriever.NewOpenChargeMap(rc.OpenChargeMap.BaseURL, rc.OpenChargeMap.APIKey, rc.Timeout)
		fuel := retriever.NewTomTom(rc.TomTom.BaseURL, rc.TomTom.APIKey, rc.Timeout)
		restaurants := retriever.NewPlaces(rc.Places.BaseURL, rc.Places.APIKey, domain.CategoryRestaurants, "restaurant", rc.Timeout)
		hobbies := retriever.NewPlaces(rc.Places.BaseURL, rc.Places.APIKey, domain.CategoryHobbies, "tourist_attraction", rc.Timeout)
		sources := retriever.Sources{
			Electric:    retriever.NewGuarded(electric, guard, logger),
			Fuel:        retriever.NewGuarded(fuel, guard, logger),
			Restaurants: retriever.NewGuarded(restaurants, guard, logger),
			Hobbies:     retriever.NewGuarded(hobbies, guard, logger),
		}
		ret = retriever.NewRouter(sources, rc.RadiusKm, rc.Limit, logger)
	}

	if !cfg.Policy.Enabled {
		return ret, nil
	}
	engine, err := policy.NewEngineFromFile(ctx, cfg.Policy.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	return retriever.NewAdmissionFilter(ret, engine, logger), nil
}

func newLocator(cfg *config.Config, logger *zap.Logger) (dialogue.Locator, error) {
	lc := cfg.Location
	switch lc.Mode {
	case "static":
		return location.NewStatic(domain.Location{Latitude: lc.Latitude, Longitude: lc.Longitude}), nil
	case "address":
		return location.NewAddress(location.NewNominatim(lc.NominatimURL, lc.UserAgent, lc.Timeout, lc.CacheTTL), lc.Address), nil
	case "ipinfo":
		return location.NewIPInfo(lc.IPInfoURL, lc.Timeout, lc.CacheTTL, logger), nil
	}
	return nil, fmt.Errorf("unknown location mode %q", lc.Mode)
}
