package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"github.com/spf13/pflag"

	"menuagent"
	"menuagent/catalog"
	"menuagent/catalog/storage"
	"menuagent/coordinator"
	"menuagent/coordinator/bedrock"
	"menuagent/coordinator/mock"
	"menuagent/coordinator/ollama"
	"menuagent/retrieval"
	"menuagent/slack"
	"menuagent/tools"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("RESULT: Run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var opts cliOptions
	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if opts.help {
		printHelp(flagSet)
		return nil
	}

	var agentConfig menuagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		return fmt.Errorf("decode agent config: %w", err)
	}

	cache := catalog.NewCache(
		storage.Loader(storage.NewFileSnapshotState(agentConfig.SnapshotPath)),
		agentConfig.CatalogTTL,
		nil,
	)
	snapshot, err := cache.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load menu snapshot: %w", err)
	}
	if snapshot.Meal == "" {
		snapshot.Meal = catalog.MealAt(time.Now())
	}
	slog.Info("SETUP: Menu snapshot loaded",
		"path", agentConfig.SnapshotPath,
		"meal", snapshot.Meal,
		"halls", len(snapshot.Catalog),
		"items", snapshot.Catalog.Len(),
	)

	if opts.showMenu != "" {
		hall, ok := catalog.ResolveHall(snapshot.Catalog, opts.showMenu)
		if !ok {
			return fmt.Errorf("unknown dining hall %q (have %v)", opts.showMenu, snapshot.Catalog.Halls())
		}
		fmt.Println(catalog.FormatMenuText(hall, snapshot.Catalog[hall]))
		return nil
	}

	flow, err := coordinator.ParseFlow(opts.flow)
	if err != nil {
		return err
	}

	profile, err := opts.profile()
	if err != nil {
		return err
	}

	restrictions, err := loadRestrictions(agentConfig.RestrictionsPath)
	if err != nil {
		return err
	}
	index := retrieval.BuildIndex(snapshot.Catalog, restrictions)
	slog.Info("SETUP: Search index built", "documents", index.Len())

	registry := tools.NewRegistry(tools.Env{
		Snapshot: snapshot,
		Index:    index,
		Profile:  profile,
	}).Subset(flow.Tools...)

	modelConfig := menuagent.ModelConfig{ModelID: "mock"}
	if opts.provider != "mock" {
		if err := envdecode.Decode(&modelConfig); err != nil {
			return fmt.Errorf("decode model config: %w", err)
		}
	}

	llm, err := newLLM(ctx, opts, modelConfig, agentConfig)
	if err != nil {
		return err
	}

	logger, cleanup, err := newCoordinationLogger(modelConfig.ModelID, flow.Name)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to close coordination log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := menuagent.InitOtel(ctx)
	if err != nil {
		return fmt.Errorf("init opentelemetry: %w", err)
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	coord, err := coordinator.NewCoordinator(llm, logger,
		coordinator.WithTracer(tracerProvider.Tracer(menuagent.TracerNameCoordinator)),
		coordinator.WithMeter(meterProvider.Meter(menuagent.TracerNameCoordinator)),
	)
	if err != nil {
		return err
	}

	slog.Info("SETUP: Starting run", "provider", opts.provider, "model", modelConfig.ModelID, "flow", flow.Name, "meal", snapshot.Meal)
	start := time.Now()
	result, err := coord.Run(ctx, coordinator.Request{
		Flow:     flow,
		MaxTurns: firstPositive(opts.maxTurns, agentConfig.MaxTurns),
		Tools:    registry,
		Profile:  profile,
		Meal:     snapshot.Meal,
		Date:     snapshot.Date,
		Message:  opts.message,
	})
	if err != nil {
		var runErr *coordinator.RunError
		if errors.As(err, &runErr) {
			printToolLog(runErr.ToolLog)
		}
		return err
	}
	slog.Info("RESULT: Run finished",
		"state", result.State,
		"turns", result.Turns,
		"tool_calls", len(result.ToolLog),
		"text_only", result.TextOnly,
		"duration", time.Since(start),
	)

	if opts.debug {
		menuagent.Dump(result)
	}

	printToolLog(result.ToolLog)
	fmt.Println()
	fmt.Println(slack.FormatResult(result))

	return postToSlack(ctx, agentConfig, result)
}

func newLLM(ctx context.Context, opts cliOptions, mc menuagent.ModelConfig, ac menuagent.AgentConfig) (coordinator.LLM, error) {
	switch opts.provider {
	case "bedrock":
		brc, err := newBedrockRuntimeClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create bedrock client: %w", err)
		}
		return bedrock.NewLLMClient(brc, bedrock.LLMOptions{
			ModelID:     mc.ModelID,
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
			TopP:        mc.TopP,
		}), nil
	case "ollama":
		return ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: ac.BaseOllamaEndpoint,
			ModelID:      mc.ModelID,
			HTTPClient:   &http.Client{Timeout: 5 * time.Minute},
		})
	case "mock":
		return mock.NewLLMClient(opts.goal), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want bedrock, ollama or mock)", opts.provider)
	}
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func loadRestrictions(path string) (retrieval.Restrictions, error) {
	if path == "" {
		return retrieval.DefaultRestrictions(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return retrieval.Restrictions{}, fmt.Errorf("open restrictions: %w", err)
	}
	defer f.Close()

	r, err := retrieval.LoadRestrictions(f)
	if err != nil {
		return retrieval.Restrictions{}, fmt.Errorf("load restrictions %s: %w", path, err)
	}
	slog.Info("SETUP: Restriction tables loaded", "path", path, "keywords", len(r.Keywords()))
	return r, nil
}

func newCoordinationLogger(modelID, flow string) (menuagent.CoordinationLogger, func() error, error) {
	logFilePath := menuagent.NewCoordinationLogFilePath(modelID, flow, time.Now())
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := menuagent.NewFileCoordinationLogger(logFile, modelID)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}

// postToSlack delivers to the configured webhook, or to a local echo
// server that logs the payload when none is configured.
func postToSlack(ctx context.Context, cfg menuagent.AgentConfig, result coordinator.Result) error {
	url := cfg.SlackWebhookURL
	if url == "" {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(bytes.Buffer)
			body.ReadFrom(r.Body) // nolint: errcheck
			slog.Info("FINAL: Received request",
				"method", r.Method,
				"path", r.URL.Path,
				"body", body.String(),
			)
			w.WriteHeader(http.StatusOK)
		}))
		defer testServer.Close()
		url = testServer.URL
	}

	slackClient := slack.NewClient(url, http.DefaultClient)
	if err := slackClient.PostResult(ctx, cfg.SlackChannel, result); err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	return nil
}

func printToolLog(log []menuagent.ToolCallLog) {
	for _, entry := range log {
		fmt.Printf("  -> %s: %s\n", entry.Name, entry.Summary)
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
