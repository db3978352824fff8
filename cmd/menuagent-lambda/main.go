package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"menuagent"
	"menuagent/catalog"
	"menuagent/catalog/storage"
	"menuagent/coordinator"
	"menuagent/coordinator/bedrock"
	"menuagent/retrieval"
	"menuagent/slack"
	"menuagent/tools"
)

type Params struct {
	Flow     string            `json:"flow"`
	Profile  menuagent.Profile `json:"profile"`
	Message  string            `json:"message,omitempty"`
	MaxTurns int               `json:"max_turns,omitempty"`
}

type Results struct {
	Output coordinator.Result `json:"output"`
}

// handler holds what survives across warm invocations: the snapshot cache
// and the AWS clients.
type handler struct {
	modelConfig  menuagent.ModelConfig
	agentConfig  menuagent.AgentConfig
	cache        *catalog.Cache
	restrictions retrieval.Restrictions
	llm          coordinator.LLM
	notifier     menuagent.SlackClient
}

func main() {
	ctx := context.Background()

	h, err := newHandler(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize", "error", err)
		panic(err)
	}

	lambda.Start(h.handle)
}

func newHandler(ctx context.Context) (*handler, error) {
	var h handler
	if err := envdecode.Decode(&h.modelConfig); err != nil {
		return nil, fmt.Errorf("decode model config: %w", err)
	}
	if err := envdecode.Decode(&h.agentConfig); err != nil {
		return nil, fmt.Errorf("decode agent config: %w", err)
	}
	var lambdaConfig menuagent.LambdaConfig
	if err := envdecode.Decode(&lambdaConfig); err != nil {
		return nil, fmt.Errorf("decode lambda config: %w", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	state := storage.NewS3SnapshotState(s3.NewFromConfig(awsCfg), lambdaConfig.SnapshotBucket, lambdaConfig.SnapshotKey)
	h.cache = catalog.NewCache(storage.Loader(state), h.agentConfig.CatalogTTL, nil)
	slog.Info("SETUP: S3 snapshot state initialized", "bucket", lambdaConfig.SnapshotBucket, "key", lambdaConfig.SnapshotKey)

	h.restrictions = retrieval.DefaultRestrictions()
	if path := h.agentConfig.RestrictionsPath; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open restrictions: %w", err)
		}
		h.restrictions, err = retrieval.LoadRestrictions(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load restrictions %s: %w", path, err)
		}
	}

	if url := h.agentConfig.SlackWebhookURL; url != "" {
		h.notifier = slack.NewClient(url, http.DefaultClient)
	}

	h.llm = bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
		ModelID:     h.modelConfig.ModelID,
		MaxTokens:   h.modelConfig.MaxTokens,
		Temperature: h.modelConfig.Temperature,
		TopP:        h.modelConfig.TopP,
	})
	return &h, nil
}

func (h *handler) handle(ctx context.Context, params Params) (Results, error) {
	flow, err := coordinator.ParseFlow(params.Flow)
	if err != nil {
		return Results{}, err
	}

	snapshot, err := h.cache.Snapshot(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to load menu snapshot from S3", "error", err)
		return Results{}, err
	}
	if snapshot.Meal == "" {
		snapshot.Meal = catalog.MealAt(time.Now())
	}
	slog.Info("SETUP: Menu snapshot loaded", "meal", snapshot.Meal, "items", snapshot.Catalog.Len())

	registry := tools.NewRegistry(tools.Env{
		Snapshot: snapshot,
		Index:    retrieval.BuildIndex(snapshot.Catalog, h.restrictions),
		Profile:  params.Profile,
	}).Subset(flow.Tools...)

	tracerProvider, meterProvider, otelShutdown, err := menuagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return Results{}, err
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	coord, err := coordinator.NewCoordinator(h.llm, menuagent.NewStdoutCoordinationLogger(),
		coordinator.WithTracer(tracerProvider.Tracer(menuagent.TracerNameCoordinator)),
		coordinator.WithMeter(meterProvider.Meter(menuagent.TracerNameCoordinator)),
	)
	if err != nil {
		return Results{}, err
	}

	maxTurns := params.MaxTurns
	if maxTurns <= 0 {
		maxTurns = h.agentConfig.MaxTurns
	}
	result, err := coord.Run(ctx, coordinator.Request{
		Flow:     flow,
		MaxTurns: maxTurns,
		Tools:    registry,
		Profile:  params.Profile,
		Meal:     snapshot.Meal,
		Date:     snapshot.Date,
		Message:  params.Message,
	})
	if err != nil {
		logRunFailure(err)
		return Results{}, err
	}
	slog.Info("RESULT: Run finished", "state", result.State, "turns", result.Turns, "tool_calls", len(result.ToolLog))

	if h.notifier != nil {
		if err := h.notifier.PostMessage(ctx, h.agentConfig.SlackChannel, slack.FormatResult(result)); err != nil {
			// The caller still gets the result.
			slog.Error("RESULT: Failed to post to Slack", "error", err)
		}
	}

	return Results{Output: result}, nil
}

// logRunFailure logs err along with any tool calls the run made before it
// stopped.
func logRunFailure(err error) {
	slog.Error("RESULT: Error handling request", "error", err)
	var runErr *coordinator.RunError
	if !errors.As(err, &runErr) {
		return
	}
	for i, entry := range runErr.ToolLog {
		slog.Error("RESULT: Partial tool log",
			"step", i+1,
			"tool", entry.Name,
			"summary", entry.Summary,
			"error", entry.Error,
		)
	}
}
