package menuagent

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=2048"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type AgentConfig struct {
	SnapshotPath       string        `env:"MENU_SNAPSHOT_PATH,default=artifacts/snapshot.json"`
	RestrictionsPath   string        `env:"RESTRICTIONS_PATH"`
	BaseOllamaEndpoint string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MaxTurns           int           `env:"MAX_TURNS,default=0"`
	CatalogTTL         time.Duration `env:"CATALOG_TTL,default=10m"`
	SlackChannel       string        `env:"SLACK_CHANNEL,default=#dining"`
	SlackWebhookURL    string        `env:"SLACK_WEBHOOK_URL"`
}

type LambdaConfig struct {
	SnapshotBucket string `env:"SNAPSHOT_S3_BUCKET,required"`
	SnapshotKey    string `env:"SNAPSHOT_S3_KEY,default=snapshots/latest.json"`
}
