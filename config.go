package reviewagent

import "time"

type ModelConfig struct {
	ModelID                string  `env:"MODEL_ID,default=us.amazon.nova-lite-v1:0"`
	MaxTokens              int32   `env:"MAX_TOKENS,default=4096"`
	Temperature            float32 `env:"TEMPERATURE,default=0.6"`
	TopP                   float32 `env:"TOP_P,default=0.9"`
	CoordinatorMaxTokens   int32   `env:"COORDINATOR_MAX_TOKENS,default=2048"`
	CoordinatorTemperature float32 `env:"COORDINATOR_TEMPERATURE,default=0.5"`
}

type AgentConfig struct {
	MaxRounds           int    `env:"MAX_ROUNDS,default=4"`
	Backend             string `env:"LLM_BACKEND,default=bedrock"`
	BaseOllamaEndpoint  string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	ResearchCacheSize   int    `env:"RESEARCH_CACHE_SIZE,default=128"`
	ResearchMaxChars    int    `env:"RESEARCH_MAX_CHARS,default=1000"`
	ArtifactsInputPath  string `env:"ARTIFACTS_INPUT_PATH,default=artifacts/input.json"`
	ArtifactsReviewsDir string `env:"ARTIFACTS_REVIEWS_DIR,default=artifacts/reviews"`
	DebugDump           bool   `env:"REVIEW_DEBUG_DUMP,default=false"`
}

type StoreConfig struct {
	Kind            string        `env:"REVIEW_STORE,default=file"`
	S3Bucket        string        `env:"ARTIFACTS_S3_BUCKET"`
	InputS3Key      string        `env:"ARTIFACTS_INPUT_S3_KEY"`
	ReviewsS3Prefix string        `env:"REVIEWS_S3_PREFIX,default=reviews/"`
	RedisAddr       string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisKeyPrefix  string        `env:"REDIS_KEY_PREFIX,default=weekly_review:"`
	RedisTTL        time.Duration `env:"REDIS_TTL,default=168h"`
}
