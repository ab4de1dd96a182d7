package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"dirsoul-api"`
	Port                          int      `env:"PORT" env-default:"3010"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"dirsoul"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	DatabaseWriteRetryCount       int           `env:"DB_WRITE_RETRY_COUNT" env-default:"3"`

	// Redis (sweep locks + degraded-read aggregate cache)
	RedisHost     string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	AggregateTTL  time.Duration `env:"AGGREGATE_CACHE_TTL" env-default:"10m"`

	// Kafka Consumer (raw text ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"raw-memories"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"dirsoul-ingest"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer (lifecycle events)
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"memory-lifecycle"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Extraction (OpenAI-compatible endpoint; points at a local model by default)
	ExtractionBaseURL string        `env:"EXTRACTION_BASE_URL" env-default:"http://localhost:11434/v1"`
	ExtractionAPIKey  string        `env:"EXTRACTION_API_KEY" env-default:"local"`
	ExtractionModel   string        `env:"EXTRACTION_MODEL" env-default:"qwen2.5:3b"`
	ExtractionTimeout time.Duration `env:"EXTRACTION_TIMEOUT" env-default:"15s"`

	// Entity resolution
	FuzzyMatchThreshold   float64       `env:"FUZZY_MATCH_THRESHOLD" env-default:"0.85"`
	ContextMatchThreshold float64       `env:"CONTEXT_MATCH_THRESHOLD" env-default:"0.6"`
	AttributeDecayDays    float64       `env:"ATTRIBUTE_DECAY_DAYS" env-default:"90"`
	RelationDecayHalfLife time.Duration `env:"RELATION_DECAY_HALF_LIFE" env-default:"720h"`

	// Pattern detection
	PatternLookbackDays      int     `env:"PATTERN_LOOKBACK_DAYS" env-default:"30"`
	FrequencyMinOccurrences  int     `env:"FREQUENCY_MIN_OCCURRENCES" env-default:"20"`
	FrequencyDiscount        float64 `env:"FREQUENCY_DISCOUNT" env-default:"0.7"`
	PreferenceMinRatio       float64 `env:"PREFERENCE_MIN_RATIO" env-default:"0.7"`
	PreferenceMinOccurrences int     `env:"PREFERENCE_MIN_OCCURRENCES" env-default:"5"`

	// Promotion gate
	PromoteConfidence  float64       `env:"PROMOTE_CONFIDENCE" env-default:"0.85"`
	PromoteMinAge      time.Duration `env:"PROMOTE_MIN_AGE" env-default:"720h"`
	PromoteMinValidate int           `env:"PROMOTE_MIN_VALIDATE" env-default:"3"`
	PromoteMaxCounter  float64       `env:"PROMOTE_MAX_COUNTER_RATIO" env-default:"0.15"`
	RejectCounterRatio float64       `env:"REJECT_COUNTER_RATIO" env-default:"0.30"`
	ViewLifetime       time.Duration `env:"VIEW_LIFETIME" env-default:"720h"`

	// Background sweep
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" env-default:"5m"`
	SweepLockTTL      time.Duration `env:"SWEEP_LOCK_TTL" env-default:"2m"`
	SweepUserBatch    int           `env:"SWEEP_USER_BATCH" env-default:"50"`
	SweepTriggerCount int           `env:"SWEEP_TRIGGER_EVENT_COUNT" env-default:"20"`

	// Plugin consumers, "consumer-id:permission" pairs
	ConsumerGrants []string `env:"CONSUMER_GRANTS" env-default:""`
}
