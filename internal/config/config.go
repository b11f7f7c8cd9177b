package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/dgallion1/docsift/internal/classify"
	"github.com/dgallion1/docsift/internal/features"
	"github.com/dgallion1/docsift/internal/rank"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount      int
	MaxQueueSize     int
	ScoreConcurrency int

	// Budgets
	DocBudget   time.Duration
	BatchBudget time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Embedding backend; empty EmbedURL selects the offline hash encoder.
	EmbedURL        string
	EmbedModel      string
	EmbedDim        int
	EmbedCacheSize  int
	EmbedRatePerSec float64
	EmbedTimeout    time.Duration

	// Optional shared vector cache; empty disables it.
	EmbedRedisURL string
	EmbedRedisTTL time.Duration

	// Language handling
	LangIDBackend     string
	JapaneseTokenizer bool

	TuningFile string
	Tuning     Tuning
}

// Tuning groups the heuristic thresholds and weights that a quality pass
// may adjust per corpus. It can be loaded as a whole from YAML.
type Tuning struct {
	Classifier classify.Thresholds `yaml:"classifier"`
	Features   features.Config     `yaml:"features"`
	Ranking    rank.Params         `yaml:"ranking"`
}

// DefaultTuning returns the built-in thresholds and weights.
func DefaultTuning() Tuning {
	return Tuning{
		Classifier: classify.DefaultThresholds(),
		Features:   features.DefaultConfig(),
		Ranking:    rank.DefaultParams(),
	}
}

// Load reads configuration from the environment. Tunables start from the
// defaults, are overlaid by DOCSIFT_TUNING_FILE when set, and then by
// individual environment variables.
func Load() (Config, error) {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCSIFT_API_KEY"),

		WorkerCount:      envInt("WORKER_COUNT", 4),
		MaxQueueSize:     envInt("MAX_QUEUE_SIZE", 100),
		ScoreConcurrency: envInt("SCORE_CONCURRENCY", 8),

		DocBudget:   envDuration("DOC_BUDGET", 10*time.Second),
		BatchBudget: envDuration("BATCH_BUDGET", 60*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		EmbedURL:        os.Getenv("EMBED_URL"),
		EmbedModel:      envOr("EMBED_MODEL", "paraphrase-multilingual"),
		EmbedDim:        envInt("EMBED_DIM", 384),
		EmbedCacheSize:  envInt("EMBED_CACHE_SIZE", 4096),
		EmbedRatePerSec: envFloat("EMBED_RATE_PER_SEC", 20),
		EmbedTimeout:    envDuration("EMBED_TIMEOUT", 30*time.Second),
		EmbedRedisURL:   os.Getenv("EMBED_REDIS_URL"),
		EmbedRedisTTL:   envDuration("EMBED_REDIS_TTL", 24*time.Hour),

		LangIDBackend:     envOr("LANGID_BACKEND", "lingua"),
		JapaneseTokenizer: envBool("TOKENIZER_JAPANESE", true),

		TuningFile: os.Getenv("DOCSIFT_TUNING_FILE"),
		Tuning:     DefaultTuning(),
	}

	if cfg.TuningFile != "" {
		t, err := LoadTuning(cfg.TuningFile)
		if err != nil {
			return cfg, err
		}
		cfg.Tuning = t
	}
	cfg.Tuning = applyEnvTuning(cfg.Tuning)

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.ScoreConcurrency <= 0 {
		cfg.ScoreConcurrency = 8
	}
	if cfg.DocBudget <= 0 {
		cfg.DocBudget = 10 * time.Second
	}
	if cfg.BatchBudget <= 0 {
		cfg.BatchBudget = 60 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.EmbedDim <= 0 {
		cfg.EmbedDim = 384
	}
	if cfg.EmbedCacheSize < 0 {
		cfg.EmbedCacheSize = 0
	}
	if cfg.Tuning.Ranking.TopK < 0 {
		cfg.Tuning.Ranking.TopK = 10
	}
	if cfg.Tuning.Ranking.RefinedSentences <= 0 {
		cfg.Tuning.Ranking.RefinedSentences = 3
	}
	cfg.Tuning.Ranking.Concurrency = cfg.ScoreConcurrency

	if err := cfg.Tuning.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadTuning reads a YAML tuning file. Keys absent from the file keep their
// default values.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return t, nil
}

func applyEnvTuning(t Tuning) Tuning {
	c := &t.Classifier
	c.Title = envFloat("TITLE_PERCENTILE", c.Title)
	c.H1 = envFloat("H1_PERCENTILE", c.H1)
	c.H2 = envFloat("H2_PERCENTILE", c.H2)
	c.H3 = envFloat("H3_PERCENTILE", c.H3)
	c.TitleMaxRunIndex = envInt("TITLE_MAX_RUN_INDEX", c.TitleMaxRunIndex)
	c.H2MaxIndentBucket = envInt("H2_MAX_INDENT_BUCKET", c.H2MaxIndentBucket)

	f := &t.Features
	f.BoilerplateFraction = envFloat("BOILERPLATE_FRACTION", f.BoilerplateFraction)
	f.BoilerplateMinPages = envInt("BOILERPLATE_MIN_PAGES", f.BoilerplateMinPages)
	f.BoilerplateMaxChars = envInt("BOILERPLATE_MAX_CHARS", f.BoilerplateMaxChars)

	r := &t.Ranking
	r.Weights.Semantic = envFloat("WEIGHT_SEMANTIC", r.Weights.Semantic)
	r.Weights.Position = envFloat("WEIGHT_POSITION", r.Weights.Position)
	r.Weights.Density = envFloat("WEIGHT_DENSITY", r.Weights.Density)
	r.Weights.Lexical = envFloat("WEIGHT_LEXICAL", r.Weights.Lexical)
	r.PositionFloor = envFloat("POSITION_FLOOR", r.PositionFloor)
	r.DensityCapTokens = envInt("DENSITY_CAP_TOKENS", r.DensityCapTokens)
	r.EmbedMaxTokens = envInt("EMBED_MAX_TOKENS", r.EmbedMaxTokens)
	r.PersonaWeight = envFloat("PERSONA_WEIGHT", r.PersonaWeight)
	r.TaskWeight = envFloat("TASK_WEIGHT", r.TaskWeight)
	r.TopK = envInt("TOP_K", r.TopK)
	r.RefinedSentences = envInt("REFINED_SENTENCES", r.RefinedSentences)
	r.MinRelevance = envFloat("MIN_RELEVANCE", r.MinRelevance)
	return t
}

// Validate checks requirements that only apply to the HTTP server.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCSIFT_API_KEY is required")
	}
	return c.Tuning.Validate()
}

var validate = validator.New()

// Validate checks every tunable against its allowed range.
func (t Tuning) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate tuning: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s must be %s %s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid tuning: %s", strings.Join(msgs, "; "))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
