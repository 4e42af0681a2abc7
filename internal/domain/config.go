package domain

import "time"

// Config holds the complete Harrier configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Decision pipeline settings
	Policy         PolicyConfig         `json:"policy"`
	Fraud          FraudConfig          `json:"fraud"`
	Advisory       AdvisoryConfig       `json:"advisory"`
	Counterfactual CounterfactualConfig `json:"counterfactual"`
	Explain        ExplainConfig        `json:"explain"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// PolicyConfig holds the risk-band thresholds applied to the classifier's
// approval probability. ApproveThreshold must stay above RejectThreshold;
// the gap between them is the manual-review band.
type PolicyConfig struct {
	ApproveThreshold float64 `json:"approveThreshold"`
	RejectThreshold  float64 `json:"rejectThreshold"`
}

// FraudConfig holds the weights and cutoffs for the builtin fraud rule
// catalog. Weights are additive; the total is capped at 1.0.
type FraudConfig struct {
	// Hard flag weights
	ExplicitLabelWeight   float64 `json:"explicitLabelWeight"`
	DocMismatchWeight     float64 `json:"docMismatchWeight"`
	MetadataRiskWeight    float64 `json:"metadataRiskWeight"`
	SevereInflationWeight float64 `json:"severeInflationWeight"`

	// Soft flag weights
	GeoMismatchWeight    float64 `json:"geoMismatchWeight"`
	ExpensesExceedWeight float64 `json:"expensesExceedWeight"`
	VelocityWeight       float64 `json:"velocityWeight"`
	MissedPaymentsWeight float64 `json:"missedPaymentsWeight"`
	LowUtilityWeight     float64 `json:"lowUtilityWeight"`
	MildInflationWeight  float64 `json:"mildInflationWeight"`

	// Cutoffs
	MetadataRiskCutoff    float64 `json:"metadataRiskCutoff"`
	SevereInflationCutoff float64 `json:"severeInflationCutoff"`
	MildInflationCutoff   float64 `json:"mildInflationCutoff"`
	VelocityCutoff        int     `json:"velocityCutoff"`
	MissedPaymentsCutoff  int     `json:"missedPaymentsCutoff"`
	LowUtilityCutoff      float64 `json:"lowUtilityCutoff"`

	// Custom CEL rule evaluation
	CustomRulesEnabled bool `json:"customRulesEnabled"`
	MaxConcurrentRules int  `json:"maxConcurrentRules"`
}

// AdvisoryConfig holds the output caps for advisory generation.
type AdvisoryConfig struct {
	MaxNegativeQuestions int `json:"maxNegativeQuestions"`
	MaxTotalQuestions    int `json:"maxTotalQuestions"`
	MaxDocuments         int `json:"maxDocuments"`
	MaxActions           int `json:"maxActions"`

	// Number of top negative attributions mined for documents.
	DocumentSourceDepth int `json:"documentSourceDepth"`
}

// CounterfactualConfig holds the sensitivity analysis settings.
type CounterfactualConfig struct {
	MaxSuggestions int `json:"maxSuggestions"`

	// Minimum PD reduction for a tweak to count, as a fraction of the
	// baseline PD: 0.001 keeps tweaks that cut PD by at least 0.1%.
	MinReduction float64 `json:"minReduction"`
}

// ExplainConfig holds explanation settings.
type ExplainConfig struct {
	NumFeatures int           `json:"numFeatures"`
	Timeout     time.Duration `json:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Policy: PolicyConfig{
			ApproveThreshold: 0.70,
			RejectThreshold:  0.40,
		},
		Fraud: FraudConfig{
			ExplicitLabelWeight:   0.60,
			DocMismatchWeight:     0.35,
			MetadataRiskWeight:    0.35,
			SevereInflationWeight: 0.35,
			GeoMismatchWeight:     0.15,
			ExpensesExceedWeight:  0.15,
			VelocityWeight:        0.15,
			MissedPaymentsWeight:  0.12,
			LowUtilityWeight:      0.12,
			MildInflationWeight:   0.12,
			MetadataRiskCutoff:    0.80,
			SevereInflationCutoff: 2.50,
			MildInflationCutoff:   1.50,
			VelocityCutoff:        3,
			MissedPaymentsCutoff:  3,
			LowUtilityCutoff:      0.30,
			CustomRulesEnabled:    true,
			MaxConcurrentRules:    16,
		},
		Advisory: AdvisoryConfig{
			MaxNegativeQuestions: 7,
			MaxTotalQuestions:    10,
			MaxDocuments:         6,
			MaxActions:           6,
			DocumentSourceDepth:  4,
		},
		Counterfactual: CounterfactualConfig{
			MaxSuggestions: 5,
			MinReduction:   0.001,
		},
		Explain: ExplainConfig{
			NumFeatures: 10,
			Timeout:     5 * time.Second,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300 * time.Second,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "harrier",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
