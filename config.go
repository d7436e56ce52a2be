package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Defaults applied by InitConfig when a value is not provided.
const (
	DefaultMaxVotes             = 5
	DefaultMaxSuggestions       = 3
	DefaultReconcileConcurrency = 4
	DefaultLogMaxSize           = 10
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit      string          `yaml:"git_commit" envconfig:"IDF_GIT_COMMIT"`
	GitTag         string          `yaml:"git_tag" envconfig:"IDF_GIT_TAG"`
	BuildTime      string          `yaml:"build_time" envconfig:"IDF_BUILD_TIME"`
	IsProduction   bool            `yaml:"is_production" envconfig:"IDF_IS_PRODUCTION"`
	LogLevel       zapcore.Level   `yaml:"log_level" envconfig:"IDF_LOG_LEVEL"`
	LogFolder      string          `yaml:"log_folder" envconfig:"IDF_LOG_FOLDER"`
	LogMaxSize     int             `yaml:"log_max_size" envconfig:"IDF_LOG_MAX_SIZE"` // in megabytes
	ProfilerEnable bool            `yaml:"profiler_enable" envconfig:"IDF_PROFILER_ENABLE"`
	OpsEnable      bool            `yaml:"ops_enable" envconfig:"IDF_OPS_ENABLE"`
	SwaggerEnable  bool            `yaml:"swagger_enable" envconfig:"IDF_SWAGGER_ENABLE"`
	Server         ServerConfig    `yaml:"server"`
	Redis          RedisConfig     `yaml:"redis"`
	BoltDB         BoltDBConfig    `yaml:"boltdb"`
	Voting         VotingConfig    `yaml:"voting"`
	RateLimit      RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"IDF_SERVER_HOST"`
	Port                    string        `yaml:"port" envconfig:"IDF_SERVER_PORT"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"IDF_SERVER_READ_TIMEOUT"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"IDF_SERVER_WRITE_TIMEOUT"`
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"IDF_SERVER_LONG_REQUEST_WRITE_TIMEOUT"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"IDF_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"IDF_SERVER_SHUTDOWN_TIMEOUT"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"IDF_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"IDF_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"IDF_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"IDF_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"IDF_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"IDF_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"IDF_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"IDF_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"IDF_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"IDF_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath string        `yaml:"filepath" envconfig:"IDF_BOLTDB_FILE_PATH"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"IDF_BOLTDB_TIMEOUT"`
}

// VotingConfig holds the ledger settings. A zero ReconcileInterval
// disables the periodic reconciliation.
type VotingConfig struct {
	MaxVotes             int           `yaml:"max_votes" envconfig:"IDF_VOTING_MAX_VOTES"`
	MaxSuggestions       int           `yaml:"max_suggestions" envconfig:"IDF_VOTING_MAX_SUGGESTIONS"`
	Mode                 string        `yaml:"mode" envconfig:"IDF_VOTING_MODE"`
	ReconcileInterval    time.Duration `yaml:"reconcile_interval" envconfig:"IDF_VOTING_RECONCILE_INTERVAL"`
	ReconcileConcurrency int           `yaml:"reconcile_concurrency" envconfig:"IDF_VOTING_RECONCILE_CONCURRENCY"`
}

type RateLimitConfig struct {
	Enable bool    `yaml:"enable" envconfig:"IDF_RATELIMIT_ENABLE"`
	RPS    float64 `yaml:"rps" envconfig:"IDF_RATELIMIT_RPS"`
	Burst  int     `yaml:"burst" envconfig:"IDF_RATELIMIT_BURST"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if len(config.BoltDB.FilePath) == 0 {
		return errors.New("make sure to set a valid boltdb file path in configuration file")
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = DefaultLogMaxSize
	}

	return initVotingConfig(&config.Voting)
}

func initVotingConfig(vc *VotingConfig) error {
	if vc.MaxVotes == 0 {
		vc.MaxVotes = DefaultMaxVotes
	}
	if vc.MaxSuggestions == 0 {
		vc.MaxSuggestions = DefaultMaxSuggestions
	}
	if vc.MaxVotes < 1 || vc.MaxSuggestions < 1 {
		return errors.New("voting quotas must be at least 1")
	}
	if vc.ReconcileInterval < 0 {
		return errors.New("voting reconcile interval must not be negative")
	}
	if vc.ReconcileConcurrency <= 0 {
		vc.ReconcileConcurrency = DefaultReconcileConcurrency
	}
	switch vc.Mode {
	case "":
		vc.Mode = LedgerModeAtomic
	case LedgerModeAtomic, LedgerModeTwoStep:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedLedgerMode, vc.Mode)
	}
	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load("./config.env")
	if err != nil {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `IDF`.
	err = LoadConfigEnvs("IDF", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
