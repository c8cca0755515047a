package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "CONTRACTGUARD_CONFIG"
	apiURLEnv        = "CONTRACTGUARD_API_URL"
	storageDriverEnv = "CONTRACTGUARD_STORAGE_DRIVER"
	storageDSNEnv    = "CONTRACTGUARD_STORAGE_DSN"
	logLevelEnv      = "CONTRACTGUARD_LOG_LEVEL"

	defaultAPIURL = "http://127.0.0.1:8000"
)

// Config holds high-level settings required across the application.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Compress CompressConfig `yaml:"compress"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig describes the backend endpoint and per-leg timeouts.
type APIConfig struct {
	BaseURL         string        `yaml:"baseUrl"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	UploadTimeout   time.Duration `yaml:"uploadTimeout"`
	FinalizeTimeout time.Duration `yaml:"finalizeTimeout"`
	UserAgent       string        `yaml:"userAgent"`
}

// StorageConfig selects the local key-value store.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite3 | postgres
	DSN    string `yaml:"dsn"`
}

// CacheConfig sets freshness windows of the cached entities.
type CacheConfig struct {
	ProfileTTL time.Duration `yaml:"profileTtl"`
	HistoryTTL time.Duration `yaml:"historyTtl"`
}

// AnalysisConfig tunes the synthetic progress of analysis jobs.
type AnalysisConfig struct {
	ProgressInterval      time.Duration `yaml:"progressInterval"`
	BatchProgressInterval time.Duration `yaml:"batchProgressInterval"`
	StageInterval         time.Duration `yaml:"stageInterval"`
	SingleCeiling         float64       `yaml:"singleCeiling"`
	BatchCeiling          float64       `yaml:"batchCeiling"`
	SingleStep            float64       `yaml:"singleStep"`
	BatchStep             float64       `yaml:"batchStep"`
	BatchPause            time.Duration `yaml:"batchPause"`
	CompletionDelay       time.Duration `yaml:"completionDelay"`
	MaxImages             int           `yaml:"maxImages"`
}

// PaymentConfig bounds post-payment order polling.
type PaymentConfig struct {
	ConfirmTries    int           `yaml:"confirmTries"`
	ConfirmInterval time.Duration `yaml:"confirmInterval"`
	ConfirmDelay    time.Duration `yaml:"confirmDelay"`
}

// CompressConfig controls photo downscaling before upload.
type CompressConfig struct {
	MaxSide   int    `yaml:"maxSide"`
	Quality   int    `yaml:"quality"`
	Format    string `yaml:"format"`
	OutputDir string `yaml:"outputDir"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env and the YAML file named by CONTRACTGUARD_CONFIG (if
// present) and applies environment overrides.
func Load() Config {
	loadDotEnv()
	return load(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit YAML path; an empty path uses defaults.
func LoadFrom(path string) Config {
	loadDotEnv()
	return load(path)
}

func load(path string) Config {
	cfg := Default()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiURLEnv); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(storageDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.API.BaseURL != "" {
		base.API.BaseURL = override.API.BaseURL
	}
	mergeDuration(&base.API.RequestTimeout, override.API.RequestTimeout)
	mergeDuration(&base.API.UploadTimeout, override.API.UploadTimeout)
	mergeDuration(&base.API.FinalizeTimeout, override.API.FinalizeTimeout)
	if override.API.UserAgent != "" {
		base.API.UserAgent = override.API.UserAgent
	}

	if override.Storage.Driver != "" {
		base.Storage = override.Storage
	}

	mergeDuration(&base.Cache.ProfileTTL, override.Cache.ProfileTTL)
	mergeDuration(&base.Cache.HistoryTTL, override.Cache.HistoryTTL)

	a, o := &base.Analysis, override.Analysis
	mergeDuration(&a.ProgressInterval, o.ProgressInterval)
	mergeDuration(&a.BatchProgressInterval, o.BatchProgressInterval)
	mergeDuration(&a.StageInterval, o.StageInterval)
	mergeCeiling(&a.SingleCeiling, o.SingleCeiling)
	mergeCeiling(&a.BatchCeiling, o.BatchCeiling)
	mergeFloat(&a.SingleStep, o.SingleStep)
	mergeFloat(&a.BatchStep, o.BatchStep)
	mergeDuration(&a.BatchPause, o.BatchPause)
	mergeDuration(&a.CompletionDelay, o.CompletionDelay)
	if o.MaxImages > 0 {
		a.MaxImages = o.MaxImages
	}

	if override.Payment.ConfirmTries > 0 {
		base.Payment.ConfirmTries = override.Payment.ConfirmTries
	}
	mergeDuration(&base.Payment.ConfirmInterval, override.Payment.ConfirmInterval)
	mergeDuration(&base.Payment.ConfirmDelay, override.Payment.ConfirmDelay)

	if override.Compress.MaxSide > 0 {
		base.Compress.MaxSide = override.Compress.MaxSide
	}
	if override.Compress.Quality > 0 {
		base.Compress.Quality = override.Compress.Quality
	}
	if override.Compress.Format != "" {
		base.Compress.Format = override.Compress.Format
	}
	if override.Compress.OutputDir != "" {
		base.Compress.OutputDir = override.Compress.OutputDir
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

// maxProgressCeiling keeps synthetic progress strictly below completion.
const maxProgressCeiling = 99

func mergeCeiling(dst *float64, v float64) {
	mergeFloat(dst, min(v, maxProgressCeiling))
}

func mergeFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// Default returns the built-in settings before file and environment overrides.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:         defaultAPIURL,
			RequestTimeout:  20 * time.Second,
			UploadTimeout:   5 * time.Minute,
			FinalizeTimeout: 5 * time.Minute,
			UserAgent:       "ContractGuard/1.0",
		},
		Storage: StorageConfig{Driver: "sqlite3", DSN: defaultStorePath()},
		Cache:   CacheConfig{ProfileTTL: 30 * time.Second, HistoryTTL: 60 * time.Second},
		Analysis: AnalysisConfig{
			ProgressInterval:      180 * time.Millisecond,
			BatchProgressInterval: 220 * time.Millisecond,
			StageInterval:         2200 * time.Millisecond,
			SingleCeiling:         92,
			BatchCeiling:          98,
			SingleStep:            2,
			BatchStep:             1.2,
			BatchPause:            80 * time.Millisecond,
			CompletionDelay:       900 * time.Millisecond,
			MaxImages:             9,
		},
		Payment: PaymentConfig{
			ConfirmTries:    3,
			ConfirmInterval: 900 * time.Millisecond,
			ConfirmDelay:    600 * time.Millisecond,
		},
		Compress: CompressConfig{MaxSide: 2000, Quality: 75, Format: "jpg"},
		Logging:  LoggingConfig{Level: "warn", Format: "text"},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "contractguard.db"
	}
	return dir + string(os.PathSeparator) + "contractguard" + string(os.PathSeparator) + "store.db"
}
