package config

import "time"

// File represents the structure of the .urlscan configuration file.
//
//	model:
//	  path: /var/lib/urlscan/model.json
//	  variant: logistic_regression
//	server:
//	  addr: 127.0.0.1:8000
//	  allowedOrigins: ["chrome-extension://abc"]
//	cache:
//	  redisAddr: localhost:6379
//	  ttl: 30m
//	scan:
//	  batchSize: 20
//	  dbDir: /var/lib/urlscan
type File struct {
	Model  ModelSection  `yaml:"model,omitempty"`
	Server ServerSection `yaml:"server,omitempty"`
	Cache  CacheSection  `yaml:"cache,omitempty"`
	Scan   ScanSection   `yaml:"scan,omitempty"`
}

// ModelSection configures the classifier.
type ModelSection struct {
	// Path is the classifier snapshot file.
	Path string `yaml:"path,omitempty"`

	// Variant is random_forest or logistic_regression.
	Variant string `yaml:"variant,omitempty"`

	// Disabled turns the classifier off.
	Disabled bool `yaml:"disabled,omitempty"`

	// Seed overrides the training seed.
	Seed uint64 `yaml:"seed,omitempty"`
}

// ServerSection configures the HTTP API.
type ServerSection struct {
	Addr           string        `yaml:"addr,omitempty"`
	AllowedOrigins []string      `yaml:"allowedOrigins,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
}

// CacheSection configures the redis result cache.
type CacheSection struct {
	RedisAddr     string        `yaml:"redisAddr,omitempty"`
	RedisPassword string        `yaml:"redisPassword,omitempty"`
	RedisDB       int           `yaml:"redisDB,omitempty"`
	TTL           time.Duration `yaml:"ttl,omitempty"`
}

// ScanSection configures CLI scans.
type ScanSection struct {
	BatchSize int    `yaml:"batchSize,omitempty"`
	DBDir     string `yaml:"dbDir,omitempty"`
}

// Apply copies every value set in the file onto cfg.
// Zero values in the file leave cfg unchanged.
func (f *File) Apply(cfg *Config) {
	if f.Model.Path != "" {
		cfg.ModelPath = f.Model.Path
	}
	if f.Model.Variant != "" {
		cfg.ModelVariant = f.Model.Variant
	}
	if f.Model.Disabled {
		cfg.DisableClassifier = true
	}
	if f.Model.Seed != 0 {
		cfg.Seed = f.Model.Seed
	}

	if f.Server.Addr != "" {
		cfg.ServerAddr = f.Server.Addr
	}
	if len(f.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.Server.AllowedOrigins
	}
	if f.Server.RequestTimeout != 0 {
		cfg.RequestTimeout = f.Server.RequestTimeout
	}

	if f.Cache.RedisAddr != "" {
		cfg.RedisAddr = f.Cache.RedisAddr
	}
	if f.Cache.RedisPassword != "" {
		cfg.RedisPassword = f.Cache.RedisPassword
	}
	if f.Cache.RedisDB != 0 {
		cfg.RedisDB = f.Cache.RedisDB
	}
	if f.Cache.TTL != 0 {
		cfg.CacheTTL = f.Cache.TTL
	}

	if f.Scan.BatchSize != 0 {
		cfg.BatchSize = f.Scan.BatchSize
	}
	if f.Scan.DBDir != "" {
		cfg.DBDir = f.Scan.DBDir
	}
}
