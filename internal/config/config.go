package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	ChainID           uint64
	Contract          string
	EventTypes        []string
	User              string
	FromBlock         uint64
	ToBlock           uint64
	Limit             int
	BatchSize         uint64
	MinBlockRange     uint64
	MaxBlockRange     uint64
	LookbackBlocks    uint64
	MaxRetries        int
	RetryDelay        time.Duration
	InterBatchDelay   time.Duration
	RateLimitInterval time.Duration
	Out               string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PERPSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("batch-size", uint64(50))
	v.SetDefault("min-block-range", uint64(10))
	v.SetDefault("max-block-range", uint64(500))
	v.SetDefault("lookback-blocks", uint64(1000))
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-delay", time.Second)
	v.SetDefault("inter-batch-delay", 500*time.Millisecond)
	v.SetDefault("rate-limit-interval", 100*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		ChainID:           v.GetUint64("chain-id"),
		Contract:          v.GetString("contract"),
		EventTypes:        getStringSlice(v, "event-type"),
		User:              v.GetString("user"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Limit:             v.GetInt("limit"),
		BatchSize:         v.GetUint64("batch-size"),
		MinBlockRange:     v.GetUint64("min-block-range"),
		MaxBlockRange:     v.GetUint64("max-block-range"),
		LookbackBlocks:    v.GetUint64("lookback-blocks"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryDelay:        v.GetDuration("retry-delay"),
		InterBatchDelay:   v.GetDuration("inter-batch-delay"),
		RateLimitInterval: v.GetDuration("rate-limit-interval"),
		Out:               v.GetString("out"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
