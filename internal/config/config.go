package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Spread    SpreadConfig
	Database  DatabaseConfig
	Exchanges map[string]ExchangeConfig
}

// SpreadConfig defines the spread evaluation settings.
type SpreadConfig struct {
	Instruments          []string `mapstructure:"instruments"`
	QuoteMaxAgeMS        int      `mapstructure:"quote_max_age_ms"`
	EvaluationsPerSecond float64  `mapstructure:"evaluations_per_second"`
	SummaryTime          string   `mapstructure:"summary_time"`
}

// DatabaseConfig defines the connection settings for the optional spread
// event store.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// ExchangeConfig defines settings for a specific exchange. The taker fee is
// kept as a string so the fraction survives config parsing exactly.
type ExchangeConfig struct {
	TakerFee string `mapstructure:"taker_fee"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

// TakerFees parses the configured per-exchange taker fees into fee
// fractions.
func (c Config) TakerFees() (map[string]decimal.Decimal, error) {
	fees := make(map[string]decimal.Decimal, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		fee, err := decimal.NewFromString(ex.TakerFee)
		if err != nil {
			return nil, fmt.Errorf("invalid taker fee for exchange %s: %w", name, err)
		}
		fees[name] = fee
	}
	return fees, nil
}
