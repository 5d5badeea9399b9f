package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-recommender/internal/geo"
	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/server"
)

const (
	app = "job-recommender"
)

type Config struct {
	Weights     recommend.Weights    `mapstructure:"weights"`
	Geocoder    geo.NominatimOptions `mapstructure:"geocoder"`
	Cache       CacheConfig          `mapstructure:"cache"`
	Server      ServerConfig         `mapstructure:"server"`
	ExcludeFile string               `mapstructure:"exclude-file"`
	Exclude     *ExcludeConfig       `mapstructure:"exclude"`
	AI          *AIConfig            `mapstructure:"ai"`
}

type ExcludeConfig struct {
	Companies []string `mapstructure:"companies"`
}

type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	PurgeSchedule string        `mapstructure:"purge-schedule"`
	Redis         *RedisConfig  `mapstructure:"redis"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PasswordFile string `mapstructure:"password-file"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile       string `mapstructure:"api-key-file"`
	Model            string `mapstructure:"model"`
	MaxRetries       int    `mapstructure:"max-retries"`
	MaxLogLength     int    `mapstructure:"max-log-length"`
	Tone             string `mapstructure:"tone"`
	UserInstructions string `mapstructure:"user-instructions"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-recommender ranks job postings against a resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindEnvs()
	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-recommender.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func bindEnvs() {
	bindEnv("cache.redis.url", "REDIS_URL")
	bindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE")
	bindEnv("server.address", "JOB_RECOMMENDER_ADDRESS")
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Fatalf("binding %s environment variable: %v", env, err)
	}
}

func setDefaults() {
	w := recommend.DefaultWeights()
	viper.SetDefault("weights.skills", w.Skills)
	viper.SetDefault("weights.experience", w.Experience)
	viper.SetDefault("weights.location", w.Location)
	viper.SetDefault("weights.salary", w.Salary)
	viper.SetDefault("weights.notice-period", w.NoticePeriod)
	viper.SetDefault("weights.liked-bonus", w.LikedBonus)
	viper.SetDefault("weights.top-n", w.TopN)

	viper.SetDefault("cache.ttl", geo.DefaultCacheTTL)
	viper.SetDefault("cache.purge-schedule", "@every 1h")
	viper.SetDefault("server.address", server.DefaultAddress)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a default, so the config file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && cfgFile == "" {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}
