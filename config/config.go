package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Server struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LLM selects the model provider used for preference extraction.
type LLM struct {
	Provider string        `mapstructure:"provider"` // ollama | openai
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	BaseURL  string        `mapstructure:"baseUrl"`
	APIKey   string        `mapstructure:"apiKey"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (l *LLM) Address() string {
	if l.BaseURL != "" {
		return l.BaseURL
	}

	return fmt.Sprintf("http://%s:%s", l.Host, l.Port)
}

// Catalog tells the agent where to load cafés and reviews from.
type Catalog struct {
	Source      string `mapstructure:"source"` // csv | database
	ScoresFile  string `mapstructure:"scoresFile"`
	ReviewsFile string `mapstructure:"reviewsFile"`
}

type Database struct {
	Driver   string `mapstructure:"driver"` // postgres | sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite file
}

func (d Database) ConnStr() string {
	if d.Driver == "sqlite" {
		return d.Path
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type Redis struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Nats struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subjectPrefix"`
}

func (n Nats) ConnStr() string {
	return fmt.Sprintf("nats://%s:%s", n.Host, n.Port)
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	LLM      LLM      `mapstructure:"llm"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Nats     Nats     `mapstructure:"nats"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.host", "localhost")
	v.SetDefault("llm.port", "11434")
	v.SetDefault("llm.baseUrl", "")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.model", "llama3.1")
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("catalog.source", "csv")
	v.SetDefault("catalog.scoresFile", "./input/cafe_category_scores.csv")
	v.SetDefault("catalog.reviewsFile", "./input/cafe_reviews_analysis_v3_part_full.csv")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "cafes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "cafes.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cafes:extract")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", "4222")
	v.SetDefault("nats.stream", "CAFES")
	v.SetDefault("nats.subjectPrefix", "cafes.session")
}

// Load reads the config file at path. A missing file is allowed; defaults and
// environment variables (e.g. LLM_MODEL, DATABASE_HOST) still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &config, nil
}

func LoadConfig() *Config {
	config, err := Load("./config/config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	return config
}
