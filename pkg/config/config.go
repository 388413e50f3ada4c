package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// InferenceStepDescriptionClean and friends are the recognized AI cleanup
// step names that can appear in INFERENCE_ORDER. Entries of the form
// tag_inference_<field> run a single field's inference.
const (
	InferenceStepDescriptionClean = "description_clean"
	InferenceStepTagInference     = "tag_inference"
	InferenceStepTagFieldPrefix   = "tag_inference_"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	GoogleBooksAPIKey         string
	GoogleBooksBaseURL        string
	GoogleBooksMaxResults     int
	GoogleBooksTimeout        time.Duration
	Hostname                  string
	InferenceOrder            []string
	LLMBaseURL                string
	LLMModel                  string
	LLMTimeout                time.Duration
	ServerHost                string
	ServerPort                int
	StreamPollInterval        time.Duration
	WorkerPollInterval        time.Duration
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		GoogleBooksBaseURL:        "https://www.googleapis.com/books/v1",
		GoogleBooksMaxResults:     10,
		GoogleBooksTimeout:        10 * time.Second,
		Hostname:                  hostname,
		InferenceOrder:            []string{InferenceStepDescriptionClean, InferenceStepTagInference},
		LLMTimeout:                30 * time.Second,
		ServerPort:                3690,
		StreamPollInterval:        time.Second,
		WorkerPollInterval:        5 * time.Second,
	}

	loadProviderConfig(cfg)

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}

func loadProviderConfig(cfg *Config) {
	if v := os.Getenv("GOOGLE_BOOKS_API_KEY"); v != "" {
		cfg.GoogleBooksAPIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = strings.TrimSpace(v)
	}
	if v := os.Getenv("INFERENCE_ORDER"); v != "" {
		cfg.InferenceOrder = ParseInferenceOrder(v)
	}
}

// ParseInferenceOrder splits a comma-separated step list, trimming whitespace
// and dropping empty entries. Step names aren't validated here; the
// enrichment step registry rejects unrecognized names at resolution time.
func ParseInferenceOrder(value string) []string {
	parts := strings.Split(value, ",")
	order := make([]string, 0, len(parts))
	for _, part := range parts {
		step := strings.TrimSpace(part)
		if step == "" {
			continue
		}
		order = append(order, step)
	}
	return order
}
