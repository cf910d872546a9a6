package domain

import (
	"fmt"
	"time"
)

// EmbeddingProvider identifies the embedding backend
type EmbeddingProvider string

const (
	EmbeddingProviderLocal  EmbeddingProvider = "local"  // Feature hashing, no network
	EmbeddingProviderOpenAI EmbeddingProvider = "openai" // OpenAI-compatible /embeddings
	EmbeddingProviderOllama EmbeddingProvider = "ollama" // Self-hosted Ollama
)

// IsValid checks if the provider is supported
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderLocal, EmbeddingProviderOpenAI, EmbeddingProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns whether this provider requires an API key
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider   EmbeddingProvider `json:"provider" yaml:"provider"`
	Model      string            `json:"model" yaml:"model"`
	APIKey     string            `json:"-" yaml:"api_key"` // Never serialize to JSON
	BaseURL    string            `json:"base_url,omitempty" yaml:"base_url"`
	Dimensions int               `json:"dimensions" yaml:"dimensions"`
	BatchSize  int               `json:"batch_size" yaml:"batch_size"`
}

// DefaultEmbeddingSettings returns the offline default
func DefaultEmbeddingSettings() EmbeddingSettings {
	return EmbeddingSettings{
		Provider:   EmbeddingProviderLocal,
		Model:      "local-hash-v1",
		Dimensions: 384,
		BatchSize:  64,
	}
}

// Validate checks that the settings can build a service
func (e EmbeddingSettings) Validate() error {
	if !e.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrInvalidProvider, e.Provider)
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return fmt.Errorf("%w: %s embedding requires an api key", ErrInvalidInput, e.Provider)
	}
	if e.BatchSize < 0 || e.Dimensions < 0 {
		return fmt.Errorf("%w: negative embedding batch size or dimensions", ErrInvalidInput)
	}
	return nil
}

// ClassifierProvider identifies the defect classifier backend
type ClassifierProvider string

const (
	ClassifierProviderStub  ClassifierProvider = "stub"  // Seeded random labels
	ClassifierProviderFixed ClassifierProvider = "fixed" // Always the configured verdict
	ClassifierProviderHTTP  ClassifierProvider = "http"  // Remote model endpoint
)

// IsValid checks if the provider is supported
func (p ClassifierProvider) IsValid() bool {
	switch p {
	case ClassifierProviderStub, ClassifierProviderFixed, ClassifierProviderHTTP:
		return true
	default:
		return false
	}
}

// ClassifierSettings configures the defect classifier
type ClassifierSettings struct {
	Provider ClassifierProvider `json:"provider" yaml:"provider"`
	Endpoint string             `json:"endpoint,omitempty" yaml:"endpoint"`
	APIKey   string             `json:"-" yaml:"api_key"`
	Timeout  time.Duration      `json:"timeout" yaml:"timeout"`
	Seed     int64              `json:"seed" yaml:"seed"`

	// Labels the stub classifier draws from
	Labels []string `json:"labels,omitempty" yaml:"labels"`

	// Verdict returned by the fixed classifier
	Fixed ClassificationResult `json:"fixed" yaml:"fixed"`
}

// DefaultClassifierSettings returns the stub classifier used before a model is deployed
func DefaultClassifierSettings() ClassifierSettings {
	return ClassifierSettings{
		Provider: ClassifierProviderStub,
		Timeout:  30 * time.Second,
		Labels:   []string{"normal", "rust_on_pipe", "oil_leak", "loose_bolt"},
		Fixed:    ClassificationResult{DefectType: NormalDefect, Status: StatusOK, Confidence: 0.9},
	}
}

// Validate checks that the settings can build a classifier
func (c ClassifierSettings) Validate() error {
	if !c.Provider.IsValid() {
		return fmt.Errorf("%w: classifier provider %q", ErrInvalidProvider, c.Provider)
	}
	switch c.Provider {
	case ClassifierProviderHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("%w: http classifier requires an endpoint", ErrInvalidInput)
		}
	case ClassifierProviderFixed:
		if err := c.Fixed.Validate(); err != nil {
			return err
		}
	case ClassifierProviderStub:
		if len(c.Labels) == 0 {
			return fmt.Errorf("%w: stub classifier requires labels", ErrInvalidInput)
		}
	}
	return nil
}
