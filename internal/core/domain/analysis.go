package domain

import (
	"fmt"
	"math"
	"strings"
)

// Status is the binary machine state reported by the classifier
type Status string

const (
	StatusOK Status = "OK" // No actionable defect
	StatusNG Status = "NG" // Defect present ("no good")
)

// Valid checks if the status is a known value
func (s Status) Valid() bool {
	return s == StatusOK || s == StatusNG
}

// ParseStatus parses a status string case-insensitively
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, v)
	}
	return s, nil
}

const (
	// NormalDefect is the classifier label for the no-defect baseline
	NormalDefect = "normal"

	// PreventiveMaintenanceQuery replaces NormalDefect as the retrieval query
	PreventiveMaintenanceQuery = "preventive maintenance"

	// DefaultClientID is recorded when the caller does not identify itself
	DefaultClientID = "unknown"
)

// AnalyzeRequest is one defect report submitted for diagnosis
type AnalyzeRequest struct {
	Image    []byte
	Question string
	ClientID string
}

// EffectiveClientID returns the client id, or DefaultClientID when blank
func (r AnalyzeRequest) EffectiveClientID() string {
	if id := strings.TrimSpace(r.ClientID); id != "" {
		return id
	}
	return DefaultClientID
}

// ClassificationResult is the defect classifier's verdict on an image
type ClassificationResult struct {
	DefectType string  `json:"defect_type" yaml:"defect_type"`
	Status     Status  `json:"status" yaml:"status"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Validate rejects results that would produce a misleading response
func (c *ClassificationResult) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: empty result", ErrClassification)
	}
	if strings.TrimSpace(c.DefectType) == "" {
		return fmt.Errorf("%w: missing defect type", ErrClassification)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrClassification, c.Status)
	}
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrClassification, c.Confidence)
	}
	return nil
}

// IsNormal reports whether the label is the no-defect baseline
func (c *ClassificationResult) IsNormal() bool {
	return strings.EqualFold(c.DefectType, NormalDefect)
}

// AnalyzeResponse is the combined diagnosis returned to the caller
type AnalyzeResponse struct {
	Status            Status            `json:"status"`
	DefectType        string            `json:"defect_type"`
	Confidence        float64           `json:"confidence"`
	ActionRecommended string            `json:"action_recommended"`
	RAGSources        []RetrievedSource `json:"rag_sources"`
	LatencyMS         float64           `json:"latency_ms"`
}

// RetrievalQuery derives the manual search query from a defect label
func RetrievalQuery(defectType string) string {
	if strings.EqualFold(strings.TrimSpace(defectType), NormalDefect) {
		return PreventiveMaintenanceQuery
	}
	return defectType
}
