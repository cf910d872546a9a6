package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure HTTPClassifier implements DefectClassifier
var _ driven.DefectClassifier = (*HTTPClassifier)(nil)

// maxClassifierResponse caps how much of a model reply is read
const maxClassifierResponse = 1 << 20

// HTTPClassifier sends images to a remote vision model endpoint
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type classifyRequest struct {
	ImageBase64 string `json:"image_base64"`
	Prompt      string `json:"prompt"`
	Question    string `json:"question,omitempty"`
}

type classifyResponse struct {
	DefectType string   `json:"defect_type"`
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error,omitempty"`
}

// NewHTTPClassifier creates a classifier backed by endpoint
func NewHTTPClassifier(endpoint, apiKey string, timeout time.Duration) (*HTTPClassifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: classifier endpoint is required", domain.ErrInvalidInput)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Classify posts the image and prompt and validates the verdict
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte, question string) (*domain.ClassificationResult, error) {
	body, err := json.Marshal(classifyRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		Prompt:      BuildVisionPrompt(question),
		Question:    strings.TrimSpace(question),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrClassification, domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxClassifierResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrClassification, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model returned status %d", domain.ErrClassification, resp.StatusCode)
	}

	var out classifyResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed model output: %v", domain.ErrClassification, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: model error: %s", domain.ErrClassification, out.Error)
	}
	if out.Confidence == nil {
		return nil, fmt.Errorf("%w: model output has no confidence", domain.ErrClassification)
	}

	result := &domain.ClassificationResult{
		DefectType: strings.TrimSpace(out.DefectType),
		Confidence: *out.Confidence,
	}
	if result.IsNormal() {
		result.DefectType = domain.NormalDefect
		result.Status = domain.StatusOK
	} else {
		status, err := domain.ParseStatus(out.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrClassification, err)
		}
		result.Status = status
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClassifier) Name() string { return "http" }
