package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestStatus_Valid(t *testing.T) {
	if !StatusOK.Valid() || !StatusNG.Valid() {
		t.Error("OK and NG should be valid")
	}
	if Status("MAYBE").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"OK", StatusOK, false},
		{"ng", StatusNG, false},
		{" Ok ", StatusOK, false},
		{"broken", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRetrievalQuery(t *testing.T) {
	tests := []struct {
		defect string
		want   string
	}{
		{"normal", PreventiveMaintenanceQuery},
		{"Normal", PreventiveMaintenanceQuery},
		{"oil_leak", "oil_leak"},
		{"rust_on_pipe", "rust_on_pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.defect, func(t *testing.T) {
			if got := RetrievalQuery(tt.defect); got != tt.want {
				t.Errorf("RetrievalQuery(%q) = %q, want %q", tt.defect, got, tt.want)
			}
		})
	}
}

func TestClassificationResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		result  *ClassificationResult
		wantErr bool
	}{
		{"valid NG", &ClassificationResult{DefectType: "oil_leak", Status: StatusNG, Confidence: 0.8}, false},
		{"valid OK", &ClassificationResult{DefectType: "normal", Status: StatusOK, Confidence: 0.9}, false},
		{"nil", nil, true},
		{"missing defect", &ClassificationResult{Status: StatusOK, Confidence: 0.9}, true},
		{"bad status", &ClassificationResult{DefectType: "x", Status: "??", Confidence: 0.5}, true},
		{"confidence above one", &ClassificationResult{DefectType: "x", Status: StatusNG, Confidence: 1.2}, true},
		{"negative confidence", &ClassificationResult{DefectType: "x", Status: StatusNG, Confidence: -0.1}, true},
		{"NaN confidence", &ClassificationResult{DefectType: "x", Status: StatusNG, Confidence: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr && !errors.Is(err, ErrClassification) {
				t.Errorf("expected ErrClassification, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAnalyzeRequest_EffectiveClientID(t *testing.T) {
	if got := (AnalyzeRequest{}).EffectiveClientID(); got != DefaultClientID {
		t.Errorf("expected %s, got %s", DefaultClientID, got)
	}
	if got := (AnalyzeRequest{ClientID: "  "}).EffectiveClientID(); got != DefaultClientID {
		t.Errorf("expected %s for blank id, got %s", DefaultClientID, got)
	}
	if got := (AnalyzeRequest{ClientID: "line-3"}).EffectiveClientID(); got != "line-3" {
		t.Errorf("expected line-3, got %s", got)
	}
}

func TestAnalyzeResponse_JSONFieldNames(t *testing.T) {
	resp := AnalyzeResponse{
		Status:            StatusNG,
		DefectType:        "oil_leak",
		Confidence:        0.8,
		ActionRecommended: "fix it",
		RAGSources:        []RetrievedSource{{ManualName: "pump.pdf", Page: 3, Score: 0.7, Snippet: "seal"}},
		LatencyMS:         12.5,
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"status", "defect_type", "confidence", "action_recommended", "rag_sources", "latency_ms"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected field %q in %s", key, data)
		}
	}
	source := fields["rag_sources"].([]any)[0].(map[string]any)
	for _, key := range []string{"manual_name", "page", "score", "snippet"} {
		if _, ok := source[key]; !ok {
			t.Errorf("expected source field %q", key)
		}
	}
}
