package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/document"
)

// maxResponseSize is the maximum allowed response size from the catalogue (5MB)
const maxResponseSize = 5 * 1024 * 1024

var _ appdocument.RuleEvaluator = (*HTTPEvaluator)(nil)

// HTTPEvaluator delegates check evaluation to an external rule catalogue
// service that owns the maintained legal rule set.
type HTTPEvaluator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPEvaluator creates a catalogue-service client
func NewHTTPEvaluator(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*HTTPEvaluator, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("rules: base URL is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPEvaluator{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type evaluateRequest struct {
	Fields    document.ExtractedFields `json:"fields"`
	Direction string                   `json:"direction"`
}

type evaluateResponse struct {
	Checks []document.Check `json:"checks"`
}

// Evaluate posts the field snapshot to the catalogue and returns its checks.
// Unknown severities from a newer catalogue version are clamped to warning
// rather than rejected.
func (e *HTTPEvaluator) Evaluate(ctx context.Context, fields document.ExtractedFields, direction document.Direction) ([]document.Check, error) {
	payload, err := json.Marshal(evaluateRequest{Fields: fields, Direction: string(direction)})
	if err != nil {
		return nil, fmt.Errorf("encoding rule request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/evaluate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building rule request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying rule catalogue: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading rule response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rule catalogue returned status %d", resp.StatusCode)
	}

	var parsed evaluateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding rule response: %w", err)
	}

	for i := range parsed.Checks {
		if !parsed.Checks[i].Severity.IsKnown() {
			e.logger.Warn("Rule catalogue returned unknown severity",
				zap.String("rule_id", parsed.Checks[i].RuleID),
				zap.String("severity", string(parsed.Checks[i].Severity)))
			parsed.Checks[i].Severity = document.SeverityWarning
		}
	}

	return parsed.Checks, nil
}
