// Package extraction adapts the external field-extraction service.
package extraction

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

	"go.uber.org/zap"

	appdocument "github.com/ledgerdocs/backend/internal/application/document"
	"github.com/ledgerdocs/backend/internal/domain/document"
)

// maxResponseSize is the maximum allowed response size from the extractor (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrServiceUnavailable indicates a transient extractor failure worth retrying
var ErrServiceUnavailable = errors.New("extraction: service unavailable")

var _ appdocument.Extractor = (*HTTPExtractor)(nil)

// HTTPExtractor calls a document-extraction service over HTTP. The document
// bytes travel base64-encoded in the request body; the response is the raw
// field set the pipeline normalizes afterwards.
type HTTPExtractor struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPExtractor creates an extractor client
func NewHTTPExtractor(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*HTTPExtractor, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("extraction: base URL is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPExtractor{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type extractRequest struct {
	Content   string `json:"content"`
	MimeType  string `json:"mime_type"`
	Direction string `json:"direction"`
}

// Extract sends the document to the extraction service and returns its raw
// field output. Direction selects which party of the invoice is the
// counterpart to be extracted.
func (e *HTTPExtractor) Extract(ctx context.Context, data []byte, mimeType string, direction document.Direction) (*appdocument.RawExtraction, error) {
	payload, err := json.Marshal(extractRequest{
		Content:   base64.StdEncoding.EncodeToString(data),
		MimeType:  mimeType,
		Direction: string(direction),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	started := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading extraction response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, truncate(body, 200))
	default:
		return nil, fmt.Errorf("extraction rejected with status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var raw appdocument.RawExtraction
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding extraction response: %w", err)
	}

	e.logger.Debug("Extraction completed",
		zap.String("mime_type", mimeType),
		zap.String("direction", string(direction)),
		zap.Duration("took", time.Since(started)))

	return &raw, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
