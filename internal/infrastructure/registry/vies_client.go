// Package registry looks up tax ids against the EU VIES service.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apppartner "github.com/ledgerdocs/backend/internal/application/partner"
	"github.com/ledgerdocs/backend/internal/domain/partner"
)

var _ apppartner.RegistryClient = (*ViesClient)(nil)

// maxResponseSize is the maximum allowed response size from the registry (1MB)
const maxResponseSize = 1 * 1024 * 1024

// DefaultBaseURL is the public VIES REST endpoint
const DefaultBaseURL = "https://ec.europa.eu/taxation_customs/vies/rest-api"

// ErrMalformedTaxID indicates a tax id that cannot be split into
// country code and number
var ErrMalformedTaxID = errors.New("registry: malformed tax id")

// ViesClient verifies VAT ids through the VIES REST API
type ViesClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewViesClient creates a registry client. An empty baseURL selects the
// public VIES endpoint.
func NewViesClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ViesClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViesClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type viesResponse struct {
	IsValid bool   `json:"isValid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Verify checks a VAT id like "DE811569869". The country prefix routes the
// lookup; the remainder is the member-state number.
func (c *ViesClient) Verify(ctx context.Context, taxID string) (partner.RegistryVerification, error) {
	country, number, err := splitTaxID(taxID)
	if err != nil {
		return partner.RegistryVerification{}, err
	}

	url := fmt.Sprintf("%s/ms/%s/vat/%s", c.baseURL, country, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return partner.RegistryVerification{}, fmt.Errorf("building registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return partner.RegistryVerification{}, fmt.Errorf("querying registry: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return partner.RegistryVerification{}, fmt.Errorf("reading registry response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return partner.RegistryVerification{}, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var parsed viesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return partner.RegistryVerification{}, fmt.Errorf("decoding registry response: %w", err)
	}

	now := time.Now().UTC()
	verification := partner.RegistryVerification{
		Valid:             &parsed.IsValid,
		RegisteredName:    cleanRegistryField(parsed.Name),
		RegisteredAddress: cleanRegistryField(parsed.Address),
		CheckedAt:         &now,
	}

	c.logger.Debug("Registry lookup completed",
		zap.String("tax_id", taxID),
		zap.Bool("valid", parsed.IsValid))

	return verification, nil
}

func splitTaxID(taxID string) (country, number string, err error) {
	taxID = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(taxID), " ", ""))
	if len(taxID) < 4 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedTaxID, taxID)
	}
	country, number = taxID[:2], taxID[2:]
	for _, r := range country {
		if r < 'A' || r > 'Z' {
			return "", "", fmt.Errorf("%w: %q", ErrMalformedTaxID, taxID)
		}
	}
	return country, number, nil
}

// cleanRegistryField trims VIES placeholder dashes and noise whitespace
func cleanRegistryField(s string) string {
	s = strings.TrimSpace(s)
	if s == "---" {
		return ""
	}
	return s
}
