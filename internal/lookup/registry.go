package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
)

// RegistryClient queries the external outcome-instrument registry for the
// validated instruments of a disease.
type RegistryClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewRegistryClient creates a new instrument registry API client
func NewRegistryClient(cfg domain.LookupConfig, logger *logrus.Logger) *RegistryClient {
	timeout := cfg.FetchTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RegistryClient{
		baseURL: strings.TrimSuffix(cfg.RegistryURL, "/"),
		apiKey:  cfg.RegistryAPIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger,
	}
}

// registryResponse represents the JSON response from the registry search
type registryResponse struct {
	Disease     string               `json:"disease"`
	Instruments []registryInstrument `json:"instruments"`
}

type registryInstrument struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FetchInstruments implements Fetcher. Instrument names are lowercased so
// endpoint labels match case-insensitively downstream.
func (c *RegistryClient) FetchInstruments(ctx context.Context, disease string) (map[string]float64, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("instrument registry is not configured")
	}

	params := url.Values{}
	params.Set("disease", NormalizeDisease(disease))

	requestURL := fmt.Sprintf("%s/instruments?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var parsed registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	scores := make(map[string]float64, len(parsed.Instruments))
	for _, inst := range parsed.Instruments {
		if inst.Name == "" {
			continue
		}
		scores[strings.ToLower(inst.Name)] = inst.Score
	}

	c.log.WithFields(logrus.Fields{
		"disease":     disease,
		"instruments": len(scores),
	}).Debug("Fetched instruments from registry")

	return scores, nil
}
