package registrar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/companionlabs/companion/internal/domain"
)

const defaultRequestTimeout = 15 * time.Second

// EdgeClient talks to the edge platform's domain API over HTTP. It is
// constructed explicitly with its credentials; there is no package-level
// client state.
type EdgeClient struct {
	baseURL string
	token   string
	teamID  string
	http    *http.Client
}

// Compile-time interface check.
var _ Client = (*EdgeClient)(nil)

// NewEdgeClient creates an EdgeClient. teamID may be empty for personal
// accounts. httpClient may be nil, in which case a client with a default
// timeout is used.
func NewEdgeClient(baseURL, token, teamID string, httpClient *http.Client) *EdgeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &EdgeClient{
		baseURL: baseURL,
		token:   token,
		teamID:  teamID,
		http:    httpClient,
	}
}

// edgeDomain is the registrar's wire representation of a domain record.
type edgeDomain struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Verified     bool   `json:"verified"`
	Verification []struct {
		Type   string `json:"type"`
		Domain string `json:"domain"`
		Value  string `json:"value"`
		Reason string `json:"reason"`
	} `json:"verification"`
	Certificates []Certificate `json:"certificates"`
}

type edgeError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Register attaches a domain to the platform project. Idempotent: a
// "domain already exists" response is reported via AlreadyExists rather
// than an error.
func (c *EdgeClient) Register(ctx context.Context, fullDomain string) (*RegisterResult, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/v1/domains", map[string]string{"name": fullDomain})
	if err != nil {
		return nil, fmt.Errorf("registrar.Register %s: %w", fullDomain, err)
	}

	if status == http.StatusConflict {
		var ee edgeError
		_ = json.Unmarshal(body, &ee)
		return &RegisterResult{AlreadyExists: true}, nil
	}
	if status >= 400 {
		return nil, fmt.Errorf("registrar.Register %s: %s", fullDomain, apiError(body, status))
	}

	var d edgeDomain
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("registrar.Register %s: decode: %w", fullDomain, err)
	}

	return &RegisterResult{
		RegistrarRef: d.ID,
		Challenges:   challenges(d),
	}, nil
}

// RequestVerification triggers a verification attempt and maps the
// response onto a discriminated outcome.
func (c *EdgeClient) RequestVerification(ctx context.Context, fullDomain string) (VerificationOutcome, error) {
	path := "/v1/domains/" + url.PathEscape(fullDomain) + "/verify"
	body, status, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, fmt.Errorf("registrar.RequestVerification %s: %w", fullDomain, err)
	}
	if status >= 400 && status != http.StatusConflict {
		return nil, fmt.Errorf("registrar.RequestVerification %s: %s", fullDomain, apiError(body, status))
	}

	var d edgeDomain
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("registrar.RequestVerification %s: decode: %w", fullDomain, err)
	}

	if d.Verified {
		return Verified{Certificates: d.Certificates}, nil
	}
	if chs := challenges(d); len(chs) > 0 {
		return ChallengeRequired{Challenge: chs[0]}, nil
	}

	reason := "domain not yet verified"
	if len(d.Verification) > 0 && d.Verification[0].Reason != "" {
		reason = d.Verification[0].Reason
	}
	return Unverified{Reason: reason}, nil
}

// Config reads the registrar's health view of a domain.
func (c *EdgeClient) Config(ctx context.Context, fullDomain string) (*DomainConfig, error) {
	path := "/v1/domains/" + url.PathEscape(fullDomain) + "/config"
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("registrar.Config %s: %w", fullDomain, err)
	}
	if status >= 400 {
		return nil, fmt.Errorf("registrar.Config %s: %s", fullDomain, apiError(body, status))
	}

	var cfg struct {
		Misconfigured bool `json:"misconfigured"`
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("registrar.Config %s: decode: %w", fullDomain, err)
	}

	return &DomainConfig{Misconfigured: cfg.Misconfigured}, nil
}

// Deregister detaches a domain from the platform project. A 404 is
// treated as success since the desired end state already holds.
func (c *EdgeClient) Deregister(ctx context.Context, fullDomain string) error {
	path := "/v1/domains/" + url.PathEscape(fullDomain)
	body, status, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("registrar.Deregister %s: %w", fullDomain, err)
	}
	if status >= 400 && status != http.StatusNotFound {
		return fmt.Errorf("registrar.Deregister %s: %s", fullDomain, apiError(body, status))
	}
	return nil
}

// do executes a JSON request against the registrar API and returns the
// raw response body and status code. Non-2xx statuses are not errors at
// this level; callers decide which are fatal.
func (c *EdgeClient) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	endpoint := c.baseURL + path
	if c.teamID != "" {
		endpoint += "?teamId=" + url.QueryEscape(c.teamID)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func challenges(d edgeDomain) []domain.DNSChallenge {
	out := make([]domain.DNSChallenge, 0, len(d.Verification))
	for _, v := range d.Verification {
		out = append(out, domain.DNSChallenge{
			Type:  v.Type,
			Name:  v.Domain,
			Value: v.Value,
		})
	}
	return out
}

func apiError(body []byte, status int) string {
	var ee edgeError
	if err := json.Unmarshal(body, &ee); err == nil && ee.Error.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", status, ee.Error.Code, ee.Error.Message)
	}
	return fmt.Sprintf("api error %d", status)
}
