// Package reputation looks up IP addresses against a VirusTotal-style
// scoring service and normalizes the result into a fixed record.
package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultBaseURL is the production reputation service endpoint.
	DefaultBaseURL = "https://www.virustotal.com/api/v3"

	httpTimeout = 15 * time.Second
	maxAttempts = 3
)

// Record is the normalized reputation/threat record for one IP address.
// A lookup always yields a usable record; upstream failures produce the
// zeroed form with IPAddress still populated.
type Record struct {
	Malicious             int    `json:"malicious"`
	Suspicious            int    `json:"suspicious"`
	Clean                 int    `json:"clean"`
	CommunityScore        int    `json:"community_score"`
	MaliciousVendorsCount string `json:"malicious_vendors_count"`

	IPAddress        string         `json:"ip_address"`
	ASN              int            `json:"asn"`
	Organization     string         `json:"organization"`
	Country          string         `json:"country"`
	IPRange          string         `json:"ip_range"`
	LastAnalysisDate string         `json:"last_analysis_date"`
	CommunityFeeds   int            `json:"community_feeds"`
	VotingDetails    int            `json:"voting_details"`
	CommentsCount    int            `json:"comments_count"`
	Whois            map[string]any `json:"whois"`
}

// Client calls the reputation service.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a reputation client. A missing API key is a configuration
// error and fails immediately rather than at first lookup.
func New(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("reputation: API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: httpTimeout,
		},
	}, nil
}

// serviceResponse is the subset of the upstream JSON the record needs.
type serviceResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats map[string]int `json:"last_analysis_stats"`
			TotalVotes        struct {
				Harmless  int `json:"harmless"`
				Malicious int `json:"malicious"`
			} `json:"total_votes"`
			ASN              int    `json:"asn"`
			ASOwner          string `json:"as_owner"`
			Country          string `json:"country"`
			Network          string `json:"network"`
			LastAnalysisDate int64  `json:"last_analysis_date"`
			Whois            string `json:"whois"`
		} `json:"attributes"`
	} `json:"data"`
}

// Lookup fetches the reputation record for an IP. Non-success responses and
// network failures (after bounded retries) are treated as "not found" and
// return the zeroed record, never an error; the error return covers context
// cancellation only.
func (c *Client) Lookup(ctx context.Context, ip string) (Record, error) {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/ip_addresses/%s", c.baseURL, ip))
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		return notFoundRecord(ip), nil
	}
	if status != http.StatusOK {
		return notFoundRecord(ip), nil
	}

	var resp serviceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return notFoundRecord(ip), nil
	}

	attr := resp.Data.Attributes
	stats := attr.LastAnalysisStats

	// Synonymous stat categories are summed into the three verdict buckets.
	malicious := stats["malicious"] + stats["malware"]
	suspicious := stats["suspicious"] + stats["spam"]
	clean := stats["harmless"]

	total := 0
	for _, n := range stats {
		total += n
	}
	vendorCount := "0/0 vendors flagged"
	if total > 0 {
		vendorCount = fmt.Sprintf("%d/%d vendors flagged", malicious, total)
	}

	votes := attr.TotalVotes
	votingDetails := votes.Harmless + votes.Malicious
	commentsCount := c.commentsCount(ctx, ip)

	lastAnalysis := "N/A"
	if attr.LastAnalysisDate > 0 {
		lastAnalysis = time.Unix(attr.LastAnalysisDate, 0).UTC().Format("2006-01-02 15:04:05")
	}

	return Record{
		Malicious:             malicious,
		Suspicious:            suspicious,
		Clean:                 clean,
		CommunityScore:        votes.Harmless - votes.Malicious,
		MaliciousVendorsCount: vendorCount,
		IPAddress:             ip,
		ASN:                   attr.ASN,
		Organization:          attr.ASOwner,
		Country:               attr.Country,
		IPRange:               ipRange(ip, attr.Network),
		LastAnalysisDate:      lastAnalysis,
		CommunityFeeds:        votingDetails + commentsCount,
		VotingDetails:         votingDetails,
		CommentsCount:         commentsCount,
		Whois:                 ParseWhois(attr.Whois),
	}, nil
}

// commentsCount fetches the community comment count for an IP. Any failure
// yields 0 and is non-fatal to the overall lookup.
func (c *Client) commentsCount(ctx context.Context, ip string) int {
	body, status, err := c.get(ctx, fmt.Sprintf("%s/ip_addresses/%s/comments", c.baseURL, ip))
	if err != nil || status != http.StatusOK {
		return 0
	}

	var resp struct {
		Meta struct {
			Count *int `json:"count"`
		} `json:"meta"`
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0
	}
	if resp.Meta.Count != nil {
		return *resp.Meta.Count
	}
	return len(resp.Data)
}

// get issues a GET with retries on transport errors. Non-2xx responses are
// returned to the caller without retrying; the service answers 404 for
// unknown IPs and that is not transient.
func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	type result struct {
		body   []byte
		status int
	}

	op := func() (result, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return result{}, backoff.Permanent(err)
		}
		req.Header.Set("x-apikey", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return result{}, fmt.Errorf("reputation request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{}, fmt.Errorf("read reputation response: %w", err)
		}
		return result{body: body, status: resp.StatusCode}, nil
	}

	r, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return nil, 0, err
	}
	return r.body, r.status, nil
}

// ipRange prefers the service-supplied network range and otherwise derives
// a best-effort /24 from the dotted IP.
func ipRange(ip, network string) string {
	if strings.Contains(network, "/") {
		return network
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return "N/A"
	}
	return fmt.Sprintf("%s.%s.%s.0/24", parts[0], parts[1], parts[2])
}

// ParseWhois splits freeform WHOIS text into a map on the first colon per
// line. Lines keyed "address" (case-insensitive) accumulate into an ordered
// list instead of overwriting each other.
func ParseWhois(raw string) map[string]any {
	parsed := map[string]any{}
	if raw == "" || raw == "N/A" {
		return parsed
	}

	var addresses []string
	for _, line := range strings.Split(raw, "\n") {
		k, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)

		if strings.EqualFold(k, "address") {
			addresses = append(addresses, v)
			continue
		}
		parsed[k] = v
	}
	if len(addresses) > 0 {
		parsed["address"] = addresses
	}
	return parsed
}

func notFoundRecord(ip string) Record {
	return Record{
		MaliciousVendorsCount: "0/0 vendors flagged",
		IPAddress:             ip,
		IPRange:               "N/A",
		LastAnalysisDate:      "N/A",
		Whois:                 map[string]any{},
	}
}
