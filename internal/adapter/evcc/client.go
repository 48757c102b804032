package evcc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/evccdisplay/internal/core/domain"
)

// DefaultPath asks evcc for a server-side projection of /api/state that only
// contains the fields the dashboard uses.
const DefaultPath = "/api/state?jq={gridPower:.grid.power,pvPower:.pvPower,batterySoc:.batterySoc," +
	"homePower:.homePower,batteryPower:.batteryPower," +
	"solar:{scale:(.forecast.solar.scale),todayEnergy:(.forecast.solar.today.energy)}," +
	"loadpoints:[.loadpoints[0],.loadpoints[1]]|map(select(.!=null)|{chargePower:.chargePower," +
	"soc:(.vehicleSoc//.soc),charging:.charging,plugged:(.connected//.plugged),title:.title," +
	"vehicletitle:.vehicleTitle,vehicleRange:.vehicleRange,effectivePlanTime:.effectivePlanTime," +
	"effectivePlanSoc:.effectivePlanSoc,effectiveLimitSoc:.effectiveLimitSoc," +
	"planProjectedStart:.planProjectedStart,chargeCurrents:.chargeCurrents,maxCurrent:.maxCurrent," +
	"offeredCurrent:.offeredCurrent,phasesActive:.phasesActive,chargedEnergy:.chargedEnergy," +
	"chargeRemainingDuration:.chargeRemainingDuration})}"

type Client struct {
	Host         string
	Port         int
	Path         string
	Timeout      time.Duration
	MaxBodyBytes int64
	httpClient   *http.Client
	url          string
}

func NewClient(host string, port int, path string, timeout time.Duration, maxBodyBytes int64) (*Client, error) {
	if path == "" {
		path = DefaultPath
	}
	u, err := buildURL(host, port, path)
	if err != nil {
		return nil, err
	}
	return &Client{
		Host:         host,
		Port:         port,
		Path:         path,
		Timeout:      timeout,
		MaxBodyBytes: maxBodyBytes,
		httpClient:   &http.Client{Timeout: timeout},
		url:          u,
	}, nil
}

// buildURL escapes the query so the jq expression survives any proxy.
func buildURL(host string, port int, path string) (string, error) {
	rawPath, rawQuery, _ := strings.Cut(path, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid evcc path query: %w", err)
	}
	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     rawPath,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Probe(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
	if err != nil {
		return &domain.NetworkError{Op: "dial", Err: err}
	}
	_ = conn.Close()
	return nil
}

func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", c.url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Op: "get", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.NetworkError{Op: "get", Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	reader := io.Reader(resp.Body)
	if c.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, c.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &domain.NetworkError{Op: "read", Err: err}
	}
	if c.MaxBodyBytes > 0 && int64(len(body)) > c.MaxBodyBytes {
		return nil, &domain.NetworkError{Op: "read", Err: domain.ErrBodyTooLarge}
	}
	return body, nil
}

func (c *Client) Decode(body []byte, dst *domain.TelemetrySnapshot) error {
	return Decode(body, dst)
}
