package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	taskPollInterval  = 2 * time.Second
	taskPollProgress  = 30 * time.Second
	backupTaskTimeout = 3600 * time.Second
	snapshotTimeout   = 600 * time.Second
)

// Config carries the connection settings resolved from
// types.HypervisorConfig.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	TokenID     string
	TokenSecret string
	VerifyTLS   bool
}

// client is the lazily constructed REST client, reused for the process
// lifetime once first used.
type client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger

	ticket    string
	csrfToken string
}

func newClient(cfg Config, logger zerolog.Logger) *client {
	if cfg.Port == 0 {
		cfg.Port = 8006
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS},
	}
	return &client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		logger: logger.With().Str("component", "proxmox_client").Logger(),
	}
}

func (c *client) baseURL() string {
	return fmt.Sprintf("https://%s:%d/api2/json", c.cfg.Host, c.cfg.Port)
}

func (c *client) authHeader() string {
	if c.cfg.TokenID != "" {
		return fmt.Sprintf("PVEAPIToken=%s!%s=%s", c.cfg.User, c.cfg.TokenID, c.cfg.TokenSecret)
	}
	return ""
}

type pveResponse struct {
	Data json.RawMessage `json:"data"`
}

// ensureTicket authenticates with user/password once, lazily, when no API
// token is configured. The resulting ticket and CSRF token are reused for
// the process lifetime, matching the client's overall lazy-connect model.
func (c *client) ensureTicket(ctx context.Context) error {
	if c.cfg.TokenID != "" || c.ticket != "" {
		return nil
	}

	params := url.Values{}
	params.Set("username", c.cfg.User)
	params.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/access/ticket", strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("proxmox: build ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("proxmox: authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("proxmox: authenticate returned %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data struct {
			Ticket              string `json:"ticket"`
			CSRFPreventionToken string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("proxmox: decode ticket response: %w", err)
	}

	c.ticket = envelope.Data.Ticket
	c.csrfToken = envelope.Data.CSRFPreventionToken
	return nil
}

func (c *client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if err := c.ensureTicket(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	reqURL := c.baseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("proxmox: build request: %w", err)
	}
	if h := c.authHeader(); h != "" {
		req.Header.Set("Authorization", h)
	} else if c.ticket != "" {
		req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: c.ticket})
		if method != http.MethodGet {
			req.Header.Set("CSRFPreventionToken", c.csrfToken)
		}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("proxmox: request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("proxmox: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("proxmox: %s %s returned %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	var envelope pveResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("proxmox: decode envelope: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

// clusterResource is one row of GET /cluster/resources?type=vm.
type clusterResource struct {
	VMID   int    `json:"vmid"`
	Node   string `json:"node"`
	Type   string `json:"type"` // qemu or lxc
	Status string `json:"status"`
}

// resolveNode finds the authoritative node for vmid/kind via the cluster
// resources index, falling back to hintNode when the lookup fails or the
// vmid is absent — the descriptor's node is only a hint.
func (c *client) resolveNode(ctx context.Context, vmid int, kind string, hintNode string) string {
	var resources []clusterResource
	if err := c.do(ctx, http.MethodGet, "/cluster/resources?type=vm", nil, &resources); err != nil {
		c.logger.Warn().Err(err).Int("vmid", vmid).Str("hint_node", hintNode).
			Msg("cluster resources lookup failed, falling back to configured node hint")
		return hintNode
	}
	for _, r := range resources {
		if r.VMID == vmid && r.Type == kind {
			if r.Node != hintNode {
				c.logger.Info().Int("vmid", vmid).Str("hint_node", hintNode).Str("actual_node", r.Node).
					Msg("vmid resolved to a different node than the config hint, likely migrated")
			}
			return r.Node
		}
	}
	c.logger.Warn().Int("vmid", vmid).Str("hint_node", hintNode).
		Msg("vmid not found in cluster resources, falling back to configured node hint")
	return hintNode
}

type taskStatus struct {
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus"`
}

func (c *client) taskStatus(ctx context.Context, node, upid string) (*taskStatus, error) {
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", node, url.PathEscape(upid))
	var status taskStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type taskLogLine struct {
	N int    `json:"n"`
	T string `json:"t"`
}

// taskErrorLines returns up to the last 3 lines of the task log that
// mention "error" or "fail" (case-insensitive).
func (c *client) taskErrorLines(ctx context.Context, node, upid string) []string {
	path := fmt.Sprintf("/nodes/%s/tasks/%s/log", node, url.PathEscape(upid))
	var lines []taskLogLine
	if err := c.do(ctx, http.MethodGet, path, nil, &lines); err != nil {
		return nil
	}

	var matches []string
	for _, l := range lines {
		lower := strings.ToLower(l.T)
		if strings.Contains(lower, "error") || strings.Contains(lower, "fail") {
			matches = append(matches, l.T)
		}
	}
	if len(matches) > 3 {
		matches = matches[len(matches)-3:]
	}
	return matches
}

// waitForTask polls until the task reaches status=stopped or timeout
// elapses, logging progress every 30 seconds of elapsed time.
func (c *client) waitForTask(ctx context.Context, node, upid string, timeout time.Duration) (*taskStatus, error) {
	deadline := time.Now().Add(timeout)
	nextProgressLog := time.Now().Add(taskPollProgress)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		status, err := c.taskStatus(ctx, node, upid)
		if err != nil {
			c.logger.Warn().Err(err).Str("upid", upid).Msg("task status check failed, retrying")
		} else if status.Status == "stopped" {
			return status, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("proxmox: task %s timed out after %s", upid, timeout)
		}
		if time.Now().After(nextProgressLog) {
			c.logger.Info().Str("upid", upid).Dur("elapsed", timeout-time.Until(deadline)).
				Msg("still waiting on proxmox task")
			nextProgressLog = time.Now().Add(taskPollProgress)
		}

		time.Sleep(taskPollInterval)
	}
}

func (c *client) startBackup(ctx context.Context, node string, vmid int, mode, compress, storage, dumpdir string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/vzdump", node)
	params := url.Values{}
	params.Set("vmid", strconv.Itoa(vmid))
	params.Set("mode", mode)
	params.Set("compress", compress)
	if storage != "" {
		params.Set("storage", storage)
	}
	if dumpdir != "" {
		params.Set("dumpdir", dumpdir)
	}

	var upid string
	if err := c.do(ctx, http.MethodPost, path, params, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

func (c *client) snapshotCreate(ctx context.Context, node, kind string, vmid int, name string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/snapshot", node, kind, vmid)
	params := url.Values{}
	params.Set("snapname", name)
	var upid string
	if err := c.do(ctx, http.MethodPost, path, params, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

func (c *client) snapshotRollback(ctx context.Context, node, kind string, vmid int, name string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/snapshot/%s/rollback", node, kind, vmid, url.PathEscape(name))
	var upid string
	if err := c.do(ctx, http.MethodPost, path, url.Values{}, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

func (c *client) snapshotDelete(ctx context.Context, node, kind string, vmid int, name string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/snapshot/%s", node, kind, vmid, url.PathEscape(name))
	var upid string
	if err := c.do(ctx, http.MethodDelete, path, nil, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

type vmStatus struct {
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	Mem    int64   `json:"mem"`
	Uptime int64   `json:"uptime"`
}

func (c *client) status(ctx context.Context, node, kind string, vmid int) (*vmStatus, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/status/current", node, kind, vmid)
	var s vmStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// probeVersion is used as the fast reachability check for remote archive
// destination selection — a GET on the trivial version endpoint.
func (c *client) probeVersion(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/version", nil, nil)
}
