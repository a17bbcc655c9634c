package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/pkg/models"
)

// historyFloat is the Zabbix history type for numeric float items.
const historyFloat = 0

type ZabbixCollector struct {
	client   *http.Client
	endpoint string
	user     string
	password string
	groupIDs []string
	subgroup string

	requestID atomic.Int64
	loginMu   sync.Mutex
	token     string
}

type ZabbixConfig struct {
	Server   string
	User     string
	Password string
	GroupIDs []string
	// Subgroup keeps only hosts whose name contains it. Empty keeps all.
	Subgroup string
	Timeout  time.Duration
}

func NewZabbixCollector(cfg ZabbixConfig) *ZabbixCollector {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &ZabbixCollector{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: strings.TrimRight(cfg.Server, "/") + "/api_jsonrpc.php",
		user:     cfg.User,
		password: cfg.Password,
		groupIDs: cfg.GroupIDs,
		subgroup: cfg.Subgroup,
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
	Auth    string      `json:"auth,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// historyRecord carries clock and value as strings, as the API returns them.
type historyRecord struct {
	ItemID string `json:"itemid"`
	Clock  string `json:"clock"`
	Value  string `json:"value"`
}

func (c *ZabbixCollector) call(ctx context.Context, method string, params interface{}, auth string, out interface{}) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestID.Add(1),
		Auth:    auth,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to encode %s: %v", ErrRequestFailed, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")

	logger.WithField("method", method).Debug("Calling monitoring API")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequestFailed, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: unexpected status code %d", ErrRequestFailed, method, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrRequestFailed, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %s: %s %s (code %d)", ErrAPI, method,
			rpcResp.Error.Message, rpcResp.Error.Data, rpcResp.Error.Code)
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: %s result: %v", ErrInvalidResponse, method, err)
	}
	return nil
}

// authToken logs in once and reuses the session token.
func (c *ZabbixCollector) authToken(ctx context.Context) (string, error) {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	var token string
	params := map[string]string{"username": c.user, "password": c.password}
	if err := c.call(ctx, "user.login", params, "", &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty session token", ErrInvalidResponse)
	}

	c.token = token
	logger.WithField("user", c.user).Info("Logged in to monitoring API")
	return token, nil
}

func (c *ZabbixCollector) authedCall(ctx context.Context, method string, params interface{}, out interface{}) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}
	return c.call(ctx, method, params, token, out)
}

func (c *ZabbixCollector) Hosts(ctx context.Context) ([]models.Host, error) {
	params := map[string]interface{}{
		"groupids": c.groupIDs,
		"output":   []string{"hostid", "name"},
		"filter":   map[string]interface{}{"status": 0},
	}

	var hosts []models.Host
	if err := c.authedCall(ctx, "host.get", params, &hosts); err != nil {
		return nil, err
	}

	if c.subgroup == "" {
		return hosts, nil
	}

	filtered := hosts[:0]
	for _, h := range hosts {
		if strings.Contains(h.Name, c.subgroup) {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}

func (c *ZabbixCollector) Items(ctx context.Context, host models.Host, labels []string) ([]models.Item, error) {
	params := map[string]interface{}{
		"hostids": host.ID,
		"output":  []string{"itemid", "name"},
		"filter":  map[string]interface{}{"name": labels},
	}

	var items []models.Item
	if err := c.authedCall(ctx, "item.get", params, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].HostID = host.ID
	}
	return items, nil
}

func (c *ZabbixCollector) History(ctx context.Context, itemID string, since time.Time) ([]models.RawSample, error) {
	params := map[string]interface{}{
		"itemids":   itemID,
		"time_from": since.Unix(),
		"history":   historyFloat,
		"output":    "extend",
		"sortfield": "clock",
		"sortorder": "ASC",
	}

	var records []historyRecord
	if err := c.authedCall(ctx, "history.get", params, &records); err != nil {
		return nil, err
	}

	samples := make([]models.RawSample, 0, len(records))
	for _, r := range records {
		clock, err := strconv.ParseInt(r.Clock, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad clock %q for item %s", ErrInvalidResponse, r.Clock, itemID)
		}
		samples = append(samples, models.RawSample{Clock: clock, Value: r.Value})
	}
	return samples, nil
}

func (c *ZabbixCollector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
