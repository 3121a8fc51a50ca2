package control

import (
	"sync"

	"github.com/samber/oops"
	"github.com/ybbus/jsonrpc/v2"
)

// Client is a convenience wrapper for talking to the agent control server.
// It authenticates lazily, attaches the token to every call, and
// re-authenticates once when the server reports an expired token.
type Client struct {
	rpc      jsonrpc.RPCClient
	password string

	mu    sync.Mutex
	token string
}

// NewClient creates a control client for the given endpoint URL, e.g.
// "http://localhost:49191/jsonrpc".
func NewClient(endpoint, password string) *Client {
	return &Client{
		rpc:      jsonrpc.NewClient(endpoint),
		password: password,
	}
}

// Authenticate obtains a fresh access token.
func (c *Client) Authenticate() error {
	resp, err := c.rpc.Call("Authenticate", map[string]interface{}{
		"API":      1,
		"Password": c.password,
	})
	if err != nil {
		return oops.Errorf("control client: authenticate: %w", err)
	}
	if resp.Error != nil {
		return oops.Errorf("control client: authenticate: %s", resp.Error.Message)
	}

	var result struct {
		API   int    `json:"API"`
		Token string `json:"Token"`
	}
	if err := resp.GetObject(&result); err != nil {
		return oops.Errorf("control client: decode authenticate result: %w", err)
	}
	if result.Token == "" {
		return oops.Errorf("control client: empty token in authenticate result")
	}

	c.mu.Lock()
	c.token = result.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// call performs an authenticated RPC, authenticating first if no token is
// held and retrying once when the token has expired server-side.
func (c *Client) call(method string, params map[string]interface{}) (*jsonrpc.RPCResponse, error) {
	if c.currentToken() == "" {
		if err := c.Authenticate(); err != nil {
			return nil, err
		}
	}

	merged := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		merged[k] = v
	}
	merged["Token"] = c.currentToken()

	resp, err := c.rpc.Call(method, merged)
	if err != nil {
		return nil, oops.Errorf("control client: %s: %w", method, err)
	}

	if resp.Error != nil && resp.Error.Code == ErrCodeAuthRequired {
		if err := c.Authenticate(); err != nil {
			return nil, err
		}
		merged["Token"] = c.currentToken()
		resp, err = c.rpc.Call(method, merged)
		if err != nil {
			return nil, oops.Errorf("control client: %s: %w", method, err)
		}
	}

	if resp.Error != nil {
		return nil, oops.Errorf("control client: %s: %s", method, resp.Error.Message)
	}
	return resp, nil
}

// statusFields is the full field set requested by FetchStatus.
var statusFields = []string{
	"otbr.agent.role",
	"otbr.agent.attached",
	"otbr.agent.network.name",
	"otbr.agent.network.xpanid",
	"otbr.agent.thread.version",
	"otbr.agent.uptime",
	"otbr.agent.radio.url",
	"otbr.agent.running",
}

// FetchStatus retrieves the complete agent status snapshot.
func (c *Client) FetchStatus() (AgentStatus, error) {
	params := make(map[string]interface{}, len(statusFields))
	for _, field := range statusFields {
		params[field] = nil
	}

	resp, err := c.call("AgentStatus", params)
	if err != nil {
		return AgentStatus{}, err
	}

	var fields map[string]interface{}
	if err := resp.GetObject(&fields); err != nil {
		return AgentStatus{}, oops.Errorf("control client: decode status result: %w", err)
	}
	return statusFromFields(fields), nil
}

// statusFromFields rebuilds an AgentStatus from the response field map.
// Numbers arrive as float64 after JSON decoding.
func statusFromFields(fields map[string]interface{}) AgentStatus {
	var status AgentStatus

	if v, ok := fields["otbr.agent.role"].(string); ok {
		status.Role = v
	}
	if v, ok := fields["otbr.agent.attached"].(bool); ok {
		status.Attached = v
	}
	if v, ok := fields["otbr.agent.network.name"].(string); ok {
		status.NetworkName = v
	}
	if v, ok := fields["otbr.agent.network.xpanid"].(string); ok {
		status.ExtPanID = v
	}
	if v, ok := fields["otbr.agent.thread.version"].(float64); ok {
		status.ThreadVersion = uint16(v)
	}
	if v, ok := fields["otbr.agent.uptime"].(float64); ok {
		status.Uptime = int64(v)
	}
	if v, ok := fields["otbr.agent.radio.url"].(string); ok {
		status.RadioURL = v
	}
	if v, ok := fields["otbr.agent.running"].(bool); ok {
		status.Running = v
	}
	return status
}

// RequestReset asks the agent to tear down and re-initialize its stack.
func (c *Client) RequestReset() error {
	_, err := c.call("AgentReset", map[string]interface{}{"Reset": nil})
	return err
}
