// Package bridge talks to the external host-chain bridge that executes
// staking calls, transfers and balance queries on the gateway's behalf. The
// bridge is a black box: calls are submitted here and their asynchronous
// outcomes come back through the gateway's callback RPC methods.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"lsgate/crypto"
	"lsgate/native/lstake"
)

const requestTimeout = 10 * time.Second

// Client implements lstake.Dispatcher, lstake.BankState and
// lstake.DenomTracer against a JSON-over-HTTP bridge endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a bridge client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) post(path string, payload, out interface{}) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("bridge: client not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bridge: encode request: %w", err)
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge: %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bridge: decode response: %w", err)
	}
	return nil
}

type stakeRequest struct {
	Delegator  string `json:"delegator"`
	Denom      string `json:"denom"`
	Amount     string `json:"amount"`
	CallbackID uint64 `json:"callbackId"`
	ReplyOn    string `json:"replyOn"`
}

type forwardRequest struct {
	Channel    string `json:"channel"`
	Sender     string `json:"sender"`
	Receiver   string `json:"receiver"`
	Denom      string `json:"denom"`
	Amount     string `json:"amount"`
	Deadline   int64  `json:"deadline"`
	CallbackID uint64 `json:"callbackId"`
	ReplyOn    string `json:"replyOn"`
}

type balanceRequest struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
}

type balanceResponse struct {
	Amount string `json:"amount"`
}

type sendRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type traceRequest struct {
	Hash string `json:"hash"`
}

type traceResponse struct {
	BaseDenom string `json:"baseDenom"`
	Found     bool   `json:"found"`
}

func formatReplyOn(mode lstake.ReplyOn) string {
	if mode == lstake.ReplyAlways {
		return "always"
	}
	return "on_success"
}

func formatAddr(addr [20]byte) string {
	return crypto.NewAddress(crypto.LSGPrefix, addr[:]).String()
}

// DispatchStake submits the liquid-staking call to the bridge.
func (c *Client) DispatchStake(msg lstake.StakeMsg) error {
	req := stakeRequest{
		Delegator:  formatAddr(msg.Delegator),
		Denom:      msg.Denom,
		Amount:     msg.Amount.String(),
		CallbackID: msg.CallbackID,
		ReplyOn:    formatReplyOn(msg.ReplyOn),
	}
	return c.post("/v1/stake", req, nil)
}

// DispatchForward submits the second-hop transfer to the bridge.
func (c *Client) DispatchForward(msg lstake.ForwardMsg) error {
	req := forwardRequest{
		Channel:    msg.Channel,
		Sender:     formatAddr(msg.Sender),
		Receiver:   formatAddr(msg.Receiver),
		Denom:      msg.Denom,
		Amount:     msg.Amount.String(),
		Deadline:   msg.Deadline,
		CallbackID: msg.CallbackID,
		ReplyOn:    formatReplyOn(msg.ReplyOn),
	}
	return c.post("/v1/forward", req, nil)
}

// Balance queries the bridge for an account's balance of denom.
func (c *Client) Balance(addr [20]byte, denom string) (*big.Int, error) {
	var resp balanceResponse
	if err := c.post("/v1/balance", balanceRequest{Address: formatAddr(addr), Denom: denom}, &resp); err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(resp.Amount), 10)
	if !ok {
		return nil, fmt.Errorf("bridge: invalid balance amount %q", resp.Amount)
	}
	return amount, nil
}

// Send asks the bridge to execute an immediate payment. Fire and forget from
// the engine's point of view; a bridge-side failure surfaces synchronously.
func (c *Client) Send(from, to [20]byte, denom string, amount *big.Int) error {
	req := sendRequest{
		From:   formatAddr(from),
		To:     formatAddr(to),
		Denom:  denom,
		Amount: amount.String(),
	}
	return c.post("/v1/send", req, nil)
}

// DenomTrace resolves the base denom of a network-qualified asset identifier.
func (c *Client) DenomTrace(ibcDenom string) (string, bool, error) {
	var resp traceResponse
	if err := c.post("/v1/denom_trace", traceRequest{Hash: ibcDenom}, &resp); err != nil {
		return "", false, err
	}
	if !resp.Found {
		return "", false, nil
	}
	return resp.BaseDenom, true, nil
}
