package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"lsgate/crypto"
	"lsgate/native/lstake"
)

type liquidStakeParams struct {
	Sender          string `json:"sender"`
	Receiver        string `json:"receiver"`
	TransferChannel string `json:"transferChannel,omitempty"`
	Recovery        string `json:"recovery,omitempty"`
	Amount          string `json:"amount"`
	Denom           string `json:"denom"`
}

type claimParams struct {
	Caller string `json:"caller"`
}

type updateConfigParams struct {
	Caller          string  `json:"caller"`
	Active          *bool   `json:"active,omitempty"`
	LSPrefix        *string `json:"lsPrefix,omitempty"`
	ICATimeout      *uint64 `json:"icaTimeout,omitempty"`
	TransferTimeout *uint64 `json:"transferTimeout,omitempty"`
	CallbackPolicy  *string `json:"callbackPolicy,omitempty"`
	PayoutMode      *string `json:"payoutMode,omitempty"`
}

type callbackParams struct {
	ID    uint64 `json:"id"`
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type pendingResult struct {
	Sender          string `json:"sender"`
	Receiver        string `json:"receiver"`
	TransferChannel string `json:"transferChannel,omitempty"`
	IBCDenom        string `json:"ibcDenom"`
	LSDenom         string `json:"lsDenom"`
	BalanceBefore   string `json:"balanceBefore"`
	BalanceChange   string `json:"balanceChange"`
	RecoveryAccount string `json:"recoveryAccount,omitempty"`
	Status          string `json:"status"`
}

type configResult struct {
	Active          bool   `json:"active"`
	LSPrefix        string `json:"lsPrefix"`
	Admin           string `json:"admin"`
	ICATimeout      uint64 `json:"icaTimeout"`
	TransferTimeout uint64 `json:"transferTimeout"`
	CallbackPolicy  string `json:"callbackPolicy"`
	PayoutMode      string `json:"payoutMode"`
}

type claimResult struct {
	Claimed string `json:"claimed"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(field, value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, fmt.Errorf("%s is required", field)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, fmt.Errorf("invalid %s: %v", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func formatBech32(addr [20]byte) string {
	return crypto.NewAddress(crypto.LSGPrefix, addr[:]).String()
}

func formatPending(p *lstake.PendingStake) *pendingResult {
	if p == nil {
		return nil
	}
	out := &pendingResult{
		Sender:          formatBech32(p.Sender),
		Receiver:        formatBech32(p.Receiver),
		TransferChannel: p.TransferChannel,
		IBCDenom:        p.IBCDenom,
		LSDenom:         p.LSDenom,
		BalanceBefore:   p.BalanceBefore.String(),
		BalanceChange:   p.BalanceChange.String(),
		Status:          p.Status.String(),
	}
	if p.RecoveryAccount != nil {
		out.RecoveryAccount = formatBech32(*p.RecoveryAccount)
	}
	return out
}

func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, lstake.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, lstake.ErrNotActive),
		errors.Is(err, lstake.ErrNoFunds),
		errors.Is(err, lstake.ErrTooManyFunds),
		errors.Is(err, lstake.ErrInvalidAmount),
		errors.Is(err, lstake.ErrInvalidDenom),
		errors.Is(err, lstake.ErrStakePending),
		errors.Is(err, lstake.ErrNoClaimableTokens):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handleLiquidStake(w http.ResponseWriter, req *RPCRequest) {
	var params liquidStakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	sender, err := parseAddress("sender", params.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receiver, err := parseAddress("receiver", params.Receiver)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	var recovery *[20]byte
	if strings.TrimSpace(params.Recovery) != "" {
		addr, err := parseAddress("recovery", params.Recovery)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		recovery = &addr
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	denom := strings.TrimSpace(params.Denom)
	if denom == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "denom is required", nil)
		return
	}
	record, err := s.node.LiquidStake(sender, receiver, strings.TrimSpace(params.TransferChannel), recovery, []lstake.Coin{{Denom: denom, Amount: amount}})
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatPending(record))
}

func (s *Server) handleClaim(w http.ResponseWriter, req *RPCRequest) {
	var params claimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.node.Claim(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, claimResult{Claimed: amount.String()})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, req *RPCRequest) {
	var params updateConfigParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	update := lstake.ConfigUpdate{
		Active:   params.Active,
		LSPrefix: params.LSPrefix,
	}
	if params.ICATimeout != nil || params.TransferTimeout != nil {
		current, err := s.node.Config()
		if err != nil {
			writeEngineError(w, req.ID, err)
			return
		}
		timeouts := current.Timeouts
		if params.ICATimeout != nil {
			timeouts.ICATimeout = *params.ICATimeout
		}
		if params.TransferTimeout != nil {
			timeouts.TransferTimeout = *params.TransferTimeout
		}
		update.Timeouts = &timeouts
	}
	if params.CallbackPolicy != nil {
		policy, err := parseCallbackPolicy(*params.CallbackPolicy)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		update.CallbackPolicy = &policy
	}
	if params.PayoutMode != nil {
		mode, err := parsePayoutMode(*params.PayoutMode)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		update.PayoutMode = &mode
	}
	cfg, err := s.node.UpdateConfig(caller, update)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatConfig(cfg))
}

func parseCallbackPolicy(raw string) (lstake.ForwardCallbackPolicy, error) {
	switch strings.TrimSpace(raw) {
	case "always":
		return lstake.CallbackAlways, nil
	case "on_success":
		return lstake.CallbackOnSuccess, nil
	default:
		return 0, fmt.Errorf("invalid callbackPolicy %q", raw)
	}
}

func parsePayoutMode(raw string) (lstake.PayoutMode, error) {
	switch strings.TrimSpace(raw) {
	case "push":
		return lstake.PayoutPush, nil
	case "claim":
		return lstake.PayoutClaim, nil
	default:
		return 0, fmt.Errorf("invalid payoutMode %q", raw)
	}
}

func formatConfig(cfg lstake.Config) configResult {
	return configResult{
		Active:          cfg.Active,
		LSPrefix:        cfg.LSPrefix,
		Admin:           formatBech32(cfg.Admin),
		ICATimeout:      cfg.Timeouts.ICATimeout,
		TransferTimeout: cfg.Timeouts.TransferTimeout,
		CallbackPolicy:  cfg.CallbackPolicy.String(),
		PayoutMode:      cfg.PayoutMode.String(),
	}
}

func (s *Server) handleStakeCallback(w http.ResponseWriter, req *RPCRequest) {
	var params callbackParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	res := lstake.CallbackResult{ID: params.ID, Ok: params.Ok, Err: params.Error}
	if err := s.node.StakeCallback(res); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleForwardCallback(w http.ResponseWriter, req *RPCRequest) {
	var params callbackParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	res := lstake.CallbackResult{ID: params.ID, Ok: params.Ok, Err: params.Error}
	if err := s.node.ForwardCallback(res); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, req *RPCRequest) {
	cfg, err := s.node.Config()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatConfig(cfg))
}

func (s *Server) handleGetPending(w http.ResponseWriter, req *RPCRequest) {
	record, ok, err := s.node.Pending()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, formatPending(record))
}
