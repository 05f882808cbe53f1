package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coin-ledger-go/internal/ledger"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// tradeBody accepts {"quantity": "1.5"} as well as {"quantity": 1.5}, and "all" as a bool or "true".
type tradeBody struct {
	Quantity rawNumber `json:"quantity"`
	All      flexBool  `json:"all"`
}

// rawNumber keeps the quantity exactly as sent so no float parsing happens on the way in.
type rawNumber string

func (n *rawNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = rawNumber(s)
		return nil
	}
	*n = rawNumber(data)
	return nil
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		parsed, err := strconv.ParseBool(t)
		*b = flexBool(err == nil && parsed)
	default:
		*b = false
	}
	return nil
}

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{ledger.ErrInvalidQuantityFormat, "InvalidQuantityFormat", http.StatusBadRequest},
	{ledger.ErrPrecisionExceeded, "PrecisionExceeded", http.StatusBadRequest},
	{ledger.ErrUnsupportedAsset, "UnsupportedAsset", http.StatusBadRequest},
	{ledger.ErrInsufficientBalance, "InsufficientBalance", http.StatusBadRequest},
	{ledger.ErrQuoteUnavailable, "QuoteUnavailable", http.StatusServiceUnavailable},
	{ledger.ErrMutationConflict, "MutationConflict", http.StatusConflict},
	{ledger.ErrAccountExists, "AccountExists", http.StatusConflict},
	{ledger.ErrAccountNotFound, "AccountNotFound", http.StatusNotFound},
	{ledger.ErrProvisioningFailed, "ProvisioningFailed", http.StatusInternalServerError},
}

// writeError maps ledger error kinds onto status codes. Anything unknown is a 500
// and its details stay in the log.
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			if k.status >= http.StatusInternalServerError {
				s.logger.Error("Request failed", zap.String("kind", k.kind), zap.Error(err))
			}
			if k.err == ledger.ErrMutationConflict {
				w.Header().Set("Retry-After", "1")
			}
			s.writeJSON(w, k.status, errorResponse{Error: err.Error(), Kind: k.kind})
			return
		}
	}
	s.logger.Error("Request failed", zap.Error(err))
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
