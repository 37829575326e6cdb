package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spotbroker/internal/common"
)

// Bank moves money between accounts.
type Bank interface {
	Transfer(ctx context.Context, from, to int64, amount float64) error
}

type TransferRequest struct {
	From   int64   `json:"from"`
	To     int64   `json:"to"`
	Amount float64 `json:"amount"`
}

type transferResponse struct {
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message,omitempty"`
	TransactionUUID string `json:"transaction_uuid,omitempty"`
}

// BankError is a transfer the bank answered but refused.
type BankError struct {
	Status       string
	ErrorMessage string
}

func (e *BankError) Error() string {
	if e.ErrorMessage == "" {
		return "bank refused transfer: " + e.Status
	}
	return fmt.Sprintf("bank refused transfer: %s: %s", e.Status, e.ErrorMessage)
}

func (e *BankError) Unwrap() error {
	return common.ErrChargeDenied
}

// BankClient talks to the central bank's HTTP API.
type BankClient struct {
	baseURL string
	client  *http.Client
}

// NewBankClient accepts either "host:port" or a full base URL.
func NewBankClient(addr string, timeout time.Duration) *BankClient {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &BankClient{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *BankClient) Transfer(ctx context.Context, from, to int64, amount float64) error {
	body, err := json.Marshal(TransferRequest{From: from, To: to, Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/transfer", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create transfer request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("central bank unreachable: %v: %w", err, common.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read transfer response: %w", err)
	}

	var out transferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("central bank returned status %d: %w", resp.StatusCode, common.ErrServiceUnavailable)
		}
		return fmt.Errorf("invalid transfer response (status %d): %w", resp.StatusCode, err)
	}
	if out.Status != "ok" {
		return &BankError{Status: out.Status, ErrorMessage: out.ErrorMessage}
	}
	return nil
}
