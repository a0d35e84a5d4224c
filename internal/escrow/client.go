// Package escrow предоставляет клиент для внешней эскроу-системы площадки.
package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/escrowadmin-system/internal/dispute"
	"github.com/mmeshcher/escrowadmin-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с эскроу-системой.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ResolveResult описывает ответ эскроу-системы на решение по спору.
type ResolveResult struct {
	Message            string                  `json:"message"`
	TransactionID      string                  `json:"transactionId"`
	Decision           dispute.Decision        `json:"decision"`
	Status             model.TransactionStatus `json:"status"`
	BuyerRefundAmount  *float64                `json:"buyerRefundAmount,omitempty"`
	SellerPayoutAmount *float64                `json:"sellerPayoutAmount,omitempty"`
	ResolvedAt         time.Time               `json:"resolvedAt"`
}

// TransactionState описывает текущий статус сделки в эскроу-системе.
type TransactionState struct {
	TransactionID string                  `json:"transactionId"`
	Status        model.TransactionStatus `json:"status"`
}

// NewClient создаёт HTTP-клиент для обращения к эскроу-системе по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) url(path string) string {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base + path
}

// ResolveDispute отправляет решение оператора по спорной сделке.
// Любой не-2xx ответ считается ошибкой; повторные попытки не выполняются.
func (c *Client) ResolveDispute(ctx context.Context, transactionID string, resolution *dispute.Resolution) (*ResolveResult, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("escrow client not configured")
	}

	body, err := json.Marshal(resolution)
	if err != nil {
		return nil, fmt.Errorf("marshal resolution: %w", err)
	}

	url := c.url(fmt.Sprintf("/api/transactions/%s/resolve", transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result ResolveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// GetTransactionState запрашивает статус сделки для фоновой синхронизации.
// При ответе 429 возвращает паузу из заголовка Retry-After.
func (c *Client) GetTransactionState(ctx context.Context, transactionID string) (*TransactionState, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("escrow client not configured")
	}

	url := c.url(fmt.Sprintf("/api/transactions/%s/status", transactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var state TransactionState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return &state, resp.StatusCode, 0, nil
}
