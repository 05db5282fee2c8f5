package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"solana-token-sniper/internal/domain"
)

// DirectExecutor submits trades through a single-call trade API
// (PumpPortal-style): one POST carrying action, mint, amount, slippage and
// wallet, returning the transaction signature.
type DirectExecutor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDirectExecutor creates the direct provider. A missing API key returns
// ErrMissingCredential so the caller can disable this provider while
// keeping others usable.
func NewDirectExecutor(baseURL, apiKey string) (*DirectExecutor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("direct executor: %w", ErrMissingCredential)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("direct executor: empty base URL")
	}
	return &DirectExecutor{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type directRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           float64 `json:"amount"`
	DenominatedInSol bool    `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"` // percent
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool"`
	PublicKey        string  `json:"publicKey"`
}

type directResponse struct {
	Signature string   `json:"signature"`
	Errors    []string `json:"errors"`
}

// ExecuteTransaction submits the trade. Provider errors are surfaced
// verbatim in the result; no retry.
func (e *DirectExecutor) ExecuteTransaction(ctx context.Context, params TradeParams) (*domain.TransactionResult, error) {
	start := time.Now()
	result := &domain.TransactionResult{
		Mint:      params.Mint,
		WalletID:  params.Wallet.ID,
		Provider:  ProviderDirect,
		AmountSOL: params.AmountSOL,
		Timestamp: start.UnixMilli(),
	}

	fail := func(err error) (*domain.TransactionResult, error) {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result, err
	}

	body, err := json.Marshal(directRequest{
		Action:           string(params.Action),
		Mint:             params.Mint,
		Amount:           params.AmountSOL,
		DenominatedInSol: true,
		Slippage:         float64(params.SlippageBps) / 100,
		PriorityFee:      float64(params.MaxGas) / 1e9,
		Pool:             params.Pool,
		PublicKey:        params.Wallet.PublicKey,
	})
	if err != nil {
		return fail(err)
	}

	url := fmt.Sprintf("%s/trade?api-key=%s", e.baseURL, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fail(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Errorf("trade api http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var out directResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return fail(fmt.Errorf("decode trade response: %w", err))
	}
	if len(out.Errors) > 0 {
		return fail(fmt.Errorf("trade rejected: %s", strings.Join(out.Errors, "; ")))
	}
	if out.Signature == "" {
		return fail(fmt.Errorf("trade response missing signature"))
	}

	result.Success = true
	result.Signature = out.Signature
	result.Latency = time.Since(start)
	return result, nil
}

// Verify interface compliance at compile time.
var _ TradeExecutor = (*DirectExecutor)(nil)
