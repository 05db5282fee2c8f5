package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/wallet"
)

const (
	wsolMint        = "So11111111111111111111111111111111111111112"
	lamportsPerSOL  = 1_000_000_000
	routedTimeout   = 15 * time.Second
	maxResponseSize = 1 << 20
)

// RoutedExecutor obtains a best-route quote from an aggregator, requests
// the corresponding unsigned swap transaction with a priority fee attached,
// has the external signer sign it, and submits it to a low-latency relay.
type RoutedExecutor struct {
	quoteURL string // aggregator quote base, e.g. https://quote-api.jup.ag/v6
	swapURL  string // aggregator swap base, usually the quote base
	relayURL string // JSON-RPC broadcast endpoint
	signer   wallet.Signer
	client   *http.Client
}

// NewRoutedExecutor creates the routed provider. An empty swapURL falls
// back to the quote base; most aggregators serve both from one host.
func NewRoutedExecutor(quoteURL, swapURL, relayURL string, signer wallet.Signer) (*RoutedExecutor, error) {
	quoteURL = strings.TrimRight(strings.TrimSpace(quoteURL), "/")
	swapURL = strings.TrimRight(strings.TrimSpace(swapURL), "/")
	relayURL = strings.TrimSpace(relayURL)
	if quoteURL == "" || relayURL == "" {
		return nil, fmt.Errorf("routed executor: %w", ErrMissingCredential)
	}
	if swapURL == "" {
		swapURL = quoteURL
	}
	if signer == nil {
		return nil, fmt.Errorf("routed executor: nil signer")
	}
	return &RoutedExecutor{
		quoteURL: quoteURL,
		swapURL:  swapURL,
		relayURL: relayURL,
		signer:   signer,
		client:   &http.Client{Timeout: routedTimeout},
	}, nil
}

// quoteResponse is the aggregator's best-route quote. Passed back verbatim
// when requesting the swap transaction.
type quoteResponse struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	SlippageBps    int             `json:"slippageBps"`
	PriceImpactPct string          `json:"priceImpactPct"`
	RoutePlan      json.RawMessage `json:"routePlan"`
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExecuteTransaction runs the quote → build → sign → relay chain. Any step
// failing surfaces its error verbatim; no retry.
func (e *RoutedExecutor) ExecuteTransaction(ctx context.Context, params TradeParams) (*domain.TransactionResult, error) {
	start := time.Now()
	result := &domain.TransactionResult{
		Mint:      params.Mint,
		WalletID:  params.Wallet.ID,
		Provider:  ProviderRouted,
		AmountSOL: params.AmountSOL,
		Timestamp: start.UnixMilli(),
	}

	fail := func(err error) (*domain.TransactionResult, error) {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result, err
	}

	quoteRaw, err := e.fetchQuote(ctx, params)
	if err != nil {
		return fail(fmt.Errorf("quote: %w", err))
	}

	unsignedTx, err := e.buildSwapTransaction(ctx, quoteRaw, params)
	if err != nil {
		return fail(fmt.Errorf("build transaction: %w", err))
	}

	signedTx, err := e.signer.SignTransaction(ctx, params.Wallet.ID, unsignedTx)
	if err != nil {
		return fail(fmt.Errorf("sign transaction: %w", err))
	}

	signature, err := e.submit(ctx, signedTx)
	if err != nil {
		return fail(fmt.Errorf("submit: %w", err))
	}

	result.Success = true
	result.Signature = signature
	result.Latency = time.Since(start)
	return result, nil
}

// fetchQuote asks the aggregator for the best route. Buys swap SOL into the
// mint; sells swap the mint back into SOL.
func (e *RoutedExecutor) fetchQuote(ctx context.Context, params TradeParams) (json.RawMessage, error) {
	inputMint, outputMint := wsolMint, params.Mint
	if params.Action == ActionSell {
		inputMint, outputMint = params.Mint, wsolMint
	}
	lamports := uint64(math.Round(params.AmountSOL * lamportsPerSOL))

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", fmt.Sprintf("%d", lamports))
	q.Set("slippageBps", fmt.Sprintf("%d", params.SlippageBps))

	body, err := e.get(ctx, e.quoteURL+"/quote?"+q.Encode())
	if err != nil {
		return nil, err
	}

	// Validate the quote decodes before passing it through.
	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if quote.OutAmount == "" {
		return nil, fmt.Errorf("quote missing outAmount")
	}
	return body, nil
}

// buildSwapTransaction requests the unsigned transaction for the quote with
// the priority fee attached.
func (e *RoutedExecutor) buildSwapTransaction(ctx context.Context, quoteRaw json.RawMessage, params TradeParams) (string, error) {
	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:             quoteRaw,
		UserPublicKey:             params.Wallet.PublicKey,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: params.MaxGas,
	})
	if err != nil {
		return "", err
	}

	body, err := e.post(ctx, e.swapURL+"/swap", reqBody)
	if err != nil {
		return "", err
	}

	var out swapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if out.SwapTransaction == "" {
		return "", fmt.Errorf("swap response missing transaction")
	}
	return out.SwapTransaction, nil
}

// submit broadcasts the signed transaction through the relay and returns
// the signature, or the relay's RPC error verbatim.
func (e *RoutedExecutor) submit(ctx context.Context, signedTxBase64 string) (string, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendTransaction",
		Params: []interface{}{
			signedTxBase64,
			map[string]interface{}{"encoding": "base64", "skipPreflight": true},
		},
	})
	if err != nil {
		return "", err
	}

	body, err := e.post(ctx, e.relayURL, reqBody)
	if err != nil {
		return "", err
	}

	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("relay error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result == "" {
		return "", fmt.Errorf("relay response missing signature")
	}
	return out.Result, nil
}

func (e *RoutedExecutor) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	return e.do(req)
}

func (e *RoutedExecutor) post(ctx context.Context, u string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *RoutedExecutor) do(req *http.Request) ([]byte, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// Verify interface compliance at compile time.
var _ TradeExecutor = (*RoutedExecutor)(nil)
