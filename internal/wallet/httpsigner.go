package wallet

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

const signerTimeout = 10 * time.Second

// HTTPSigner is a client for an external signing service. The service holds
// the private keys; this process only ever sees public keys and signed
// transactions.
type HTTPSigner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSigner creates a signing-service client.
func NewHTTPSigner(baseURL string) (*HTTPSigner, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("signer: empty base URL")
	}
	return &HTTPSigner{
		baseURL: baseURL,
		client:  &http.Client{Timeout: signerTimeout},
	}, nil
}

var _ Signer = (*HTTPSigner)(nil)

type walletResponse struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
	Label     string `json:"label"`
}

// Resolve fetches the wallet ref for an id.
func (s *HTTPSigner) Resolve(ctx context.Context, walletID string) (domain.WalletRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/wallets/"+walletID, nil)
	if err != nil {
		return domain.WalletRef{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.WalletRef{}, fmt.Errorf("signer: resolve %s: %w", walletID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.WalletRef{}, fmt.Errorf("%w: %s", ErrUnknownWallet, walletID)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.WalletRef{}, fmt.Errorf("signer: resolve %s: status %d", walletID, resp.StatusCode)
	}

	var w walletResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&w); err != nil {
		return domain.WalletRef{}, fmt.Errorf("signer: decode wallet: %w", err)
	}
	return domain.WalletRef{ID: w.ID, PublicKey: w.PublicKey, Label: w.Label}, nil
}

type signRequest struct {
	WalletID    string `json:"walletId"`
	Transaction string `json:"transaction"` // base64-serialized
}

type signResponse struct {
	SignedTransaction string `json:"signedTransaction"`
	Error             string `json:"error,omitempty"`
}

// SignTransaction submits a base64 transaction for signing.
func (s *HTTPSigner) SignTransaction(ctx context.Context, walletID, txBase64 string) (string, error) {
	body, err := json.Marshal(signRequest{WalletID: walletID, Transaction: txBase64})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("signer: sign for %s: %w", walletID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signer: sign for %s: status %d", walletID, resp.StatusCode)
	}

	var sr signResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&sr); err != nil {
		return "", fmt.Errorf("signer: decode response: %w", err)
	}
	if sr.Error != "" {
		return "", fmt.Errorf("signer: %s", sr.Error)
	}
	if sr.SignedTransaction == "" {
		return "", fmt.Errorf("signer: empty signed transaction")
	}
	return sr.SignedTransaction, nil
}
