// Package wallet validates wallet references and defines the signing
// boundary. Raw keys never enter the core: signing is delegated to an
// external service through the Signer interface.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"solana-token-sniper/internal/domain"
)

var (
	// ErrInvalidAddress is returned for keys that do not decode to a
	// 32-byte on-curve ed25519 point.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrUnknownWallet is returned when a wallet id cannot be resolved.
	ErrUnknownWallet = errors.New("unknown wallet")
)

// Signer resolves wallet refs and signs serialized transactions on demand.
// Implemented by the external signing service; the core only passes opaque
// base64 transactions through it.
type Signer interface {
	// Resolve maps a wallet id to its current ref.
	Resolve(ctx context.Context, walletID string) (domain.WalletRef, error)

	// SignTransaction signs a base64-serialized transaction for a wallet
	// and returns the signed transaction, base64-encoded.
	SignTransaction(ctx context.Context, walletID, txBase64 string) (string, error)
}

// ValidateAddress checks the address is a 32-byte base58 string decoding to
// a point on the ed25519 curve. Wallet addresses, unlike PDAs, are always
// on-curve.
func ValidateAddress(address string) error {
	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidAddress, len(decoded))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return fmt.Errorf("%w: not on curve", ErrInvalidAddress)
	}
	return nil
}

// ValidateRef validates a wallet reference.
func ValidateRef(ref domain.WalletRef) error {
	if ref.ID == "" {
		return fmt.Errorf("%w: empty id", ErrUnknownWallet)
	}
	return ValidateAddress(ref.PublicKey)
}
