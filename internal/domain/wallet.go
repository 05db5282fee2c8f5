package domain

// WalletRef identifies a trading wallet by id and public key.
// Signing capability lives outside the core; see wallet.Signer.
type WalletRef struct {
	ID        string
	PublicKey string // base58-encoded ed25519 public key
	Label     string
}
