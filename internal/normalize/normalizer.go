// Package normalize converts provider-specific payloads into canonical
// token events and guards the pipeline against duplicates.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"solana-token-sniper/internal/domain"
)

// Financial clamp ceilings. Values above these are treated as garbage from
// adversarial or malformed sources and capped.
const (
	MaxLiquidityUSD = 1_000_000.0
	MaxMarketCapUSD = 10_000_000.0
	MaxVolumeUSD    = 50_000.0
)

var (
	// ErrUnknownSource is returned for payloads from an unregistered source.
	ErrUnknownSource = errors.New("unknown source")

	// ErrMalformedPayload is returned when a payload cannot be decoded.
	// The event is dropped; the pipeline continues.
	ErrMalformedPayload = errors.New("malformed payload")
)

// parser maps one provider's payload to a canonical TokenEvent.
type parser func(payload []byte, receivedAt int64) (*domain.TokenEvent, error)

// Normalizer is a pure mapping from raw provider payloads to canonical
// TokenEvents. It never fabricates missing financial fields: absent values
// stay zero.
type Normalizer struct {
	parsers map[string]parser
}

// NewNormalizer creates a normalizer with the built-in provider parsers
// registered under their connector names.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		parsers: map[string]parser{
			"pumpfun-ws":      parsePumpFun,
			"dexscreener-api": parseDexScreener,
		},
	}
}

// Register adds or replaces the parser for a source name.
func (n *Normalizer) Register(source string, fn func(payload []byte, receivedAt int64) (*domain.TokenEvent, error)) {
	n.parsers[source] = fn
}

// Normalize converts one raw event. Returns ErrUnknownSource or a
// ErrMalformedPayload-wrapped error for undecodable input.
func (n *Normalizer) Normalize(ev domain.RawEvent) (*domain.TokenEvent, error) {
	fn, ok := n.parsers[ev.Source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, ev.Source)
	}

	event, err := fn(ev.Payload, ev.ReceivedAt)
	if err != nil {
		return nil, err
	}

	if !validMint(event.Mint) {
		return nil, fmt.Errorf("%w: invalid mint %q", ErrMalformedPayload, event.Mint)
	}

	event.LiquidityUSD = clamp(event.LiquidityUSD, MaxLiquidityUSD)
	event.MarketCapUSD = clamp(event.MarketCapUSD, MaxMarketCapUSD)
	event.VolumeUSD = clamp(event.VolumeUSD, MaxVolumeUSD)
	if !event.MigrationStatus.IsValid() {
		event.MigrationStatus = domain.MigrationPre
	}
	return event, nil
}

// clamp caps v at ceiling and floors negatives at zero.
func clamp(v, ceiling float64) float64 {
	if v < 0 {
		return 0
	}
	if v > ceiling {
		return ceiling
	}
	return v
}

// validMint checks the id decodes as a 32-byte base58 address.
func validMint(mint string) bool {
	decoded, err := base58.Decode(mint)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// pumpFunPayload is the pump.fun new-token notification shape.
type pumpFunPayload struct {
	Mint                  string  `json:"mint"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	Description           string  `json:"description"`
	Image                 string  `json:"image"`
	URI                   string  `json:"uri"`
	Creator               string  `json:"creator"`
	TraderPublicKey       string  `json:"traderPublicKey"`
	Timestamp             int64   `json:"timestamp"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
	MarketCapSol          float64 `json:"marketCapSol"`
	SolPriceUSD           float64 `json:"solPrice"`
	InitialBuySol         float64 `json:"initialBuy"`
	Twitter               string  `json:"twitter"`
	Telegram              string  `json:"telegram"`
	Website               string  `json:"website"`
	Pool                  string  `json:"pool"`
	Complete              bool    `json:"complete"`
}

// parsePumpFun maps a pump.fun notification. SOL-denominated figures are
// converted to USD only when the payload carries a SOL price; otherwise the
// USD fields stay zero rather than being estimated.
func parsePumpFun(payload []byte, receivedAt int64) (*domain.TokenEvent, error) {
	var p pumpFunPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: pumpfun: %v", ErrMalformedPayload, err)
	}
	if p.Mint == "" {
		return nil, fmt.Errorf("%w: pumpfun: missing mint", ErrMalformedPayload)
	}

	creator := p.Creator
	if creator == "" {
		creator = p.TraderPublicKey
	}

	createdAt := p.Timestamp
	if createdAt == 0 {
		createdAt = receivedAt
	} else if createdAt < 1e12 {
		createdAt *= 1000 // seconds to ms
	}

	var liquidityUSD, marketCapUSD float64
	if p.SolPriceUSD > 0 {
		liquidityUSD = p.VSolInBondingCurve * p.SolPriceUSD
		marketCapUSD = p.MarketCapSol * p.SolPriceUSD
	}

	status := domain.MigrationPre
	if p.Complete {
		status = domain.MigrationMigrated
	}

	dex := p.Pool
	if dex == "" {
		dex = "pumpfun"
	}

	return &domain.TokenEvent{
		Mint:            p.Mint,
		Name:            p.Name,
		Symbol:          p.Symbol,
		Description:     p.Description,
		ImageURL:        p.Image,
		Creator:         creator,
		CreatedAt:       createdAt,
		LiquidityUSD:    liquidityUSD,
		MarketCapUSD:    marketCapUSD,
		Supply:          p.VTokensInBondingCurve,
		Dex:             dex,
		MigrationStatus: status,
		MetadataURI:     p.URI,
		SocialLinks:     inlineSocials(p.Twitter, p.Telegram, p.Website),
	}, nil
}

// dexScreenerPayload is one item of a DexScreener latest-pairs response.
type dexScreenerPayload struct {
	DexID     string `json:"dexId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	QuoteToken struct {
		Symbol string `json:"symbol"`
	} `json:"quoteToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	MarketCap     json.Number `json:"marketCap"`
	FDV           json.Number `json:"fdv"`
	PairCreatedAt int64       `json:"pairCreatedAt"`
	Info          struct {
		ImageURL string `json:"imageUrl"`
		Websites []struct {
			URL string `json:"url"`
		} `json:"websites"`
		Socials []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
	Labels []string `json:"labels"`
}

// parseDexScreener maps one DexScreener pair item.
func parseDexScreener(payload []byte, receivedAt int64) (*domain.TokenEvent, error) {
	var p dexScreenerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: dexscreener: %v", ErrMalformedPayload, err)
	}
	if p.BaseToken.Address == "" {
		return nil, fmt.Errorf("%w: dexscreener: missing base token address", ErrMalformedPayload)
	}

	createdAt := p.PairCreatedAt
	if createdAt == 0 {
		createdAt = receivedAt
	}

	marketCap := numberOr(p.MarketCap, 0)
	if marketCap == 0 {
		marketCap = numberOr(p.FDV, 0)
	}

	links := make([]domain.SocialLink, 0, len(p.Info.Socials)+len(p.Info.Websites))
	for _, s := range p.Info.Socials {
		if s.URL != "" {
			links = append(links, domain.SocialLink{Platform: strings.ToLower(s.Type), URL: s.URL})
		}
	}
	for _, w := range p.Info.Websites {
		if w.URL != "" {
			links = append(links, domain.SocialLink{Platform: "website", URL: w.URL})
		}
	}

	return &domain.TokenEvent{
		Mint:            p.BaseToken.Address,
		Name:            p.BaseToken.Name,
		Symbol:          p.BaseToken.Symbol,
		ImageURL:        p.Info.ImageURL,
		CreatedAt:       createdAt,
		LiquidityUSD:    p.Liquidity.USD,
		VolumeUSD:       p.Volume.H24,
		PriceChange24h:  p.PriceChange.H24,
		MarketCapUSD:    marketCap,
		Dex:             p.DexID,
		MigrationStatus: migrationFromLabels(p.Labels),
		SocialLinks:     links,
	}, nil
}

// migrationFromLabels infers status from DexScreener labels; a pair listed
// on a full AMM is considered migrated by default.
func migrationFromLabels(labels []string) domain.MigrationStatus {
	for _, l := range labels {
		switch strings.ToLower(l) {
		case "migrating":
			return domain.MigrationMigrating
		case "pre-bond", "bonding":
			return domain.MigrationPre
		}
	}
	return domain.MigrationMigrated
}

func inlineSocials(twitter, telegram, website string) []domain.SocialLink {
	var links []domain.SocialLink
	if twitter != "" {
		links = append(links, domain.SocialLink{Platform: "twitter", URL: twitter})
	}
	if telegram != "" {
		links = append(links, domain.SocialLink{Platform: "telegram", URL: telegram})
	}
	if website != "" {
		links = append(links, domain.SocialLink{Platform: "website", URL: website})
	}
	return links
}

func numberOr(n json.Number, fallback float64) float64 {
	if n == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fallback
	}
	return v
}
