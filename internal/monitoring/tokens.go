package monitoring

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/wiretap-labs/wiretap/internal/config"
)

// TokenEstimator estimates the token count of a request body for log
// summaries. It lazily initializes a tiktoken encoding; when that fails
// (e.g. no network to fetch the BPE files) it falls back to a chars/4
// heuristic so logging never blocks a relay.
type TokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenEstimator creates an estimator. Encoder setup is deferred to
// the first Estimate call.
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{}
}

// Estimate returns the approximate token count of body.
func (te *TokenEstimator) Estimate(body []byte) int {
	te.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("o200k_base"); err == nil {
			te.enc = enc
		}
	})
	if te.enc == nil {
		return len(body) / config.TokenEstimateRatio
	}
	return len(te.enc.Encode(string(body), nil, nil))
}
