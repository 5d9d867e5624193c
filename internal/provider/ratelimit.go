package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// rateLimitedProvider waits on a token bucket before every generation
type rateLimitedProvider struct {
	LLMProvider
	limiter *rate.Limiter
}

// RateLimited wraps p so that Generate calls are spread to at most
// requestsPerSecond, allowing bursts of burst. A non-positive rate returns p.
func RateLimited(p LLMProvider, requestsPerSecond float64, burst int) LLMProvider {
	if requestsPerSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedProvider{
		LLMProvider: p,
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (r *rateLimitedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.LLMProvider.Generate(ctx, prompt)
}
