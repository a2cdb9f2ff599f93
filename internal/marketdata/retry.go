package marketdata

import "time"

// RetryPolicy is applied uniformly to provider calls by the tiered
// source rather than sprinkled per call site.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries once after a short pause; the secondary
// provider is the real fallback, not aggressive retrying.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Backoff: 500 * time.Millisecond}
}

// Do runs fn up to MaxAttempts times, sleeping Backoff between attempts,
// and returns the last error.
func (r RetryPolicy) Do(fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && r.Backoff > 0 {
			time.Sleep(r.Backoff)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}
