package places

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrQuota matches every QuotaError via errors.Is.
var ErrQuota = errors.New("provider quota exhausted")

type QuotaKind string

const (
	// QuotaBudget needs an operator (billing, daily quota) before work can continue.
	QuotaBudget QuotaKind = "budget"
	// QuotaRateLimit clears on its own after a short wait.
	QuotaRateLimit QuotaKind = "rate_limit"
)

type QuotaError struct {
	Kind QuotaKind
	Err  error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

func (e *QuotaError) Is(target error) bool { return target == ErrQuota }

// APIError is a non-success answer from the provider.
type APIError struct {
	Op         string
	StatusCode int    // HTTP status, 0 when the failure is carried in the body
	Status     string // provider status, e.g. RESOURCE_EXHAUSTED or OVER_QUERY_LIMIT
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("places ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Status != "" {
		b.WriteString(": ")
		b.WriteString(e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

var (
	budgetFirstKeywords = []string{"per day", "daily limit", "billing"}
	rateLimitKeywords   = []string{"rate limit", "rate_limit", "ratelimit", "too many requests", "429", "per minute", "per second"}
	budgetKeywords      = []string{"quota", "resource exhausted", "resource_exhausted", "over_query_limit", "over query limit"}
)

// Classify reports whether err is a quota or rate-limit condition and which
// kind. Typed errors are checked first; anything else falls back to keyword
// matching so that errors which lost their type along the way still pause
// the job instead of failing an item.
func Classify(err error) (QuotaKind, bool) {
	if err == nil {
		return "", false
	}

	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe.Kind, true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		if kind, ok := classifyText(err.Error()); ok && kind == QuotaBudget {
			return kind, true
		}
		return QuotaRateLimit, true
	}

	return classifyText(err.Error())
}

func classifyText(msg string) (QuotaKind, bool) {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, budgetFirstKeywords):
		return QuotaBudget, true
	case containsAny(msg, rateLimitKeywords):
		return QuotaRateLimit, true
	case containsAny(msg, budgetKeywords):
		return QuotaBudget, true
	}
	return "", false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// asQuota wraps err in a QuotaError when it carries a quota signal.
func asQuota(err error) error {
	if kind, ok := Classify(err); ok {
		return &QuotaError{Kind: kind, Err: err}
	}
	return err
}
