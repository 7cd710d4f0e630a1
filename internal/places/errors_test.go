package places_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/places"
)

var _ = Describe("Classify", func() {
	DescribeTable("detects quota conditions",
		func(err error, kind places.QuotaKind, ok bool) {
			gotKind, gotOK := places.Classify(err)
			Expect(gotOK).To(Equal(ok))
			Expect(gotKind).To(Equal(kind))
		},
		Entry("nil", nil, places.QuotaKind(""), false),
		Entry("plain error", errors.New("connection reset by peer"), places.QuotaKind(""), false),
		Entry("typed quota error", &places.QuotaError{Kind: places.QuotaBudget, Err: errors.New("x")}, places.QuotaBudget, true),
		Entry("wrapped typed quota error", fmt.Errorf("discover: %w", &places.QuotaError{Kind: places.QuotaRateLimit, Err: errors.New("x")}), places.QuotaRateLimit, true),
		Entry("http 429", &places.APIError{Op: "details", StatusCode: 429}, places.QuotaRateLimit, true),
		Entry("http 429 daily quota", &places.APIError{Op: "details", StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded for quota metric 'Requests per day'"}, places.QuotaBudget, true),
		Entry("geocode over query limit", &places.APIError{Op: "geocode", Status: "OVER_QUERY_LIMIT"}, places.QuotaBudget, true),
		Entry("keyword quota", errors.New("quota exceeded for this project"), places.QuotaBudget, true),
		Entry("keyword resource exhausted", errors.New("RESOURCE EXHAUSTED"), places.QuotaBudget, true),
		Entry("keyword billing", errors.New("You must enable Billing on the Google Cloud Project"), places.QuotaBudget, true),
		Entry("keyword rate limit", errors.New("Rate limit reached, slow down"), places.QuotaRateLimit, true),
		Entry("keyword 429", errors.New("upstream answered 429"), places.QuotaRateLimit, true),
		Entry("keyword too many requests", errors.New("Too Many Requests"), places.QuotaRateLimit, true),
		Entry("non quota api error", &places.APIError{Op: "geocode", Status: "INVALID_REQUEST"}, places.QuotaKind(""), false),
	)

	It("makes every QuotaError match ErrQuota", func() {
		err := fmt.Errorf("tick: %w", &places.QuotaError{Kind: places.QuotaBudget, Err: errors.New("x")})
		Expect(errors.Is(err, places.ErrQuota)).To(BeTrue())
	})
})

var _ = Describe("PriceTier", func() {
	DescribeTable("maps price levels",
		func(level string, expected *int) {
			Expect(places.PriceTier(level)).To(Equal(expected))
		},
		Entry("free", "PRICE_LEVEL_FREE", ptr(0)),
		Entry("inexpensive", "PRICE_LEVEL_INEXPENSIVE", ptr(1)),
		Entry("moderate", "PRICE_LEVEL_MODERATE", ptr(2)),
		Entry("expensive", "PRICE_LEVEL_EXPENSIVE", ptr(3)),
		Entry("very expensive", "PRICE_LEVEL_VERY_EXPENSIVE", ptr(4)),
		Entry("unspecified", "PRICE_LEVEL_UNSPECIFIED", nil),
		Entry("absent", "", nil),
	)
})

func ptr[T any](v T) *T { return &v }
