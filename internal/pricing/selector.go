package pricing

import (
	"errors"

	"mentorship-platform/internal/calls"
)

var (
	ErrRateNotFound    = errors.New("rate not found")
	ErrInvalidQuoteReq = errors.New("invalid quote request")
)

// PackageState is the slice of a package the selector needs.
type PackageState struct {
	ID                string
	RemainingSessions int
}

// Input is everything the selector decides on. RatePerMinuteMinor is only
// consulted when HasRate is set and the chosen policy uses a rate.
type Input struct {
	CallType        calls.Type
	DurationMinutes int
	Package         *PackageState

	// PriorDebits counts the caller's earlier successful debits of any call type.
	PriorDebits int

	RatePerMinuteMinor int64
	HasRate            bool
}

// Quote is the selector's answer.
type Quote struct {
	AmountMinor        int64           `json:"amount_minor"`
	Policy             Policy          `json:"policy"`
	Mutation           PackageMutation `json:"mutation"`
	RatePerMinuteMinor int64           `json:"rate_per_minute_minor"`
}

// Classify picks the policy. First match wins:
// package with more than one session left, last package session,
// first chat ever, then regular.
func Classify(callType calls.Type, pkg *PackageState, priorDebits int) (Policy, error) {
	if !callType.OneToOne() {
		return 0, ErrInvalidQuoteReq
	}
	if pkg != nil {
		switch {
		case pkg.RemainingSessions > 1:
			return PolicyPackageFree, nil
		case pkg.RemainingSessions == 1:
			return PolicyPackageLast, nil
		default:
			return 0, ErrInvalidQuoteReq
		}
	}
	if callType == calls.TypeChat && priorDebits == 0 {
		return PolicyFirstTimeChat, nil
	}
	return PolicyRegular, nil
}

// Select is a pure function from Input to Quote.
func Select(in Input) (Quote, error) {
	if in.DurationMinutes <= 0 {
		return Quote{}, ErrInvalidQuoteReq
	}
	policy, err := Classify(in.CallType, in.Package, in.PriorDebits)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{Policy: policy}
	switch policy {
	case PolicyPackageFree:
		q.Mutation = MutationDecrement
	case PolicyPackageLast:
		if !in.HasRate {
			return Quote{}, ErrRateNotFound
		}
		q.Mutation = MutationDecrementAndExpire
		q.RatePerMinuteMinor = in.RatePerMinuteMinor
		q.AmountMinor = in.RatePerMinuteMinor * int64(in.DurationMinutes)
	case PolicyFirstTimeChat:
		q.AmountMinor = FirstChatPriceMinor
	case PolicyRegular:
		if !in.HasRate {
			return Quote{}, ErrRateNotFound
		}
		q.RatePerMinuteMinor = in.RatePerMinuteMinor
		q.AmountMinor = in.RatePerMinuteMinor * int64(in.DurationMinutes)
	default:
		return Quote{}, ErrInvalidQuoteReq
	}
	return q, nil
}
