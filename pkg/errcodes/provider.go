package errcodes

import "net/http"

// Provider errors carry an HTTP-like status class so callers can distinguish
// a misconfigured client (500), a timed-out upstream (504), and a broken
// upstream response (502). The enrichment pipeline treats all of them as
// per-record failures except ProviderConfig, which fails the whole job.

func ProviderConfig(msg string) error {
	return &Error{
		http.StatusInternalServerError,
		msg,
		"provider_config",
	}
}

func ProviderTimeout(provider string) error {
	return &Error{
		http.StatusGatewayTimeout,
		provider + " request timed out.",
		"provider_timeout",
	}
}

func ProviderUnavailable(provider string) error {
	return &Error{
		http.StatusBadGateway,
		provider + " request failed.",
		"provider_unavailable",
	}
}

func ProviderMalformed(msg string) error {
	return &Error{
		http.StatusBadGateway,
		msg,
		"provider_malformed_response",
	}
}
