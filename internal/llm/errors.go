package llm

import "purgekit/internal/core"

// classifyError maps a raw transport error onto the closed failure kind
// taxonomy. The anthropic-sdk-go client surfaces typed *anthropic.Error
// values with an HTTP status code; classification is keyed on that
// status code.
func classifyError(statusCode int, err error) core.ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return core.KindLLMAuth
	case statusCode == 429:
		return core.KindLLMRateLimited
	case statusCode == 408:
		return core.KindLLMTimeout
	case statusCode >= 500:
		return core.KindLLMConnection
	case statusCode == 402:
		return core.KindLLMQuotaExceeded
	case statusCode == 0:
		// no HTTP response at all: dial/connect failure or a client-side timeout
		return core.KindLLMConnection
	default:
		return core.KindUnknown
	}
}
