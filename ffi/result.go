package ffi

// MatchResult is the decoded form of an IsMatch code.
type MatchResult uint8

const (
	ResultNoMatch MatchResult = iota
	ResultMatch
	ResultEngineError
)

func (r MatchResult) String() string {
	switch r {
	case ResultNoMatch:
		return "no-match"
	case ResultMatch:
		return "match"
	}
	return "engine-error"
}

// DecodeMatch maps a raw IsMatch code to a MatchResult. Codes other than
// 0 and 1 are engine errors.
func DecodeMatch(code int32) MatchResult {
	switch code {
	case CodeMatch:
		return ResultMatch
	case CodeNoMatch:
		return ResultNoMatch
	}
	return ResultEngineError
}
