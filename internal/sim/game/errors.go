package game

import "corruptioncrypts.gg/internal/protocol"

// RuleError is a caller-visible precondition failure. Every rule error
// aborts the whole turn; there is no partial application.
type RuleError struct {
	Code string
	Msg  string
}

func (e *RuleError) Error() string {
	if e.Msg == "" {
		return e.Code
	}
	return e.Code + ": " + e.Msg
}

func ruleErr(code, msg string) *RuleError {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	return &RuleError{Code: code, Msg: msg}
}

// errCode extracts the wire code from an engine error.
func errCode(err error) string {
	if re, ok := err.(*RuleError); ok {
		return re.Code
	}
	return protocol.ErrInternal
}
