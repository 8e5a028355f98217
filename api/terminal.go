// Package api
// Author: momentics <momentics@gmail.com>
//
// Terminal-error classification: closed, nxdomain, econnrefused, and
// fatal_error forbid any further reconnection attempt. Classification
// accepts raw reason strings, error values whose text is the reason, and a
// map with a "reason" key, covering the three shapes a caller might hand
// the bridge.

package api

var terminalReasons = map[string]bool{
	ReasonClosed:      true,
	ReasonNXDomain:    true,
	ReasonConnRefused: true,
	ReasonFatalError:  true,
}

// IsTerminalReason reports whether a raw reason string is one of the four
// terminal sub-kinds.
func IsTerminalReason(reason string) bool {
	return terminalReasons[reason]
}

// ClassifyError reports whether err's full Error() text is a terminal
// reason. Wrapped errors are not unwrapped; maps go through ClassifyMap.
func ClassifyError(err error) bool {
	if err == nil {
		return false
	}
	return IsTerminalReason(err.Error())
}

// ClassifyMap inspects a map with a "reason" key, covering callers that
// hand the bridge a raw decoded payload instead of a Go error.
func ClassifyMap(m map[string]any) bool {
	reason, ok := m["reason"].(string)
	if !ok {
		return false
	}
	return IsTerminalReason(reason)
}
