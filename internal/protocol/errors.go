package protocol

const (
	// Transport/command validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrInternal      = "E_INTERNAL"

	// Sim diagnostics surfaced in audit entries.
	ErrOverflowDropped = "E_OVERFLOW_DROPPED"
	ErrDanglingRef     = "E_DANGLING_REF"
	ErrNoPath          = "E_NO_PATH"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrNoResource:      {},
	ErrInternal:        {},
	ErrOverflowDropped: {},
	ErrDanglingRef:     {},
	ErrNoPath:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
