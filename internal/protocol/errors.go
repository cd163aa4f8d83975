package protocol

const (
	// Transport/request validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Operation rejections.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrForgeBusy     = "E_FORGE_BUSY"
	ErrSlotEmpty     = "E_SLOT_EMPTY"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrNoFunds       = "E_NO_FUNDS"
	ErrNoMana        = "E_NO_MANA"
	ErrLevelLow      = "E_LEVEL_LOW"
	ErrLocked        = "E_LOCKED"
	ErrSlotsFull     = "E_SLOTS_FULL"
	ErrUnique        = "E_UNIQUE"
	ErrAlready       = "E_ALREADY"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrForgeBusy:       {},
	ErrSlotEmpty:       {},
	ErrNoResource:      {},
	ErrNoFunds:         {},
	ErrNoMana:          {},
	ErrLevelLow:        {},
	ErrLocked:          {},
	ErrSlotsFull:       {},
	ErrUnique:          {},
	ErrAlready:         {},
	ErrInvalidTarget:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
