package mountain

import "time"

// EventType enumerates every state transition the engine records. The set
// is closed; switch statements over it are expected to be exhaustive.
type EventType string

const (
	EventSignalIdentified       EventType = "SIGNAL_IDENTIFIED"
	EventSignalReset            EventType = "SIGNAL_RESET"
	EventSignalCleared          EventType = "SIGNAL_CLEARED"
	EventEntryTriggered         EventType = "ENTRY_TRIGGERED"
	EventEntrySkippedReentry    EventType = "ENTRY_SKIPPED_REENTRY"
	EventExitIndexStop          EventType = "EXIT_INDEX_STOP"
	EventExitIndexTarget        EventType = "EXIT_INDEX_TARGET"
	EventExitMarketClose        EventType = "EXIT_MARKET_CLOSE"
	EventNewDayReset            EventType = "NEW_DAY_RESET"
	EventMarketCloseSignalClear EventType = "MARKET_CLOSE_SIGNAL_CLEAR"
)

// Event is one entry of the append-only audit trail. Every transition that
// changes the live signal or the active trade records exactly one event.
type Event struct {
	TS          time.Time          `json:"ts"`
	CandleIndex int                `json:"candle_index"`
	Type        EventType          `json:"type"`
	Message     string             `json:"message"`
	Details     map[string]float64 `json:"details,omitempty"`
}

func exitEventType(reason ExitReason) EventType {
	switch reason {
	case ExitIndexStop:
		return EventExitIndexStop
	case ExitIndexTarget:
		return EventExitIndexTarget
	case ExitMarketClose:
		return EventExitMarketClose
	}
	panic("mountain: unknown exit reason " + string(reason))
}
