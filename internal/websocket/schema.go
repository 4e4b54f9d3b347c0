package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSave     Action = "save"
	ActionNavigate Action = "navigate"
	ActionRun      Action = "run"
	ActionSelect   Action = "select"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client action; unused fields stay empty.
type RequestPayload struct {
	Action Action `json:"action"`
	// Question index the action applies to.
	Index int `json:"index"`
	// Raw answer text: code for save/run, option value for select. On
	// navigate it carries the displayed slot's unsaved edit, flushed into
	// the buffer before the move.
	Raw    string `json:"raw,omitempty"`
	Target int    `json:"target,omitempty"`
	// HasRaw distinguishes "navigate with empty edit" from "nothing to flush".
	HasRaw bool `json:"has_raw,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved     Event = "saved"
	EventState     Event = "state"
	EventOutput    Event = "output"
	EventScored    Event = "scored"
	EventExpired   Event = "expired"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

// StateResponse is pushed after navigation: the new cursor position and the
// buffered raw value for that slot.
type StateResponse struct {
	Event            Event  `json:"event"`
	Index            int    `json:"index"`
	Raw              string `json:"raw"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// OutputResponse carries execution output, including diagnostic text from a
// failed run.
type OutputResponse struct {
	Event  Event  `json:"event"`
	Index  int    `json:"index"`
	Output string `json:"output"`
	// Stale marks a superseded run whose result was not applied.
	Stale bool `json:"stale,omitempty"`
}

type ScoredResponse struct {
	Event        Event  `json:"event"`
	Index        int    `json:"index"`
	IsCorrect    bool   `json:"is_correct"`
	PointsEarned int    `json:"points_earned"`
	Output       string `json:"output,omitempty"`
}

type ExpiredResponse struct {
	Event Event `json:"event"`
}

type SubmittedResponse struct {
	Event Event `json:"event"`
	// Auto is true when the clock expired and submitted for the learner.
	Auto             bool `json:"auto"`
	AlreadySubmitted bool `json:"already_submitted"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}
