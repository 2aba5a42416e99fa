package agent

// OutcomeKind classifies how a generation call ended. Every kind still
// carries user-presentable content; the kind exists so callers and
// operators can tell a provider outage from a loop abort.
type OutcomeKind int

const (
	// KindCompleted is a normal completion.
	KindCompleted OutcomeKind = iota

	// KindConfigMissing means the endpoint or model is not configured.
	// The content is a setup instruction, not an apology.
	KindConfigMissing

	// KindLoopAborted means the loop guard stopped a runaway tool spree.
	KindLoopAborted

	// KindTransportFailed covers network and provider errors.
	KindTransportFailed

	// KindCancelled means the call's context was cancelled mid-flight.
	KindCancelled
)

// Outcome is the result of one generation call. Content is always set;
// Reasoning may be empty; PaginationID is set when a tool opened a
// paged session during the call.
type Outcome struct {
	Kind         OutcomeKind
	Reasoning    string
	Content      string
	PaginationID string
}

// Request describes one inbound utterance.
type Request struct {
	Prompt            string
	CallerID          string
	ChannelID         string // conversation key
	GuildID           string // "" for direct messages
	ReferencedContent string // content of the message being replied to, if any
}
