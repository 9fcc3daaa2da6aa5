// Package bot defines the surface the chat-platform client must present to
// the SBLP core: snowflake resolution, readiness, and the event hook used
// for observability. The core never talks to a chat platform directly.
package bot

// Guild is a resolved guild object.
type Guild interface {
	ID() uint64
	Name() string
	// Member resolves a user within this guild. The second return is false
	// when the member is unknown or cannot be enumerated.
	Member(userID uint64) (Member, bool)
}

// Channel is a resolved channel object.
type Channel interface {
	ID() uint64
	Name() string
}

// User is a resolved platform-wide user object.
type User interface {
	ID() uint64
	Name() string
}

// Member is a user scoped to a guild.
type Member interface {
	User
	GuildID() uint64
}

// Provider upgrades raw snowflakes into live objects. Lookups that miss
// return false; they never error.
type Provider interface {
	Guild(id uint64) (Guild, bool)
	Channel(id uint64) (Channel, bool)
	User(id uint64) (User, bool)
	// MembersIntent reports whether the provider's capability set permits
	// enumerating guild members at all. When false, member resolution is
	// permanently blocked regardless of the specific guild or user.
	MembersIntent() bool
}

// EventSink receives observability events. Dispatch must not block; the
// core fires events and moves on.
type EventSink interface {
	Dispatch(event string, args ...any)
}

// Events fired by the core. Names match the ones the original protocol
// clients listen for.
const (
	EventRequestStart    = "sblp_request_start"
	EventRequestFinished = "sblp_request_finished"
	EventRequestFailed   = "sblp_request_failed"
	EventRequestDone     = "sblp_request_done"
	EventAuthRejected    = "sblp_auth_rejected"
)

// Bot is the full collaborator surface the orchestrator needs.
type Bot interface {
	Provider
	EventSink
	// Ready reports whether the backing client has completed startup.
	Ready() bool
	// Username is the bot's display identity, used in response messages
	// and the outbound User-Agent.
	Username() string
}
