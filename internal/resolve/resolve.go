// Package resolve maps raw bump request identifiers into validated domain
// objects. Resolution is a pure mapping over provider state: a lookup that
// misses falls back to the raw snowflake, never to an error.
package resolve

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bumpkit/sblp/internal/bot"
	"github.com/bumpkit/sblp/internal/model"
)

// ErrMalformed marks a request whose identifier fields are not decimal
// 64-bit integers.
var ErrMalformed = errors.New("malformed request")

// Snowflakes are the three parsed identifiers of a bump request.
type Snowflakes struct {
	Guild   uint64
	Channel uint64
	User    uint64
}

// ParseIDs validates and parses the identifier fields. All failures wrap
// ErrMalformed and name the offending field.
func ParseIDs(raw model.BumpRequest) (Snowflakes, error) {
	guild, err := parseSnowflake("guild", raw.Guild)
	if err != nil {
		return Snowflakes{}, err
	}
	channel, err := parseSnowflake("channel", raw.Channel)
	if err != nil {
		return Snowflakes{}, err
	}
	user, err := parseSnowflake("user", raw.User)
	if err != nil {
		return Snowflakes{}, err
	}
	return Snowflakes{Guild: guild, Channel: channel, User: user}, nil
}

func parseSnowflake(field, value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a snowflake", ErrMalformed, field, value)
	}
	return id, nil
}

// GuildRef is a guild that either upgraded to a live object or stayed a raw
// snowflake.
type GuildRef struct {
	ID    uint64
	Guild bot.Guild
}

func (r GuildRef) Resolved() bool { return r.Guild != nil }

// ChannelRef is a channel that either upgraded or stayed a raw snowflake.
type ChannelRef struct {
	ID      uint64
	Channel bot.Channel
}

func (r ChannelRef) Resolved() bool { return r.Channel != nil }

// UserRef is a user that either upgraded or stayed a raw snowflake.
type UserRef struct {
	ID   uint64
	User bot.User
}

func (r UserRef) Resolved() bool { return r.User != nil }

// ResolvedRequest is one bump request after identifier upgrade. It is built
// once per request and discarded after dispatch.
type ResolvedRequest struct {
	Type    string
	Guild   GuildRef
	Channel ChannelRef
	User    UserRef
	// Member is the user within the guild, nil when unresolvable. It is
	// only attempted when the guild itself upgraded to a live object.
	Member bot.Member
	// IntentBlocked is true when the provider's capability set cannot
	// legally enumerate members, independent of whether this particular
	// member exists.
	IntentBlocked bool
}

// Valid reports whether the request resolved fully: guild, channel and user
// all upgraded, and the member either resolved or is known to be blocked by
// a missing capability. There is no settable valid field; this is always
// recomputed.
func (r *ResolvedRequest) Valid() bool {
	return r.Guild.Resolved() && r.Channel.Resolved() && r.User.Resolved() &&
		(r.Member != nil || r.IntentBlocked)
}

// Fallback returns the most specific resolved object in the documented
// order: guild, then channel, then member (or user when no member). The
// second return is false when nothing resolved. This replaces the implicit
// catch-all attribute dispatch of older clients; use it as a last resort,
// not as the primary accessor.
func (r *ResolvedRequest) Fallback() (any, bool) {
	if r.Guild.Resolved() {
		return r.Guild.Guild, true
	}
	if r.Channel.Resolved() {
		return r.Channel.Channel, true
	}
	if r.Member != nil {
		return r.Member, true
	}
	if r.User.Resolved() {
		return r.User.User, true
	}
	return nil, false
}

// Resolve parses the raw request and, when a provider is supplied, upgrades
// each snowflake to a live object. The only possible error is ErrMalformed
// from identifier parsing; lookups themselves never fail the request.
func Resolve(raw model.BumpRequest, provider bot.Provider) (*ResolvedRequest, error) {
	ids, err := ParseIDs(raw)
	if err != nil {
		return nil, err
	}
	return Upgrade(ids, provider), nil
}

// Upgrade builds a ResolvedRequest from already-parsed snowflakes.
func Upgrade(ids Snowflakes, provider bot.Provider) *ResolvedRequest {
	req := &ResolvedRequest{
		Type:    model.TypeRequest,
		Guild:   GuildRef{ID: ids.Guild},
		Channel: ChannelRef{ID: ids.Channel},
		User:    UserRef{ID: ids.User},
	}
	if provider == nil {
		return req
	}

	if g, ok := provider.Guild(ids.Guild); ok {
		req.Guild.Guild = g
	}
	if c, ok := provider.Channel(ids.Channel); ok {
		req.Channel.Channel = c
	}
	if u, ok := provider.User(ids.User); ok {
		req.User.User = u
	}
	req.IntentBlocked = !provider.MembersIntent()

	if req.Guild.Resolved() {
		if m, ok := req.Guild.Guild.Member(ids.User); ok {
			req.Member = m
		}
	}
	return req
}
