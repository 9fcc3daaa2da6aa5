package bot

import "sync"

// Memory is an in-process Bot used by tests and the standalone daemon. It
// resolves only objects registered on it and records every dispatched event.
type Memory struct {
	mu            sync.RWMutex
	name          string
	ready         bool
	membersIntent bool
	guilds        map[uint64]*MemoryGuild
	channels      map[uint64]*MemoryChannel
	users         map[uint64]*MemoryUser
	events        []Event
}

// Event is one recorded Dispatch call.
type Event struct {
	Name string
	Args []any
}

func NewMemory(name string) *Memory {
	return &Memory{
		name:          name,
		membersIntent: true,
		guilds:        make(map[uint64]*MemoryGuild),
		channels:      make(map[uint64]*MemoryChannel),
		users:         make(map[uint64]*MemoryUser),
	}
}

func (m *Memory) Username() string { return m.name }

func (m *Memory) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *Memory) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

func (m *Memory) MembersIntent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membersIntent
}

func (m *Memory) SetMembersIntent(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.membersIntent = on
}

func (m *Memory) Guild(id uint64) (Guild, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.guilds[id]
	if !ok {
		return nil, false
	}
	return g, true
}

func (m *Memory) Channel(id uint64) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.channels[id]
	if !ok {
		return nil, false
	}
	return c, true
}

func (m *Memory) User(id uint64) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, false
	}
	return u, true
}

func (m *Memory) Dispatch(event string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{Name: event, Args: args})
}

// Events returns a copy of all recorded events.
func (m *Memory) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventNames returns the recorded event names in dispatch order.
func (m *Memory) EventNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.events))
	for i, e := range m.events {
		names[i] = e.Name
	}
	return names
}

// AddGuild registers a guild and returns it for member setup.
func (m *Memory) AddGuild(id uint64, name string) *MemoryGuild {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &MemoryGuild{id: id, name: name, bot: m, members: make(map[uint64]*MemoryMember)}
	m.guilds[id] = g
	return g
}

func (m *Memory) AddChannel(id uint64, name string) *MemoryChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &MemoryChannel{id: id, name: name}
	m.channels[id] = c
	return c
}

func (m *Memory) AddUser(id uint64, name string) *MemoryUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &MemoryUser{id: id, name: name}
	m.users[id] = u
	return u
}

type MemoryGuild struct {
	id      uint64
	name    string
	bot     *Memory
	members map[uint64]*MemoryMember
}

func (g *MemoryGuild) ID() uint64   { return g.id }
func (g *MemoryGuild) Name() string { return g.name }

func (g *MemoryGuild) Member(userID uint64) (Member, bool) {
	g.bot.mu.RLock()
	defer g.bot.mu.RUnlock()
	if !g.bot.membersIntent {
		return nil, false
	}
	mem, ok := g.members[userID]
	if !ok {
		return nil, false
	}
	return mem, true
}

// AddMember registers a member of this guild, creating the platform user if
// needed.
func (g *MemoryGuild) AddMember(userID uint64, name string) *MemoryMember {
	g.bot.mu.Lock()
	defer g.bot.mu.Unlock()
	if _, ok := g.bot.users[userID]; !ok {
		g.bot.users[userID] = &MemoryUser{id: userID, name: name}
	}
	mem := &MemoryMember{id: userID, name: name, guildID: g.id}
	g.members[userID] = mem
	return mem
}

type MemoryChannel struct {
	id   uint64
	name string
}

func (c *MemoryChannel) ID() uint64   { return c.id }
func (c *MemoryChannel) Name() string { return c.name }

type MemoryUser struct {
	id   uint64
	name string
}

func (u *MemoryUser) ID() uint64   { return u.id }
func (u *MemoryUser) Name() string { return u.name }

type MemoryMember struct {
	id      uint64
	name    string
	guildID uint64
}

func (m *MemoryMember) ID() uint64      { return m.id }
func (m *MemoryMember) Name() string    { return m.name }
func (m *MemoryMember) GuildID() uint64 { return m.guildID }
