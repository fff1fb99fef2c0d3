package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(role string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Role:   role,
		send:   make(chan Message, 16),
		logger: zap.NewNop(),
	}
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastReachesScopeMembersOnly(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	teacher := newTestClient(RoleTeacher)
	student := newTestClient(RoleStudent)
	hub.Register(teacher)
	hub.Register(student)
	hub.Join(ScopeTeacher, teacher)
	hub.Join(ScopeStudent, student)

	hub.Broadcast(ScopeTeacher, EventVoteUpdateTeacher, map[string]int{"totalVotes": 3})

	teacherMsgs := drain(teacher)
	require.Len(t, teacherMsgs, 1)
	require.Equal(t, EventVoteUpdateTeacher, teacherMsgs[0].Event)
	require.Empty(t, drain(student))

	hub.Broadcast(ScopeAll, EventTimerTick, map[string]int{"remaining": 10})
	require.Len(t, drain(teacher), 1)
	require.Len(t, drain(student), 1)
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	student := newTestClient(RoleStudent)
	hub.Register(student)

	pollScope := PollScope(uuid.New())
	hub.Join(pollScope, student)
	hub.Join(pollScope, student)
	hub.Join(pollScope, student)
	require.Equal(t, 1, hub.ScopeSize(pollScope))

	hub.Broadcast(pollScope, EventChatMessage, map[string]string{"message": "hi"})
	require.Len(t, drain(student), 1)
}

func TestUnregisterLeavesAllScopes(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	student := newTestClient(RoleStudent)
	hub.Register(student)
	hub.Join(ScopeStudent, student)
	pollScope := PollScope(uuid.New())
	hub.Join(pollScope, student)

	hub.Unregister(student)
	require.Zero(t, hub.ScopeSize(ScopeAll))
	require.Zero(t, hub.ScopeSize(ScopeStudent))
	require.Zero(t, hub.ScopeSize(pollScope))

	hub.Broadcast(ScopeAll, EventTimerTick, nil)
	require.Empty(t, drain(student))
}

func TestSendTargetsOneClient(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	a := newTestClient(RoleStudent)
	b := newTestClient(RoleStudent)
	hub.Register(a)
	hub.Register(b)

	hub.Send(a, EventError, ErrorPayload{Message: "nope"})

	msgs := drain(a)
	require.Len(t, msgs, 1)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	require.Equal(t, "nope", payload.Message)
	require.Empty(t, drain(b))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []EventType
}

func (p *recordingPublisher) PublishScopeEvent(_ string, event EventType, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func TestBroadcastPublishesForOtherInstances(t *testing.T) {
	pub := &recordingPublisher{}
	hub := NewHub(zap.NewNop(), pub, nil)
	student := newTestClient(RoleStudent)
	hub.Register(student)

	hub.Broadcast(ScopeAll, EventPollCreated, map[string]string{"question": "q"})

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Equal(t, []EventType{EventPollCreated}, pub.events)
}

func TestDisconnectSessionNotifiesAllConnections(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	first := newTestClient(RoleStudent)
	first.SessionID = "sess-1"
	second := newTestClient(RoleStudent)
	second.SessionID = "sess-1"
	other := newTestClient(RoleStudent)
	other.SessionID = "sess-2"
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	hub.DisconnectSession("sess-1")

	for _, c := range []*Client{first, second} {
		msgs := drain(c)
		require.Len(t, msgs, 1)
		require.Equal(t, EventStudentRemoved, msgs[0].Event)
	}
	require.Empty(t, drain(other))
}
