package debate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/agents"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/coze"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/relevance"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/store"
)

// debateMessage hits six Art Critic keywords and three Art Historian
// keywords, none of General Audience's. The resulting base scores (0.9, 0.6,
// 0.3) are far enough apart that the ±0.1 perturbation can never reorder
// them, so the expected speaking order holds for any seed.
const debateMessage = "请评价批评一下风格，评论鉴赏其美学，结合历史年代时期"

var debateTitles = []string{"General Audience", "Art Critic", "Art Historian"}
var wantOrder = []string{"Art Critic", "Art Historian", "General Audience"}

// fakeClient is a scripted Conversationalist. failFor substitutes an error
// for the named bots; every successful turn returns the shared conversation
// handle the way the remote platform does.
type fakeClient struct {
	mu      sync.Mutex
	calls   []coze.SendParams
	failFor map[string]error
	cancel  context.CancelFunc // when set, fired on the second call
}

func (f *fakeClient) SendMessage(ctx context.Context, p coze.SendParams) (*coze.TurnResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	n := len(f.calls)
	f.mu.Unlock()

	if f.cancel != nil && n == 2 {
		f.cancel()
		return nil, ctx.Err()
	}
	if err := f.failFor[p.BotID]; err != nil {
		return nil, err
	}
	return &coze.TurnResult{
		ChatID:         fmt.Sprintf("chat-%d", n),
		ConversationID: "conv-shared",
		Reply:          fmt.Sprintf("回复-%s", p.BotID),
	}, nil
}

func newTestOrchestrator(t *testing.T, client Conversationalist) (*Orchestrator, store.Repository) {
	t.Helper()
	catalog := agents.Default()
	scorer := relevance.NewScorer(catalog, rand.New(rand.NewSource(1)))
	repo := store.NewMemory()
	o := New(catalog, scorer, client, repo, 5)
	o.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return o, repo
}

func collect(seq func(func(Event) bool)) []Event {
	var out []Event
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

func TestRunEventSequence(t *testing.T) {
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)

	events := collect(o.Run(context.Background(), RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	}))
	if len(events) != 5 {
		t.Fatalf("got %d events, want order + 3 responses + complete", len(events))
	}

	order, ok := events[0].(OrderEvent)
	if !ok {
		t.Fatalf("first event is %T, want OrderEvent", events[0])
	}
	if fmt.Sprint(order.OrderedAgents) != fmt.Sprint(wantOrder) {
		t.Errorf("speaking order = %v, want %v", order.OrderedAgents, wantOrder)
	}
	if len(order.Similarities) != 3 {
		t.Errorf("similarities = %v", order.Similarities)
	}

	for i := 0; i < 3; i++ {
		resp, ok := events[i+1].(ResponseEvent)
		if !ok {
			t.Fatalf("event %d is %T, want ResponseEvent", i+1, events[i+1])
		}
		if resp.AgentTitle != wantOrder[i] || resp.Index != i {
			t.Errorf("response %d: agent=%q index=%d", i, resp.AgentTitle, resp.Index)
		}
		if resp.IsComplete != (i == 2) {
			t.Errorf("response %d: isComplete=%v", i, resp.IsComplete)
		}
		if resp.IsError || resp.Response == "" {
			t.Errorf("response %d unexpectedly empty or errored: %+v", i, resp)
		}
	}

	complete, ok := events[4].(CompleteEvent)
	if !ok {
		t.Fatalf("last event is %T, want CompleteEvent", events[4])
	}
	if len(complete.Responses) != 3 || complete.ConversationID != "conv-shared" {
		t.Errorf("complete aggregate = %+v", complete)
	}
}

func TestRunContextInjection(t *testing.T) {
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)

	collect(o.Run(context.Background(), RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	}))
	if len(client.calls) != 3 {
		t.Fatalf("got %d remote calls, want 3", len(client.calls))
	}

	// First speaker gets the raw user message.
	if client.calls[0].Message != debateMessage {
		t.Errorf("first prompt = %q, want the raw message", client.calls[0].Message)
	}

	// Later speakers get the injection prompt carrying the prior replies.
	second := client.calls[1].Message
	if !strings.Contains(second, fmt.Sprintf("用户说: %q", debateMessage)) {
		t.Errorf("second prompt lacks the quoted user message: %q", second)
	}
	if !strings.Contains(second, "其他专家的评论:") {
		t.Errorf("second prompt lacks the prior-comments header: %q", second)
	}
	firstReply := fmt.Sprintf("回复-%s", client.calls[0].BotID)
	if !strings.Contains(second, fmt.Sprintf("%s: %q", wantOrder[0], firstReply)) {
		t.Errorf("second prompt lacks the first speaker's reply: %q", second)
	}
	if !strings.Contains(second, fmt.Sprintf("请你作为%s", wantOrder[1])) {
		t.Errorf("second prompt addresses the wrong persona: %q", second)
	}

	third := client.calls[2].Message
	if !strings.Contains(third, firstReply) ||
		!strings.Contains(third, fmt.Sprintf("回复-%s", client.calls[1].BotID)) {
		t.Errorf("third prompt should carry both prior replies: %q", third)
	}
}

func TestRunPartialFailure(t *testing.T) {
	catalog := agents.Default()
	historian, _ := catalog.Lookup("Art Historian") // ranked second
	client := &fakeClient{failFor: map[string]error{
		historian.BotID: errors.New("bot unavailable"),
	}}
	o, _ := newTestOrchestrator(t, client)

	events := collect(o.Run(context.Background(), RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	}))
	if len(events) != 5 {
		t.Fatalf("failed agent stopped the loop: %d events", len(events))
	}

	failed := events[2].(ResponseEvent)
	if !failed.IsError {
		t.Error("failed agent's event not flagged as error")
	}
	if !strings.HasPrefix(failed.Response, "[错误: ") || !strings.Contains(failed.Response, "bot unavailable") {
		t.Errorf("error marker = %q", failed.Response)
	}

	// The error marker is fed into the next speaker's context like a reply.
	if !strings.Contains(client.calls[2].Message, failed.Response) {
		t.Errorf("third prompt should carry the error marker: %q", client.calls[2].Message)
	}

	complete := events[4].(CompleteEvent)
	if complete.Responses["Art Historian"] != failed.Response {
		t.Errorf("aggregate lost the error marker: %+v", complete.Responses)
	}
	if complete.Responses["General Audience"] == "" {
		t.Error("agent after the failure did not run")
	}
}

func TestRunSharedConversationPropagates(t *testing.T) {
	client := &fakeClient{}
	o, repo := newTestOrchestrator(t, client)

	collect(o.Run(context.Background(), RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	}))

	if client.calls[0].ConversationID != "" {
		t.Errorf("first turn should start a fresh conversation, got %q", client.calls[0].ConversationID)
	}
	for i := 1; i < len(client.calls); i++ {
		if client.calls[i].ConversationID != "conv-shared" {
			t.Errorf("call %d conversation = %q, want the shared handle", i, client.calls[i].ConversationID)
		}
	}

	sess, ok, err := repo.LookupDebateSession(context.Background(), "s1")
	if err != nil || !ok {
		t.Fatalf("session not saved: ok=%v err=%v", ok, err)
	}
	if sess.ConversationID != "conv-shared" || len(sess.AgentLastChats) != 3 {
		t.Errorf("saved session = %+v", sess)
	}
	if len(sess.ChatHistory) != 1 || sess.ChatHistory[0].Timestamp != 1700000000000 {
		t.Errorf("history entry = %+v", sess.ChatHistory)
	}
}

func TestRunResetStartsFreshConversation(t *testing.T) {
	client := &fakeClient{}
	o, repo := newTestOrchestrator(t, client)
	ctx := context.Background()

	sess, err := repo.DebateSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	sess.ConversationID = "conv-old"
	sess.AgentLastChats["Art Critic"] = "chat-old"
	if err := repo.SaveDebateSession(ctx, "s1", sess); err != nil {
		t.Fatal(err)
	}

	collect(o.Run(ctx, RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
		Reset:       true,
	}))

	if client.calls[0].ConversationID != "" {
		t.Errorf("reset turn reused the old conversation %q", client.calls[0].ConversationID)
	}
	// Without reset the existing handle is reused.
	client.calls = nil
	collect(o.Run(ctx, RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	}))
	if client.calls[0].ConversationID != "conv-shared" {
		t.Errorf("follow-up turn conversation = %q, want conv-shared", client.calls[0].ConversationID)
	}
}

func TestRunCancellationStopsWithoutTerminalEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{cancel: cancel}
	o, repo := newTestOrchestrator(t, client)

	events := collect(o.Run(ctx, RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	}))

	// Order plus the first agent's response; the cancelled second turn emits
	// nothing and no terminal event follows.
	if len(events) != 2 {
		t.Fatalf("got %d events after cancellation, want 2", len(events))
	}
	if _, ok := events[1].(ResponseEvent); !ok {
		t.Fatalf("second event is %T, want ResponseEvent", events[1])
	}
	if len(client.calls) != 2 {
		t.Errorf("remote calls = %d, want no call after cancellation", len(client.calls))
	}

	// Progress from the completed agent still survives the disconnect.
	sess, ok, err := repo.LookupDebateSession(context.Background(), "s1")
	if err != nil || !ok {
		t.Fatalf("session not saved: ok=%v err=%v", ok, err)
	}
	if sess.ConversationID != "conv-shared" {
		t.Errorf("first agent's conversation handle lost: %+v", sess)
	}
}

func TestRunBatch(t *testing.T) {
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)

	result, err := o.RunBatch(context.Background(), RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	})
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if fmt.Sprint(result.OrderedAgents) != fmt.Sprint(wantOrder) {
		t.Errorf("ordered agents = %v", result.OrderedAgents)
	}
	if len(result.Responses) != 3 || result.ConversationID != "conv-shared" {
		t.Errorf("batch result = %+v", result)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{cancel: cancel}
	o, _ := newTestOrchestrator(t, client)

	_, err := o.RunBatch(ctx, RunRequest{
		Message:     debateMessage,
		AgentTitles: debateTitles,
		SessionID:   "s1",
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunDialogue(t *testing.T) {
	catalog := agents.Default()
	painter, _ := catalog.Lookup("Painter")
	client := &fakeClient{failFor: map[string]error{
		painter.BotID: errors.New("bot offline"),
	}}
	o, repo := newTestOrchestrator(t, client)

	titles := []string{"Art Critic", "Painter", "VTS"}
	replies, err := o.RunDialogue(context.Background(), RunRequest{
		Message:     "这幅画用了什么技法？",
		AgentTitles: titles,
		SessionID:   "s1",
	}, 5)
	if err != nil {
		t.Fatalf("RunDialogue failed: %v", err)
	}
	if len(replies) != 3 {
		t.Fatalf("got %d replies, want 3", len(replies))
	}
	for i, r := range replies {
		if r.AgentTitle != titles[i] {
			t.Errorf("reply %d for %q, want request order %q", i, r.AgentTitle, titles[i])
		}
	}
	if !replies[1].IsError || !strings.HasPrefix(replies[1].Response, "[错误: ") {
		t.Errorf("failed agent reply = %+v", replies[1])
	}
	if replies[0].IsError || replies[2].IsError {
		t.Error("independent agents affected by another agent's failure")
	}

	// Dialogue agents keep separate conversations in the chat session.
	sess, ok, err := repo.LookupSession(context.Background(), "s1")
	if err != nil || !ok {
		t.Fatalf("chat session not saved: ok=%v err=%v", ok, err)
	}
	if sess.AgentConversations["Art Critic"] == nil || sess.AgentConversations["VTS"] == nil {
		t.Fatalf("per-agent conversations missing: %+v", sess.AgentConversations)
	}
	if sess.AgentConversations["Art Critic"].ConversationID == "" {
		t.Error("successful agent's conversation handle not recorded")
	}
	if len(sess.ChatHistory) != 2 {
		t.Errorf("chat history has %d entries, want one per successful agent", len(sess.ChatHistory))
	}
}

func TestRunDialogueValidatesAgents(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})

	if _, err := o.RunDialogue(context.Background(), RunRequest{
		Message:     "hi",
		AgentTitles: []string{"Ghost"},
		SessionID:   "s1",
	}, 5); err == nil {
		t.Error("unknown agent accepted")
	}
	if _, err := o.RunDialogue(context.Background(), RunRequest{
		Message:   "hi",
		SessionID: "s1",
	}, 5); err == nil {
		t.Error("empty agent set accepted")
	}
}
