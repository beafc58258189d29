package memory

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/sidekick/internal/engine"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sidekick.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetConversation(t *testing.T) {
	s := testStore(t)

	conv, err := s.CreateConversation("alice", "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.Title != DefaultTitle {
		t.Errorf("title: got %q, want %q", conv.Title, DefaultTitle)
	}
	if conv.ThreadID != ThreadID("alice", conv.ID) {
		t.Errorf("thread id: got %q", conv.ThreadID)
	}
	if conv.MessageCount != 0 {
		t.Errorf("message count: got %d, want 0", conv.MessageCount)
	}

	got, err := s.GetConversation(conv.ID, "alice")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.ID != conv.ID || got.Title != conv.Title || got.ThreadID != conv.ThreadID {
		t.Errorf("round trip mismatch: %+v vs %+v", got, conv)
	}
}

func TestGetConversation_ScopedToUser(t *testing.T) {
	s := testStore(t)

	conv, err := s.CreateConversation("alice", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetConversation(conv.ID, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's lookup: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetConversation("no-such-id", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id lookup: got %v, want ErrNotFound", err)
	}
}

func TestListConversations_NewestFirst(t *testing.T) {
	s := testStore(t)

	first, _ := s.CreateConversation("alice", "first")
	second, _ := s.CreateConversation("alice", "second")
	if _, err := s.CreateConversation("bob", "other user"); err != nil {
		t.Fatal(err)
	}

	// Touching the older conversation bumps it to the front.
	if err := s.RecordMessage(first.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListConversations("alice")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list length: got %d, want 2", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("order: got [%s %s], want [%s %s]", list[0].ID, list[1].ID, first.ID, second.ID)
	}
	if list[0].MessageCount != 1 {
		t.Errorf("message count after RecordMessage: got %d, want 1", list[0].MessageCount)
	}
}

func TestCreateConversation_Limit(t *testing.T) {
	s := testStore(t)

	for i := 0; i < MaxConversationsPerUser; i++ {
		if _, err := s.CreateConversation("alice", fmt.Sprintf("conv %d", i)); err != nil {
			t.Fatalf("CreateConversation %d: %v", i, err)
		}
	}

	if _, err := s.CreateConversation("alice", "over the cap"); !errors.Is(err, ErrConversationLimit) {
		t.Fatalf("at cap: got %v, want ErrConversationLimit", err)
	}

	// Other users are unaffected.
	if _, err := s.CreateConversation("bob", ""); err != nil {
		t.Fatalf("other user blocked by alice's cap: %v", err)
	}
}

func TestAutoTitle_OneWay(t *testing.T) {
	s := testStore(t)

	conv, _ := s.CreateConversation("alice", "")

	applied, err := s.AutoTitle(conv.ID, "alice", "explain quantum computing in simple terms")
	if err != nil {
		t.Fatalf("AutoTitle: %v", err)
	}
	if !applied {
		t.Fatal("expected title to be applied")
	}

	got, _ := s.GetConversation(conv.ID, "alice")
	if got.Title != "Explain quantum computing in simple terms" {
		t.Fatalf("title: got %q", got.Title)
	}

	// A second message never replaces the title.
	applied, err = s.AutoTitle(conv.ID, "alice", "now explain string theory")
	if err != nil {
		t.Fatalf("AutoTitle second call: %v", err)
	}
	if applied {
		t.Fatal("titling must be one-way")
	}
	got, _ = s.GetConversation(conv.ID, "alice")
	if got.Title != "Explain quantum computing in simple terms" {
		t.Fatalf("title replaced: %q", got.Title)
	}
}

func TestAutoTitle_SkipsEmptyMessage(t *testing.T) {
	s := testStore(t)

	conv, _ := s.CreateConversation("alice", "")
	applied, err := s.AutoTitle(conv.ID, "alice", "   \n ")
	if err != nil {
		t.Fatalf("AutoTitle: %v", err)
	}
	if applied {
		t.Fatal("empty message must not title the conversation")
	}

	got, _ := s.GetConversation(conv.ID, "alice")
	if got.Title != DefaultTitle {
		t.Fatalf("title: got %q, want default", got.Title)
	}
}

func TestClearHistory(t *testing.T) {
	s := testStore(t)

	conv, _ := s.CreateConversation("alice", "")
	if _, err := s.AutoTitle(conv.ID, "alice", "explain quantum computing please and thanks"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := s.RecordMessage(conv.ID, "alice"); err != nil {
			t.Fatal(err)
		}
	}
	state := engine.NewTaskState()
	state.Messages = []*schema.Message{{Role: schema.User, Content: "hi"}}
	if err := s.SaveCheckpoint(conv.ThreadID, state); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearHistory(conv.ID, "alice"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}

	got, err := s.GetConversation(conv.ID, "alice")
	if err != nil {
		t.Fatalf("conversation row must survive a clear: %v", err)
	}
	if got.Title != DefaultTitle {
		t.Errorf("title after clear: got %q, want default", got.Title)
	}
	if got.MessageCount != 0 {
		t.Errorf("message count after clear: got %d, want 0", got.MessageCount)
	}

	if _, found, err := s.LoadLatest(conv.ThreadID); err != nil || found {
		t.Fatalf("checkpoints after clear: found=%t err=%v", found, err)
	}

	// Cleared conversations can be titled again.
	applied, err := s.AutoTitle(conv.ID, "alice", "a fresh start")
	if err != nil || !applied {
		t.Fatalf("re-title after clear: applied=%t err=%v", applied, err)
	}
}

func TestDeleteConversation(t *testing.T) {
	s := testStore(t)

	conv, _ := s.CreateConversation("alice", "doomed")
	if err := s.SaveCheckpoint(conv.ThreadID, engine.NewTaskState()); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteConversation(conv.ID, "alice"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, err := s.GetConversation(conv.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: got %v, want ErrNotFound", err)
	}
	if _, found, _ := s.LoadLatest(conv.ThreadID); found {
		t.Fatal("checkpoints must be deleted with the conversation")
	}

	if err := s.DeleteConversation(conv.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestDeleteAllUserMemory(t *testing.T) {
	s := testStore(t)

	a1, _ := s.CreateConversation("alice", "one")
	a2, _ := s.CreateConversation("alice", "two")
	b1, _ := s.CreateConversation("bob", "keep")
	for _, conv := range []*Conversation{a1, a2, b1} {
		if err := s.SaveCheckpoint(conv.ThreadID, engine.NewTaskState()); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteAllUserMemory("alice"); err != nil {
		t.Fatalf("DeleteAllUserMemory: %v", err)
	}

	if list, _ := s.ListConversations("alice"); len(list) != 0 {
		t.Fatalf("alice still has %d conversations", len(list))
	}
	if _, found, _ := s.LoadLatest(a1.ThreadID); found {
		t.Fatal("alice's checkpoints must be gone")
	}

	// Bob's data is untouched.
	if _, err := s.GetConversation(b1.ID, "bob"); err != nil {
		t.Fatalf("bob's conversation lost: %v", err)
	}
	if _, found, _ := s.LoadLatest(b1.ThreadID); !found {
		t.Fatal("bob's checkpoints lost")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := testStore(t)

	state := engine.NewTaskState()
	state.SuccessCriteria = "be concise"
	state.IterationCount = 3
	state.SuccessCriteriaMet = true
	state.Messages = []*schema.Message{
		{Role: schema.User, Content: "question"},
		{Role: schema.Assistant, Content: "answer"},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
			{ID: "tc-1", Function: schema.FunctionCall{Name: "web_search", Arguments: `{"query":"x"}`}},
		}},
	}

	if err := s.SaveCheckpoint("user_alice_c1", state); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got, found, err := s.LoadLatest("user_alice_c1")
	if err != nil || !found {
		t.Fatalf("LoadLatest: found=%t err=%v", found, err)
	}
	if got.SuccessCriteria != "be concise" || got.IterationCount != 3 || !got.SuccessCriteriaMet {
		t.Fatalf("state mismatch: %+v", got)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("messages: got %d, want 3", len(got.Messages))
	}
	if got.Messages[2].ToolCalls[0].Function.Name != "web_search" {
		t.Fatalf("tool calls lost in round trip: %+v", got.Messages[2])
	}
}

func TestLoadLatest_ReturnsNewest(t *testing.T) {
	s := testStore(t)

	for i := 1; i <= 3; i++ {
		state := engine.NewTaskState()
		state.IterationCount = i
		if err := s.SaveCheckpoint("user_alice_c1", state); err != nil {
			t.Fatal(err)
		}
	}

	got, found, err := s.LoadLatest("user_alice_c1")
	if err != nil || !found {
		t.Fatalf("LoadLatest: found=%t err=%v", found, err)
	}
	if got.IterationCount != 3 {
		t.Fatalf("iteration_count: got %d, want 3", got.IterationCount)
	}
}

func TestLoadLatest_EmptyThread(t *testing.T) {
	s := testStore(t)

	state, found, err := s.LoadLatest("user_alice_missing")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if found || state != nil {
		t.Fatalf("empty thread: found=%t state=%v", found, state)
	}
}

func TestListCheckpoints_NewestFirst(t *testing.T) {
	s := testStore(t)

	for i := 1; i <= 3; i++ {
		state := engine.NewTaskState()
		state.IterationCount = i
		if err := s.SaveCheckpoint("user_alice_c1", state); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := s.ListCheckpoints("user_alice_c1", 0)
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("snapshot count: got %d, want 3", len(snaps))
	}
	for i, want := range []int{3, 2, 1} {
		if snaps[i].State.IterationCount != want {
			t.Errorf("snaps[%d].IterationCount: got %d, want %d", i, snaps[i].State.IterationCount, want)
		}
	}
	if snaps[0].Seq <= snaps[1].Seq || snaps[1].Seq <= snaps[2].Seq {
		t.Errorf("sequence numbers not descending: %d %d %d", snaps[0].Seq, snaps[1].Seq, snaps[2].Seq)
	}

	limited, err := s.ListCheckpoints("user_alice_c1", 2)
	if err != nil {
		t.Fatalf("ListCheckpoints limited: %v", err)
	}
	if len(limited) != 2 || limited[0].State.IterationCount != 3 {
		t.Fatalf("limit must keep the newest snapshots: %+v", limited)
	}
}

func TestCleanupOrphanedCheckpoints(t *testing.T) {
	s := testStore(t)

	conv, _ := s.CreateConversation("alice", "kept")
	if err := s.SaveCheckpoint(conv.ThreadID, engine.NewTaskState()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCheckpoint("user_ghost_c1", engine.NewTaskState()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCheckpoint("user_ghost_c1", engine.NewTaskState()); err != nil {
		t.Fatal(err)
	}

	n, err := s.CleanupOrphanedCheckpoints()
	if err != nil {
		t.Fatalf("CleanupOrphanedCheckpoints: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted rows: got %d, want 2", n)
	}
	if _, found, _ := s.LoadLatest(conv.ThreadID); !found {
		t.Fatal("live thread's checkpoint was removed")
	}
}

func TestUpdateTitle_MissingConversation(t *testing.T) {
	s := testStore(t)

	if err := s.UpdateTitle("no-such-id", "alice", "title"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := s.RecordMessage("no-such-id", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
