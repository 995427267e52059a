package chat

import (
	"strings"
	"testing"

	chatModels "coinsage/internal/domain/models/chat"
	"coinsage/internal/service/retrieval"
)

func TestBuildContext_FormatsNumberedDocuments(t *testing.T) {
	passages := []retrieval.Passage{
		{Text: "Bitcoin supply is capped."},
		{Text: "Ethereum uses proof of stake."},
	}

	got := BuildContext(passages, 1000)

	want := "Document 1:\nBitcoin supply is capped.\n\nDocument 2:\nEthereum uses proof of stake."
	if got != want {
		t.Errorf("BuildContext mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestBuildContext_HardCapMayCutMidSentence(t *testing.T) {
	passages := []retrieval.Passage{
		{Text: "The halving reduces the block reward by half every 210000 blocks."},
	}

	got := BuildContext(passages, 30)

	if len(got) > 30 {
		t.Fatalf("context is %d chars, cap is 30", len(got))
	}
	// The cut is a plain character cap with no sentence awareness.
	full := "Document 1:\nThe halving reduces the block reward by half every 210000 blocks."
	if !strings.HasPrefix(full, got) {
		t.Errorf("truncated context %q is not a prefix of the full context", got)
	}
	if strings.HasSuffix(got, ".") {
		t.Errorf("expected a mid-sentence cut, got %q", got)
	}
}

func TestBuildContext_Empty(t *testing.T) {
	if got := BuildContext(nil, 100); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestInjectContext_PrefixesUserTurn(t *testing.T) {
	turn := chatModels.Turn{Role: chatModels.RoleUser, Content: "What caps bitcoin supply?"}

	got := InjectContext(turn, "Document 1:\nBitcoin supply is capped.")

	want := "Context:\nDocument 1:\nBitcoin supply is capped.\n\nUser question:\nWhat caps bitcoin supply?"
	if got.Content != want {
		t.Errorf("InjectContext mismatch:\ngot:  %q\nwant: %q", got.Content, want)
	}
	if got.Role != chatModels.RoleUser {
		t.Errorf("role changed to %s", got.Role)
	}
}

func TestInjectContext_EmptyContextUnchanged(t *testing.T) {
	turn := chatModels.Turn{Role: chatModels.RoleUser, Content: "hello"}
	if got := InjectContext(turn, ""); got.Content != "hello" {
		t.Errorf("turn modified despite empty context: %q", got.Content)
	}
}

func TestSummaryTurn_IsSystemRole(t *testing.T) {
	turn := SummaryTurn("user: hi\nassistant: hello\n")
	if turn.Role != chatModels.RoleSystem {
		t.Errorf("expected system role, got %s", turn.Role)
	}
	if !strings.Contains(turn.Content, "user: hi") {
		t.Errorf("summary content missing: %q", turn.Content)
	}
}

func TestSummaryTurn_ParticipatesInShaping(t *testing.T) {
	// The summary turn sits after the primary system turn and is trimmed
	// by the same budget accounting as ordinary history.
	policy := testPolicy()
	policy.MaxPromptChars = 60

	messages := []chatModels.Turn{
		{Role: chatModels.RoleSystem, Content: "sys"},
		SummaryTurn(strings.Repeat("s", 200)),
		userTurn(strings.Repeat("u", 50)),
	}

	shaped := ShapeMessages(messages, policy)

	// The oversized summary turn is dropped; system and user survive.
	if len(shaped) != 2 {
		t.Fatalf("expected 2 turns after shaping, got %d", len(shaped))
	}
	if shaped[0].Content != "sys" {
		t.Errorf("primary system turn lost: %+v", shaped[0])
	}
	if shaped[1].Role != chatModels.RoleUser {
		t.Errorf("user turn lost: %+v", shaped[1])
	}
}
