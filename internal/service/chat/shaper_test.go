package chat

import (
	"strings"
	"testing"

	chatModels "coinsage/internal/domain/models/chat"
)

func userTurn(content string) chatModels.Turn {
	return chatModels.Turn{Role: chatModels.RoleUser, Content: content}
}

func assistantTurn(content string) chatModels.Turn {
	return chatModels.Turn{Role: chatModels.RoleAssistant, Content: content}
}

func testPolicy() chatModels.BudgetPolicy {
	p := chatModels.DefaultBudgetPolicy()
	p.MaxHistoryMessages = 16
	p.MaxPromptChars = 10000
	return p
}

func TestShapeMessages_CountCapKeepsNewest(t *testing.T) {
	// 20 one-line turns with a cap of 16: shaped history has exactly 16
	// turns and the system turn is untouched.
	system := chatModels.Turn{Role: chatModels.RoleSystem, Content: "You are a crypto assistant."}
	messages := []chatModels.Turn{system}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			messages = append(messages, userTurn("question "+strings.Repeat("x", i)))
		} else {
			messages = append(messages, assistantTurn("answer "+strings.Repeat("y", i)))
		}
	}

	shaped := ShapeMessages(messages, testPolicy())

	if len(shaped) != 17 {
		t.Fatalf("expected system + 16 history turns, got %d total", len(shaped))
	}
	if shaped[0].Role != chatModels.RoleSystem || shaped[0].Content != system.Content {
		t.Errorf("system turn was modified: %+v", shaped[0])
	}
	// Oldest survivor must be among the last 16 of the input.
	if shaped[1].Content != messages[5].Content {
		t.Errorf("expected oldest survivor to be input turn 5, got %q", shaped[1].Content)
	}
}

func TestShapeMessages_CharBudgetPrefersRecency(t *testing.T) {
	policy := testPolicy()
	policy.MaxPromptChars = 100

	messages := []chatModels.Turn{
		userTurn(strings.Repeat("a", 60)),
		assistantTurn(strings.Repeat("b", 60)),
		userTurn(strings.Repeat("c", 40)),
		assistantTurn(strings.Repeat("d", 30)),
	}

	shaped := ShapeMessages(messages, policy)

	// 30 + 40 = 70 fits; adding the 60-char turn would overflow.
	if len(shaped) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(shaped))
	}
	if shaped[0].Content != strings.Repeat("c", 40) || shaped[1].Content != strings.Repeat("d", 30) {
		t.Errorf("wrong survivors: %q, %q", shaped[0].Content, shaped[1].Content)
	}

	total := 0
	for _, m := range shaped {
		total += m.ContentLen()
	}
	if total > policy.MaxPromptChars {
		t.Errorf("shaped output uses %d chars, budget %d", total, policy.MaxPromptChars)
	}
}

func TestShapeMessages_OversizedNewestTurnTruncated(t *testing.T) {
	// A single 50 000-char user turn against a 28 000-char budget: exactly
	// one turn survives, truncated to the budget.
	policy := testPolicy()
	policy.MaxPromptChars = 28000

	shaped := ShapeMessages([]chatModels.Turn{userTurn(strings.Repeat("z", 50000))}, policy)

	if len(shaped) != 1 {
		t.Fatalf("expected exactly 1 turn, got %d", len(shaped))
	}
	if got := shaped[0].ContentLen(); got != 28000 {
		t.Errorf("expected truncation to 28000 chars, got %d", got)
	}
}

func TestShapeMessages_SystemTurnTruncatedToRemaining(t *testing.T) {
	policy := testPolicy()
	policy.MaxPromptChars = 100

	messages := []chatModels.Turn{
		{Role: chatModels.RoleSystem, Content: strings.Repeat("s", 80)},
		userTurn(strings.Repeat("u", 70)),
	}

	shaped := ShapeMessages(messages, policy)

	if len(shaped) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(shaped))
	}
	// 30 chars remain after the 70-char user turn.
	if got := shaped[0].ContentLen(); got != 30 {
		t.Errorf("expected system truncated to 30 chars, got %d", got)
	}
	if shaped[1].ContentLen() != 70 {
		t.Errorf("user turn should be kept whole, got %d chars", shaped[1].ContentLen())
	}
}

func TestShapeMessages_SystemTurnSurvivalFloor(t *testing.T) {
	policy := testPolicy()
	policy.MaxPromptChars = 50

	messages := []chatModels.Turn{
		{Role: chatModels.RoleSystem, Content: strings.Repeat("s", 500)},
		userTurn(strings.Repeat("u", 50)),
	}

	shaped := ShapeMessages(messages, policy)

	if len(shaped) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(shaped))
	}
	if shaped[0].Role != chatModels.RoleSystem {
		t.Fatalf("first shaped turn is not the system turn")
	}
	// Zero budget remains, but the system turn keeps its 128-char floor.
	if got := shaped[0].ContentLen(); got != 128 {
		t.Errorf("expected system floor of 128 chars, got %d", got)
	}
}

func TestShapeMessages_ShortSystemKeptWholeAtFloor(t *testing.T) {
	policy := testPolicy()
	policy.MaxPromptChars = 50

	messages := []chatModels.Turn{
		{Role: chatModels.RoleSystem, Content: "short prompt"},
		userTurn(strings.Repeat("u", 50)),
	}

	shaped := ShapeMessages(messages, policy)
	if shaped[0].Content != "short prompt" {
		t.Errorf("system shorter than the floor must be kept whole, got %q", shaped[0].Content)
	}
}

func TestShapeMessages_EmptyInput(t *testing.T) {
	if got := ShapeMessages(nil, testPolicy()); len(got) != 0 {
		t.Errorf("expected empty output, got %d turns", len(got))
	}
}

func TestTruncate_RespectsRuneBoundaries(t *testing.T) {
	s := "привет мир"
	got := truncate(s, 3)
	if !strings.HasPrefix(s, got) {
		t.Fatalf("truncated string %q is not a prefix of the input", got)
	}
	if len(got) > 3 {
		t.Errorf("truncate returned %d bytes, want <= 3", len(got))
	}
	for _, r := range got {
		if r == '�' {
			t.Errorf("truncate split a UTF-8 sequence: %q", got)
		}
	}
}
