package chat

import (
	"context"
	"strings"
	"testing"

	chatSvc "coinsage/internal/domain/services/chat"
)

func TestAssistant_RelatedQuestionsDefaultsWithoutHistory(t *testing.T) {
	backend := &fakeBackend{}
	a := newTestAssistant(t, backend, nil)

	questions, err := a.RelatedQuestions(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("RelatedQuestions() error = %v", err)
	}
	if len(questions) != relatedQuestionCount {
		t.Fatalf("questions = %d, want %d", len(questions), relatedQuestionCount)
	}
	if questions[0] != defaultQuestions[0] {
		t.Errorf("questions[0] = %q, want stock suggestion", questions[0])
	}
	if len(backend.calls) != 0 {
		t.Errorf("backend calls = %d, want 0 for an empty conversation", len(backend.calls))
	}
}

func TestAssistant_RelatedQuestionsGeneratedFromHistory(t *testing.T) {
	backend := &fakeBackend{responses: []fakeReply{
		{resp: &chatSvc.SendResponse{Content: "BTC is consolidating around $64k."}},
		{resp: &chatSvc.SendResponse{Content: "1. Прогноз BTC на неделю\n2. Сравнить BTC и ETH\n\n3. Что двигает цену?\n"}},
	}}
	a := newTestAssistant(t, backend, nil)

	if _, err := a.Chat(context.Background(), "conv-1", "How is bitcoin doing?"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	questions, err := a.RelatedQuestions(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("RelatedQuestions() error = %v", err)
	}
	if len(questions) != relatedQuestionCount {
		t.Fatalf("questions = %v, want %d entries", questions, relatedQuestionCount)
	}
	want := []string{"Прогноз BTC на неделю", "Сравнить BTC и ETH", "Что двигает цену?"}
	for i, q := range want {
		if questions[i] != q {
			t.Errorf("questions[%d] = %q, want %q", i, questions[i], q)
		}
	}
	// A three-line answer is padded from the stock suggestions.
	if questions[3] != defaultQuestions[0] {
		t.Errorf("questions[3] = %q, want stock padding", questions[3])
	}

	// The generation request sees the transcript but no function schemas,
	// and leaves history untouched.
	req := backend.calls[1]
	if len(req.Functions) != 0 {
		t.Error("suggestion request must not advertise function schemas")
	}
	prompt := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(prompt, "user: How is bitcoin doing?") {
		t.Errorf("prompt missing conversation transcript: %q", prompt)
	}
	if got := a.History("conv-1"); len(got) != 2 {
		t.Errorf("history after suggestions = %d turns, want 2", len(got))
	}
}

func TestParseQuestions(t *testing.T) {
	t.Run("strips numbering and dedupes", func(t *testing.T) {
		got := parseQuestions("1. Анализ рынка\n2. Анализ рынка\n3. Торговый план\nЧто дальше?\nЛишний пятый вопрос")
		want := []string{"Анализ рынка", "Торговый план", "Что дальше?", "Лишний пятый вопрос"}
		if len(got) != len(want) {
			t.Fatalf("parseQuestions() = %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("questions[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("pads empty answer with defaults", func(t *testing.T) {
		got := parseQuestions("")
		if len(got) != relatedQuestionCount {
			t.Fatalf("parseQuestions() = %v", got)
		}
		for i, q := range defaultQuestions {
			if got[i] != q {
				t.Errorf("questions[%d] = %q, want %q", i, got[i], q)
			}
		}
	})
}

func TestStripNumbering(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1. Анализ BTC", "Анализ BTC"},
		{"10. Обзор", "Обзор"},
		{"Вопрос без номера", "Вопрос без номера"},
		{"Web3 и DAO", "Web3 и DAO"},
	}
	for _, tc := range cases {
		if got := stripNumbering(tc.in); got != tc.want {
			t.Errorf("stripNumbering(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
