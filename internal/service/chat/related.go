package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	chatModels "coinsage/internal/domain/models/chat"
)

// relatedQuestionCount is how many follow-up suggestions a client gets.
const relatedQuestionCount = 4

// relatedContextTurns is how much recent history the suggestion prompt sees.
const relatedContextTurns = 4

// defaultQuestions seed the suggestion strip before any exchange happened,
// and pad a short model answer.
var defaultQuestions = []string{
	"Анализ BTC",
	"Обзор рынка",
	"Торговые идеи",
	"Что такое DeFi",
}

const relatedQuestionsPrompt = `Based on this conversation context, generate 4 short related questions that the user might want to ask next.
Focus on crypto, trading, and economic topics. Keep each question under 40 characters for mobile display.
Make questions specific and actionable but concise. Do not give the same question twice. Do not give anything except questions.

Context:
%s

Generate exactly 4 SHORT questions, one per line, in Russian:`

// RelatedQuestions suggests follow-up questions for a conversation. The
// generation call runs outside the conversation: no retrieval, no function
// schemas, and nothing committed to history. With fewer than two turns of
// history the stock suggestions are returned unchanged.
func (a *Assistant) RelatedQuestions(ctx context.Context, conversationID string) ([]string, error) {
	if conversationID == "" {
		return slices.Clone(defaultQuestions), nil
	}
	history := a.conversation(conversationID).History()
	if len(history) < 2 {
		return slices.Clone(defaultQuestions), nil
	}

	recent := history
	if len(recent) > relatedContextTurns {
		recent = recent[len(recent)-relatedContextTurns:]
	}
	var transcript strings.Builder
	for _, turn := range recent {
		fmt.Fprintf(&transcript, "%s: %s\n", turn.Role, turn.Content)
	}

	messages := []chatModels.Turn{{
		Role:    chatModels.RoleUser,
		Content: fmt.Sprintf(relatedQuestionsPrompt, strings.TrimSpace(transcript.String())),
	}}

	resp, err := a.invoker.Invoke(ctx, messages, a.policy, InvokeOptions{Temperature: a.temperature})
	if err != nil {
		return nil, err
	}
	return parseQuestions(resp.Content), nil
}

// parseQuestions extracts up to four distinct questions from a
// line-oriented answer, stripping leading numbering, and pads from the
// stock suggestions when the model produced fewer.
func parseQuestions(response string) []string {
	questions := make([]string, 0, relatedQuestionCount)
	for _, line := range strings.Split(response, "\n") {
		line = stripNumbering(strings.TrimSpace(line))
		if line == "" || slices.Contains(questions, line) {
			continue
		}
		questions = append(questions, line)
		if len(questions) == relatedQuestionCount {
			break
		}
	}

	for _, q := range defaultQuestions {
		if len(questions) == relatedQuestionCount {
			break
		}
		if !slices.Contains(questions, q) {
			questions = append(questions, q)
		}
	}
	return questions
}

// stripNumbering drops a leading "1." style list marker: if any of the
// first three runes is a digit, everything through the first dot goes.
func stripNumbering(line string) string {
	seen := 0
	numbered := false
	for _, r := range line {
		if unicode.IsDigit(r) {
			numbered = true
			break
		}
		seen++
		if seen == 3 {
			break
		}
	}
	if !numbered {
		return line
	}
	if _, rest, ok := strings.Cut(line, "."); ok {
		return strings.TrimSpace(rest)
	}
	return line
}
