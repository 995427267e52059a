package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	chatModels "coinsage/internal/domain/models/chat"
)

// translationTemperature keeps translations literal.
const translationTemperature = 0.1

const translationPrompt = `Imagine that you are one of the best professional translators in the world of economics, finance, and cryptocurrencies, working with the world's top corporations and publications. Translate the following text from Russian to English, maintaining the original accuracy and professionalism of the information.

Russian: %s
English:`

// containsCyrillic reports whether any rune in text is Cyrillic.
func containsCyrillic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// searchQuery picks the retrieval query for a user message. The knowledge
// store is indexed in English, so Cyrillic messages are translated first;
// a failed translation degrades to searching with the original text.
func (a *Assistant) searchQuery(ctx context.Context, message string) string {
	if !a.translateQueries || !containsCyrillic(message) {
		return message
	}
	translated, err := a.translateToEnglish(ctx, message)
	if err != nil {
		a.logger.Warn("query translation failed, searching with original text", "error", err)
		return message
	}
	a.logger.Info("search query translated",
		"original", message,
		"translated", translated,
	)
	return translated
}

// translateToEnglish runs a one-off translation call outside the
// conversation: no history, no retrieval, no function schemas, and nothing
// committed.
func (a *Assistant) translateToEnglish(ctx context.Context, text string) (string, error) {
	messages := []chatModels.Turn{{
		Role:    chatModels.RoleUser,
		Content: fmt.Sprintf(translationPrompt, text),
	}}

	resp, err := a.invoker.Invoke(ctx, messages, a.policy, InvokeOptions{Temperature: translationTemperature})
	if err != nil {
		return "", err
	}

	translated := strings.TrimSpace(resp.Content)
	if translated == "" {
		return "", errors.New("backend returned an empty translation")
	}
	return translated, nil
}
