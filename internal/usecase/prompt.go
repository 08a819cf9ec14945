package usecase

import (
	"strings"

	"chat-widget/internal/domain"
)

const fallbackSystemPrompt = "You are a helpful assistant."

// buildPromptMessages lays out the system prompt, the completed history in
// chronological order and finally the new user message.
func buildPromptMessages(systemPrompt, message string, history []domain.Turn) []domain.ChatMessage {
	if systemPrompt == "" {
		systemPrompt = fallbackSystemPrompt
	}
	messages := make([]domain.ChatMessage, 0, 2+2*len(history))
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	for _, t := range history {
		messages = append(messages, turnToPromptMessages(t)...)
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})
}

func turnToPromptMessages(t domain.Turn) []domain.ChatMessage {
	if t.Status != statusComplete {
		return nil
	}
	message := strings.TrimSpace(t.Message)
	reply := strings.TrimSpace(t.Reply)
	if message == "" || reply == "" {
		return nil
	}
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: message},
		{Role: domain.RoleAssistant, Content: reply},
	}
}
