package rag

import "ragdesk/internal/model"

const SystemInstruction = "You are a helpful assistant. Use CONTEXT and chat HISTORY. If unsure, say you don't know."

const contextPrefix = "CONTEXT:\n"

// BuildPrompt lays out the chat-completion input for one turn:
// the fixed instruction, prior history, the retrieved context and the new
// utterance. Nothing is truncated.
func BuildPrompt(history []model.Message, contextText, utterance string) []model.Message {
	messages := make([]model.Message, 0, len(history)+3)
	messages = append(messages, model.SystemMessage(SystemInstruction))
	for _, item := range history {
		messages = append(messages, model.Message{
			Role:    model.NormalizeRole(item.Role),
			Content: item.Content,
		})
	}
	messages = append(messages, model.SystemMessage(contextPrefix+contextText))
	messages = append(messages, model.UserMessage(utterance))
	return messages
}
