package model

import "time"

// Origin identifies which upstream subsystem produced a raw event.
type Origin string

const (
	OriginChat   Origin = "chat"
	OriginMail   Origin = "mail"
	OriginSystem Origin = "system"
)

// RawMessage is the classifier's input shape. Chat and mail events are
// both mapped into it before classification.
type RawMessage struct {
	Subject string    `json:"subject"`
	Content string    `json:"content"`
	Sender  string    `json:"sender"`
	SentAt  time.Time `json:"sent_at"`
}

// ChatMessage is one message in a chat conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
}

// MailMessage is one message record from the mail subsystem.
type MailMessage struct {
	MessageID string    `json:"message_id"`
	Folder    string    `json:"folder"`
	Subject   string    `json:"subject"`
	From      string    `json:"from"`
	Content   string    `json:"content"`
	Date      time.Time `json:"date"`
}
