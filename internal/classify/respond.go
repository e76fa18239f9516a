package classify

import "github.com/nhle/notification-engine/internal/model"

var autoResponses = map[Category]string{
	CategoryProjectRelated: "Thanks for the project update. The project team has been " +
		"notified and will follow up with next steps.",
	CategoryClientCommunication: "Thank you for reaching out. Your account manager has " +
		"received your message and will reply within one business day.",
	CategoryInvoicePayment: "We have received your billing inquiry. Our accounts team " +
		"will review the invoice details and respond shortly.",
	CategoryMeetingScheduling: "Thanks for the meeting request. We will confirm a time " +
		"that works for everyone as soon as possible.",
	CategoryUrgentActionable: "Your message has been flagged as urgent and routed to the " +
		"on-call team for immediate attention.",
	CategoryInternalTeam: "Got it, thanks. I will take a look and get back to you.",
	CategoryGeneral:      "Thank you for your message. We will get back to you soon.",
}

// AutoResponse returns the reply template for a category. It only
// produces text; nothing is sent.
func AutoResponse(category Category) string {
	if text, ok := autoResponses[category]; ok {
		return text
	}
	return autoResponses[CategoryGeneral]
}

// NotificationCategory maps a classifier category onto the notification
// category used for preference lookup.
func NotificationCategory(category Category) model.Category {
	switch category {
	case CategoryProjectRelated:
		return model.CategoryProject
	case CategoryClientCommunication:
		return model.CategoryUser
	case CategoryInvoicePayment:
		return model.CategoryBilling
	case CategoryMeetingScheduling:
		return model.CategoryTask
	case CategoryInternalTeam:
		return model.CategoryChat
	default:
		return model.CategorySystem
	}
}

// NotificationType picks the informational type for a mail-sourced
// notification from its classification.
func NotificationType(r Result) model.NotificationType {
	switch {
	case r.Category == CategoryProjectRelated:
		return model.TypeProject
	case r.Priority == model.PriorityUrgent:
		return model.TypeWarning
	case r.Category == CategoryMeetingScheduling:
		return model.TypeTask
	default:
		return model.TypeInfo
	}
}
