package wa

import "github.com/moatasem-alhilali/wadash/internal/wire"

// MessageKind maps whatsapp-web.js message types onto display categories.
func MessageKind(msg wire.IncomingMessage) string {
	switch msg.Type {
	case "chat", "text":
		return "text"
	case "image":
		return "image"
	case "video":
		return "video"
	case "audio", "ptt":
		return "audio"
	case "document":
		return "document"
	case "sticker":
		return "sticker"
	case "vcard", "multi_vcard":
		return "contact"
	case "location":
		return "location"
	}
	if msg.HasMedia {
		return "media"
	}
	return "unknown"
}

// Preview returns a one-line representation of msg for lists.
func Preview(msg wire.IncomingMessage) string {
	if msg.Body != "" {
		return msg.Body
	}
	kind := MessageKind(msg)
	if kind == "text" || kind == "unknown" {
		return ""
	}
	return "[" + kind + "]"
}

// AckMark renders an ack state as check marks.
func AckMark(s wire.AckStatus) string {
	switch s {
	case wire.AckSent:
		return "✓"
	case wire.AckDelivered, wire.AckRead:
		return "✓✓"
	}
	return "⏳"
}
