package chat

import (
	"fmt"
	"time"
)

// TimestampLayout is the HH:MM:SS clock shown in front of chat lines.
const TimestampLayout = "15:04:05"

// ChatLine is a timestamped global chat line.
func ChatLine(at time.Time, username, body string) string {
	return fmt.Sprintf("(%s) %s : %s\n", at.Format(TimestampLayout), username, body)
}

// DirectLine is a timestamped private message, shown to sender and recipient.
func DirectLine(at time.Time, sender, recipient, body string) string {
	return fmt.Sprintf("(%s) %s -> %s : %s\n", at.Format(TimestampLayout), sender, recipient, body)
}

// JoinedLine announces an admitted user.
func JoinedLine(username string) string {
	return username + " just connected.\n"
}

// LogoutLine announces a user who left with /logout.
func LogoutLine(username string) string {
	return username + " disconnected with a LOGOUT message.\n"
}

// DroppedLine announces a user whose connection failed.
func DroppedLine(username string) string {
	return username + " has force closed and disconnected.\n"
}

// UnknownRecipientLine tells a /msg sender the recipient is not connected.
func UnknownRecipientLine(recipient string) string {
	return "No user named " + recipient + " is connected.\n"
}

// ListEntry is one line of a /list reply.
func ListEntry(username string) string {
	return username + "\n"
}

// Notice wraps a server diagnostic so it ends with a newline like every
// other server line.
func Notice(text string) string {
	return text + "\n"
}
