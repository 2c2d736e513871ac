package intent

import (
	"strings"
	"time"
)

const defaultReply = "I can only help with opening files, folders, and applications. For other questions, try being more specific."

const helpReply = "I can open files, folders and applications, search the web, and control volume, brightness and power. Just ask me to open something!"

// cannedReply returns the chat reply for normalised text.
func cannedReply(norm string, now time.Time) string {
	words := strings.Fields(norm)
	has := func(phrases ...string) bool {
		for _, p := range phrases {
			if containsPhrase(words, strings.Fields(p)) >= 0 {
				return true
			}
		}
		return false
	}
	switch {
	case has("hello", "hi", "hey", "howdy", "greetings", "good morning", "good evening"):
		return "How ya doing?"
	case has("what's name", "what is name", "who are you", "whats name"):
		return "Friday."
	case has("how are you", "how r you", "how are things"):
		return "Great but I could really go for a massage"
	case has("time"):
		return "The current time is " + now.Format("3:04 PM")
	case has("date", "what day is it", "what day is today"):
		return "Today is " + now.Format("January 2, 2006")
	case has("what can you do", "help"):
		return helpReply
	default:
		return defaultReply
	}
}
