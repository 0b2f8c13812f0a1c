package chat

// Canned replies keyed by intent. Unrecognized intents fall through to
// the default entry, including the classifier's "unknown".
var intentReplies = map[string]string{
	"greeting": "Hello! How can I help you today?",
	"goodbye":  "Goodbye! Have a great day!",
	"help":     "I can help you with various tasks. What would you like to know?",
}

const defaultReply = "I'm not sure I understand. Could you please rephrase that?"

// Follow-up suggestions surfaced alongside the reply.
var intentSuggestions = map[string][]string{
	"greeting": {"What can you do?", "Help me with something", "Tell me about yourself"},
	"help":     {"How to use this", "What features are available", "Contact support"},
}

var defaultSuggestions = []string{"Try asking for help", "Say hello", "Ask a question"}

// replyFor returns the canned reply for an intent.
func replyFor(intent string) string {
	if reply, ok := intentReplies[intent]; ok {
		return reply
	}
	return defaultReply
}

// suggestionsFor returns follow-up suggestions for an intent. The
// returned slice is a copy, callers may append to it freely.
func suggestionsFor(intent string) []string {
	src, ok := intentSuggestions[intent]
	if !ok {
		src = defaultSuggestions
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
