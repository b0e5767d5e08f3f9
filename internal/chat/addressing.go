package chat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Addresser decides whether a group message is directed at the bot and, if
// so, strips the leading mention or trigger word from the text. Private
// chats never go through it; they are always addressed.
//
// A message is addressed when any of:
//   - it replies to one of the bot's own messages (text kept verbatim)
//   - it begins with @bot_username
//   - it begins with the configured trigger word
//
// An optional ":" or "," after the mention is consumed along with it. A
// message that is only a mention with nothing after it is not addressed.
type Addresser struct {
	botID   int64
	pattern *regexp.Regexp
}

// NewAddresser compiles the prefix pattern for the given bot identity and
// trigger word. Matching is case-insensitive. The word boundary after the
// name is checked by hand in Resolve; a regexp \b would not work here
// because Go defines it over ASCII only and the trigger word may be Arabic.
func NewAddresser(botID int64, botUsername, triggerName string) *Addresser {
	uname := regexp.QuoteMeta(strings.TrimPrefix(botUsername, "@"))
	trig := regexp.QuoteMeta(triggerName)
	pattern := regexp.MustCompile(fmt.Sprintf(`(?i)^\s*(?:@%s|%s)`, uname, trig))
	return &Addresser{botID: botID, pattern: pattern}
}

// Resolve reports whether the message is addressed to the bot and returns
// the text with any leading mention or trigger removed. replyToUserID is
// the author of the message being replied to, or 0 when the message is not
// a reply.
func (a *Addresser) Resolve(text string, replyToUserID int64) (bool, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, ""
	}
	if replyToUserID != 0 && replyToUserID == a.botID {
		return true, text
	}
	loc := a.pattern.FindStringIndex(text)
	if loc == nil {
		return false, ""
	}
	rest := text[loc[1]:]
	if r, _ := utf8.DecodeRuneInString(rest); unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		// Name runs into a longer word, e.g. the trigger inside "daddygptology".
		return false, ""
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, ",") {
		rest = strings.TrimSpace(rest[1:])
	}
	return rest != "", rest
}
