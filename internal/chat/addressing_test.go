package chat

import "testing"

func TestResolveMentionPrefix(t *testing.T) {
	a := NewAddresser(100, "@DaddyGPTBot", "daddygpt")

	cases := []struct {
		in      string
		ok      bool
		cleaned string
	}{
		{"@DaddyGPTBot hello", true, "hello"},
		{"@daddygptbot: hello", true, "hello"},
		{"daddygpt, what's up", true, "what's up"},
		{"DADDYGPT hello", true, "hello"},
		{"  daddygpt   hi  ", true, "hi"},
		{"hello daddygpt", false, ""},
		{"@SomeOtherBot hello", false, ""},
		{"just chatting", false, ""},
		{"daddygptology is a science", false, ""},
	}
	for _, tc := range cases {
		ok, cleaned := a.Resolve(tc.in, 0)
		if ok != tc.ok || cleaned != tc.cleaned {
			t.Fatalf("Resolve(%q) = (%v, %q), want (%v, %q)", tc.in, ok, cleaned, tc.ok, tc.cleaned)
		}
	}
}

func TestResolveArabicTrigger(t *testing.T) {
	a := NewAddresser(100, "DaddyGPTBot", "بابا")

	cases := []struct {
		in      string
		ok      bool
		cleaned string
	}{
		{"بابا hello", true, "hello"},
		{"بابا: كيف الحال", true, "كيف الحال"},
		{"بابا، مرحبا", true, "، مرحبا"}, // only ASCII ":"/"," are consumed as separators
		{"باباهello", false, ""},
		{"بابا", false, ""},
	}
	for _, tc := range cases {
		ok, cleaned := a.Resolve(tc.in, 0)
		if ok != tc.ok || cleaned != tc.cleaned {
			t.Fatalf("Resolve(%q) = (%v, %q), want (%v, %q)", tc.in, ok, cleaned, tc.ok, tc.cleaned)
		}
	}
}

func TestResolveBareMentionNotAddressed(t *testing.T) {
	a := NewAddresser(100, "DaddyGPTBot", "daddygpt")
	for _, in := range []string{"@DaddyGPTBot", "daddygpt", "daddygpt:", "@DaddyGPTBot ,  "} {
		if ok, _ := a.Resolve(in, 0); ok {
			t.Fatalf("bare mention %q must not be addressed", in)
		}
	}
}

func TestResolveReplyToBot(t *testing.T) {
	a := NewAddresser(100, "DaddyGPTBot", "daddygpt")

	ok, cleaned := a.Resolve("any text at all", 100)
	if !ok || cleaned != "any text at all" {
		t.Fatalf("reply to bot must be addressed with text verbatim, got (%v, %q)", ok, cleaned)
	}

	// Reply to someone else does not count.
	if ok, _ := a.Resolve("any text at all", 55); ok {
		t.Fatalf("reply to another user must not be addressed")
	}
}

func TestResolveEmptyText(t *testing.T) {
	a := NewAddresser(100, "DaddyGPTBot", "daddygpt")
	if ok, _ := a.Resolve("   ", 100); ok {
		t.Fatalf("empty text must not be addressed even as a reply to the bot")
	}
}
