package twiml

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestRender_VerbOrderAndAttributes(t *testing.T) {
	doc := New("Polly.Joanna", "en-US").
		Say("Hello!").
		GatherSpeech("How are you?", "https://example.com/answer", 10).
		Redirect("https://example.com/retry")

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	if !strings.HasPrefix(out, xml.Header) {
		t.Errorf("expected XML header prefix, got %q", out[:40])
	}

	sayIdx := strings.Index(out, "<Say")
	gatherIdx := strings.Index(out, "<Gather")
	redirectIdx := strings.Index(out, "<Redirect")
	if sayIdx < 0 || gatherIdx < 0 || redirectIdx < 0 {
		t.Fatalf("missing verbs in %q", out)
	}
	if !(sayIdx < gatherIdx && gatherIdx < redirectIdx) {
		t.Errorf("verbs out of order in %q", out)
	}

	for _, want := range []string{
		`voice="Polly.Joanna"`,
		`language="en-US"`,
		`input="speech dtmf"`,
		`method="POST"`,
		`timeout="10"`,
		`speechTimeout="auto"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %q", want, out)
		}
	}
}

func TestRender_GatherNestsPrompt(t *testing.T) {
	out, err := New("", "").GatherSpeech("Speak now", "/answer", 5).Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	gatherStart := strings.Index(out, "<Gather")
	gatherEnd := strings.Index(out, "</Gather>")
	sayIdx := strings.Index(out, "<Say")
	if gatherStart < 0 || gatherEnd < 0 || sayIdx < 0 {
		t.Fatalf("missing elements in %q", out)
	}
	if !(gatherStart < sayIdx && sayIdx < gatherEnd) {
		t.Errorf("expected Say nested inside Gather in %q", out)
	}
}

func TestRender_IsWellFormedXML(t *testing.T) {
	out, err := New("alice", "en-GB").
		Say("One").
		Pause(2).
		Hangup().
		Render()
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	var parsed struct {
		XMLName xml.Name `xml:"Response"`
	}
	if err := xml.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("rendered document is not parseable XML: %v\n%s", err, out)
	}
}

func TestMustRender_EmptyDocument(t *testing.T) {
	out := New("", "").MustRender()
	if !strings.Contains(out, "<Response") {
		t.Fatalf("expected a Response element, got %q", out)
	}
}
