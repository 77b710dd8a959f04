// Package twiml builds the XML instruction documents Twilio executes to
// drive a live call (speak, gather input, redirect, hang up).
package twiml

import (
	"encoding/xml"
	"fmt"
)

const header = xml.Header

type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Say           *Say     `xml:"Say,omitempty"`
}

type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type Pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr,omitempty"`
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Document accumulates verbs in order and renders the full TwiML payload.
type Document struct {
	verbs    []any
	voice    string
	language string
}

func New(voice, language string) *Document {
	return &Document{voice: voice, language: language}
}

func (d *Document) Say(text string) *Document {
	d.verbs = append(d.verbs, Say{Voice: d.voice, Language: d.language, Text: text})
	return d
}

func (d *Document) Pause(seconds int) *Document {
	d.verbs = append(d.verbs, Pause{Length: seconds})
	return d
}

// GatherSpeech opens a capture window for spoken or keypad input. The prompt
// is spoken inside the gather so the caller can barge in.
func (d *Document) GatherSpeech(prompt, action string, timeoutSeconds int) *Document {
	d.verbs = append(d.verbs, Gather{
		Input:         "speech dtmf",
		Action:        action,
		Method:        "POST",
		Timeout:       timeoutSeconds,
		SpeechTimeout: "auto",
		Say:           &Say{Voice: d.voice, Language: d.language, Text: prompt},
	})
	return d
}

func (d *Document) Redirect(url string) *Document {
	d.verbs = append(d.verbs, Redirect{Method: "POST", URL: url})
	return d
}

func (d *Document) Hangup() *Document {
	d.verbs = append(d.verbs, Hangup{})
	return d
}

// Render serializes the document. Rendering never fails for the verb types
// above; an error is still surfaced in case a caller embeds something odd.
func (d *Document) Render() (string, error) {
	// Each verb carries its own XMLName, which takes precedence over the
	// field name when marshaling interface elements.
	body, err := xml.Marshal(struct {
		XMLName xml.Name `xml:"Response"`
		Verbs   []any
	}{Verbs: d.verbs})
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return header + string(body), nil
}

// MustRender renders or falls back to a bare hangup document. Voice
// webhooks must always hand Twilio parseable instructions.
func (d *Document) MustRender() string {
	out, err := d.Render()
	if err != nil {
		return header + "<Response><Hangup/></Response>"
	}
	return out
}
