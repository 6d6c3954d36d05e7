package llm

import "testing"

func TestParseScore(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantScore  int
		wantReason string
		wantOK     bool
	}{
		{"full reply", "SCORE: 8 | REASON: loves chai", 8, "loves chai", true},
		{"no markers", "no score here", 5, "Neutral comment.", false},
		{"score only", "SCORE:3", 3, "Neutral comment.", true},
		{"reason only", "REASON: asked about price", 5, "asked about price", true},
		{"multiline reason", "SCORE: 9\nREASON: wants to buy\ntoday", 9, "wants to buy\ntoday", true},
		{"empty reason", "SCORE: 7 | REASON:   ", 7, "Neutral comment.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason, ok := ParseScore(tt.text, 5, "Neutral comment.")
			if score != tt.wantScore || reason != tt.wantReason || ok != tt.wantOK {
				t.Errorf("ParseScore(%q) = (%d, %q, %v), want (%d, %q, %v)",
					tt.text, score, reason, ok, tt.wantScore, tt.wantReason, tt.wantOK)
			}
		})
	}
}

func TestParseSubjectMessage(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSubject string
		wantMessage string
	}{
		{"both lines", "Subject: Chai time!\nMessage: Hey @sam, come sip with us.", "Chai time!", "Hey @sam, come sip with us."},
		{"no subject marker", "Just a friendly hello", "Default", "Just a friendly hello"},
		{"subject without message", "Subject: Hi there", "Hi there", ""},
		{"blank subject", "Subject:\nMessage: Body text here", "Default", "Body text here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, message := ParseSubjectMessage(tt.text, "Default")
			if subject != tt.wantSubject || message != tt.wantMessage {
				t.Errorf("got (%q, %q), want (%q, %q)", subject, message, tt.wantSubject, tt.wantMessage)
			}
		})
	}
}
