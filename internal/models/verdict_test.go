package models

import "testing"

func TestParseVerdictStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected VerdictStatus
	}{
		{"Verified", StatusVerified},
		{"Debunked", StatusDebunked},
		{"Misleading", StatusMisleading},
		{"Unverified", StatusUnverified},
		{"TRUE", StatusUnverified},
		{"partially true", StatusUnverified},
		{"", StatusUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseVerdictStatus(tt.raw); got != tt.expected {
				t.Errorf("ParseVerdictStatus(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestVerdictNormalize(t *testing.T) {
	v := Verdict{
		Status:     VerdictStatus("Bogus"),
		Confidence: 1.7,
		EvidenceDetails: []EvidenceItem{
			{URL: "https://www.reuters.com/article/x", RelevanceScore: -0.2},
			{URL: "https://apnews.com/y", Domain: "apnews.com", RelevanceScore: 0.9},
		},
	}

	v.Normalize()

	if v.Status != StatusUnverified {
		t.Errorf("unrecognized status should collapse to Unverified, got %q", v.Status)
	}
	if v.Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %v", v.Confidence)
	}
	if v.EvidenceDetails[0].RelevanceScore != 0 {
		t.Errorf("relevance should clamp to 0, got %v", v.EvidenceDetails[0].RelevanceScore)
	}
	if v.EvidenceDetails[0].Domain != "reuters.com" {
		t.Errorf("domain should be derived without www, got %q", v.EvidenceDetails[0].Domain)
	}
}

func TestClaimEffectiveStatus(t *testing.T) {
	claim := Claim{ID: "c1", ClaimText: "The senator voted against the bill."}

	if claim.EffectiveStatus() != StatusUnverified {
		t.Errorf("claim without verdict should be implicitly Unverified, got %q", claim.EffectiveStatus())
	}

	claim.Verdict = &Verdict{Status: StatusDebunked}
	if claim.EffectiveStatus() != StatusDebunked {
		t.Errorf("expected Debunked, got %q", claim.EffectiveStatus())
	}
}

func TestClaimValidate(t *testing.T) {
	empty := Claim{ID: "c2", ClaimText: "   "}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for whitespace-only claim text")
	}

	ok := Claim{ID: "c3", ClaimText: "Turnout in the primary exceeded 40%."}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
