package ws

import "testing"

func TestExtractToken(t *testing.T) {
	tok, err := extractToken("query-token", "")
	if err != nil || tok != "query-token" {
		t.Errorf("query token = (%q, %v)", tok, err)
	}

	// Query wins when both are present.
	tok, err = extractToken("query-token", "Bearer header-token")
	if err != nil || tok != "query-token" {
		t.Errorf("both present = (%q, %v)", tok, err)
	}

	tok, err = extractToken("", "Bearer header-token")
	if err != nil || tok != "header-token" {
		t.Errorf("header fallback = (%q, %v)", tok, err)
	}

	if _, err := extractToken("", ""); err == nil {
		t.Error("no credentials accepted")
	}
	if _, err := extractToken("", "Basic abc"); err == nil {
		t.Error("non-bearer header accepted")
	}
}
