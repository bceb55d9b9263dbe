package ledger

import (
	"strings"
	"testing"
)

func TestHashContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty", content: "", want: ""},
		{name: "abc", content: "abc", want: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashContent(tt.content); got != tt.want {
				t.Errorf("HashContent(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestHashContent_Truncates(t *testing.T) {
	base := strings.Repeat("a", MaxHashSize)
	if HashContent(base) != HashContent(base+"tail") {
		t.Error("bytes past MaxHashSize changed the digest")
	}
	if HashContent(base[:10]) == HashContent(base[:11]) {
		t.Error("different short inputs produced the same digest")
	}
}
