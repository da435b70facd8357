package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rec(id, body string) Record {
	return Record{ID: id, Author: "someone", Body: body, CreatedUTC: 1425168001}
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"plain reference", "check out /r/golang", "golang", true},
		{"mixed case is lowered", "see /r/GoLang today", "golang", true},
		{"full url", "https://www.reddit.com/r/rust/comments/abc", "rust", true},
		{"first match wins", "/r/zig and /r/rust", "zig", true},
		{"underscore and digits", "/r/ask_me_2", "ask_me_2", true},
		{"capped at 21 characters", "/r/abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstu", true},
		{"no marker", "nothing to see here", "", false},
		{"bare r/ prefix", "go to r/golang", "", false},
		{"empty name", "just /r/ alone", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractReference(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagDropsSelfAndUnreferenced(t *testing.T) {
	records := []Record{
		rec("1", "check out /r/golang"),
		rec("2", "no reference"),
		rec("3", "back to /r/Python"),
		rec("4", "/r/python then /r/rust"),
	}

	tagged := Tag(records, "Python")
	if assert.Len(t, tagged, 1) {
		assert.Equal(t, "1", tagged[0].ID)
		assert.Equal(t, "golang", tagged[0].Reference)
	}
}

func TestTagOnEmptyInput(t *testing.T) {
	assert.Empty(t, Tag(nil, "go"))
}

func TestNormalizeCommunity(t *testing.T) {
	assert.Equal(t, "askreddit", NormalizeCommunity("  AskReddit "))
}

func TestCommunityFromURL(t *testing.T) {
	name, ok := CommunityFromURL("https://www.reddit.com/r/GoLang/")
	assert.True(t, ok)
	assert.Equal(t, "golang", name)

	_, ok = CommunityFromURL("https://www.reddit.com/")
	assert.False(t, ok)

	_, ok = CommunityFromURL("://bad")
	assert.False(t, ok)
}
