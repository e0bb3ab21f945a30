package engine

import "testing"

func TestJoinFragments(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"two words", []string{"Hello", "world"}, "Hello world"},
		{"empty", nil, ""},
		{"outer whitespace trimmed", []string{" Hello", "world "}, "Hello world"},
		{"inner fragments kept verbatim", []string{"a", "", "b"}, "a  b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinFragments(tt.parts); got != tt.want {
				t.Errorf("JoinFragments(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<font color=\"#E5E5E5\">hi</font>", "hi"},
		{"don&amp;#39;t", "don't"},
		{"  plain  ", "plain"},
		{"a &lt;b&gt; c", "a  c"},
	}
	for _, tt := range tests {
		if got := CleanHTML(tt.in); got != tt.want {
			t.Errorf("CleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTagsOrDefault(t *testing.T) {
	for in, want := range map[string]string{
		"":            "No tags",
		"[None]":      "No tags",
		"tech|review": "tech|review",
	} {
		if got := TagsOrDefault(in); got != want {
			t.Errorf("TagsOrDefault(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"AI vs Human Pizza Speedrun"`, "AI vs Human Pizza Speedrun"},
		{"The Truth About Spotify Shuffle\nextra", "The Truth About Spotify Shuffle"},
		{"```\nI let ChatGPT control my browser\n```", "I let ChatGPT control my browser"},
	}
	for _, tt := range tests {
		if got := CleanTitle(tt.in); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
