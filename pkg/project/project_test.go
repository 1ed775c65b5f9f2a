package project

import "testing"

func TestEncodeProjectPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "plain unix path",
			path: "/home/dev/app",
			want: "-home-dev-app",
		},
		{
			name: "spaces and parens",
			path: "/Users/ann/My Projects(1)/app",
			want: "-Users-ann-My-Projects-1--app",
		},
		{
			name: "dots and underscores",
			path: "/home/dev/my_app.v2",
			want: "-home-dev-my-app-v2",
		},
		{
			name: "relative path gains leading dash",
			path: "projects/app",
			want: "-projects-app",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeProjectPath(tt.path); got != tt.want {
				t.Errorf("EncodeProjectPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "simple message",
			message: "Fix the login page",
			want:    "fix-the-login-page",
		},
		{
			name:    "truncates to first words",
			message: "please refactor the session aggregator to handle ties",
			want:    "please-refactor-the-session",
		},
		{
			name:    "accents stripped",
			message: "Résumé parsing für café",
			want:    "resume-parsing-fur-cafe",
		},
		{
			name:    "symbols become words",
			message: "deploy @ prod & staging",
			want:    "deploy-at-prod-and",
		},
		{
			name:    "punctuation collapses",
			message: "what's up?!",
			want:    "what-s-up",
		},
		{
			name:    "empty message",
			message: "",
			want:    "",
		},
		{
			name:    "only punctuation",
			message: "?!...",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.message); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}
