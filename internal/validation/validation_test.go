package validation

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{"Valid email", "user@example.com", true},
		{"Valid email with subdomain", "user@mail.example.com", true},
		{"Empty email", "", false},
		{"Email without @", "userexample.com", false},
		{"Email without domain", "user@", false},
		{"Email with spaces", "user @example.com", false},
		{"Valid email with numbers", "user123@example.com", true},
		{"Valid email with dots", "user.name@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateEmail(tt.email)
			if result != tt.expected {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.email, result, tt.expected)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"Email with uppercase", "User@EXAMPLE.COM", "user@example.com"},
		{"Email with spaces", "  user@example.com  ", "user@example.com"},
		{"Lowercase email", "user@example.com", "user@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeEmail(tt.email)
			if result != tt.expected {
				t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.email, result, tt.expected)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		expected bool
	}{
		{"Valid username", "john_doe", true},
		{"Valid username with numbers", "user123", true},
		{"Valid username minimum length", "abc", true},
		{"Username too short", "ab", false},
		{"Username too long", strings.Repeat("a", 33), false},
		{"Username with spaces", "john doe", false},
		{"Username with special chars", "john-doe", false},
		{"Username with uppercase", "JohnDoe", true},
		{"Empty username", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateUsername(tt.username)
			if result != tt.expected {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.username, result, tt.expected)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	os.Unsetenv("PASSWORD_MIN_LENGTH")

	tests := []struct {
		name     string
		password string
		expected bool
	}{
		{"Valid password", "mysecurepassword123", true},
		{"Valid password minimum length", "1234567890", true},
		{"Password too short", "short", false},
		{"Empty password", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePassword(tt.password)
			if result != tt.expected {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, result, tt.expected)
			}
		})
	}
}

func TestTrimAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"Normal string", "hello world", 20, "hello world"},
		{"String with spaces", "  hello world  ", 20, "hello world"},
		{"String exceeding limit", "hello world this is too long", 10, "hello worl"},
		{"Empty string", "", 20, ""},
		{"String at limit", "hello", 5, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TrimAndLimit(tt.input, tt.limit)
			if result != tt.expected {
				t.Errorf("TrimAndLimit(%q, %d) = %q, want %q", tt.input, tt.limit, result, tt.expected)
			}
		})
	}
}

func TestTruncatePreview(t *testing.T) {
	short := "see you at the viewing"
	if got := TruncatePreview(short); got != short {
		t.Errorf("short preview changed: %q", got)
	}

	long := strings.Repeat("x", 300)
	got := TruncatePreview(long)
	if utf8.RuneCountInString(got) != PreviewLength {
		t.Errorf("truncated preview is %d runes, want %d", utf8.RuneCountInString(got), PreviewLength)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated preview missing ellipsis: %q", got)
	}

	// Multi-byte text must not be split mid-rune.
	cyrillic := strings.Repeat("д", 200)
	got = TruncatePreview(cyrillic)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune")
	}
	if utf8.RuneCountInString(got) != PreviewLength {
		t.Errorf("cyrillic preview is %d runes", utf8.RuneCountInString(got))
	}

	exact := strings.Repeat("y", PreviewLength)
	if got := TruncatePreview(exact); got != exact {
		t.Errorf("preview at exactly the limit was truncated")
	}
}

func TestMaxMessageLength(t *testing.T) {
	os.Unsetenv("MAX_MESSAGE_LENGTH")
	if MaxMessageLength() != 4000 {
		t.Errorf("default MaxMessageLength = %d", MaxMessageLength())
	}
	os.Setenv("MAX_MESSAGE_LENGTH", "100")
	if MaxMessageLength() != 100 {
		t.Errorf("env MaxMessageLength = %d", MaxMessageLength())
	}
	os.Unsetenv("MAX_MESSAGE_LENGTH")
}
