package util

import (
	"strings"
	"testing"
)

func TestNormalizeBDPhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Local format", input: "01712345678", want: "+8801712345678"},
		{name: "Already normalized", input: "+8801712345678", want: "+8801712345678"},
		{name: "Country code without plus", input: "8801712345678", want: "+8801712345678"},
		{name: "Without leading zero", input: "1712345678", want: "+8801712345678"},
		{name: "Spaces and dashes", input: " 017-1234 5678 ", want: "+8801712345678"},
		{name: "Not a BD number", input: "+14155550100", want: "+14155550100"},
		{name: "Too short", input: "01712", want: "01712"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeBDPhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeBDPhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeBDPhone(got); again != got {
				t.Errorf("NormalizeBDPhone is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestIsValidBDPhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"+8801712345678", true},
		{"+8801312345678", true},
		{"+8801212345678", false}, // 012 is not an operator prefix
		{"01712345678", false},
		{"+880171234567", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidBDPhone(tt.input); got != tt.want {
			t.Errorf("IsValidBDPhone(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeWebsiteURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "Empty stays empty",
			input: "   ",
			want:  "",
		},
		{
			name:  "Adds https scheme",
			input: "example.com",
			want:  "https://example.com",
		},
		{
			name:  "Drops trailing slash",
			input: "https://Example.COM/shop/",
			want:  "https://example.com/shop",
		},
		{
			name:  "Removes UTM params",
			input: "https://example.com/shop?utm_source=fb&utm_medium=social&item=42",
			want:  "https://example.com/shop?item=42",
		},
		{
			name:    "Rejects other schemes",
			input:   "ftp://example.com/file",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWebsiteURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizeWebsiteURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("NormalizeWebsiteURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Plain", input: "shop.png", want: "shop.png"},
		{name: "Spaces and parens", input: "My Photo (1).JPG", want: "My_Photo_1.jpg"},
		{name: "Path traversal", input: "../../etc/passwd", want: "passwd"},
		{name: "Windows path", input: `C:\Users\me\front.jpeg`, want: "front.jpeg"},
		{name: "Empty", input: "", want: "image"},
		{name: "Only symbols", input: "###.png", want: "image.png"},
		{name: "Long extension", input: "photo." + strings.Repeat("a", 150), want: "photo.aaaaaaaaa"},
		{name: "Long base", input: strings.Repeat("b", 120) + ".png", want: strings.Repeat("b", 96) + ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanNumericString(t *testing.T) {
	if got := CleanNumericString("+880 1712-345678"); got != "8801712345678" {
		t.Errorf("CleanNumericString = %q", got)
	}
}
