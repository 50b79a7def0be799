package submission

import (
	"errors"
	"testing"
)

func TestCheckOrigin(t *testing.T) {
	cases := []struct {
		name      string
		allowList string
		origin    string
		allowed   bool
	}{
		{"no allow-list", "", "https://evil.example", true},
		{"blank allow-list", " , ", "https://evil.example", true},
		{"no origin header", "site.example", "", true},
		{"wildcard", "site.example, *", "https://evil.example", true},
		{"hostname match", "site.example", "https://site.example", true},
		{"hostname match ignores port", "site.example", "http://site.example:8080", true},
		{"full origin match", "https://site.example", "https://site.example", true},
		{"trailing slash in entry", "https://site.example/", "https://site.example", true},
		{"referer with path", "site.example", "https://site.example/contact?x=1", true},
		{"case insensitive", "Site.Example", "https://site.example", true},
		{"scheme mismatch", "https://site.example", "http://site.example:8080", false},
		{"other host", "site.example", "https://evil.example", false},
		{"subdomain is not implied", "site.example", "https://www.site.example", false},
		{"unparseable origin", "site.example", "null", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckOrigin(tc.allowList, tc.origin)
			if tc.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allowed {
				var originErr *OriginError
				if !errors.As(err, &originErr) {
					t.Fatalf("expected OriginError, got %v", err)
				}
				if originErr.Origin != tc.origin {
					t.Fatalf("expected origin %q in error, got %q", tc.origin, originErr.Origin)
				}
			}
		})
	}
}

func TestOriginErrorMessage(t *testing.T) {
	err := &OriginError{Origin: "https://evil.example"}
	if err.Error() != "Origin 'https://evil.example' not allowed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
