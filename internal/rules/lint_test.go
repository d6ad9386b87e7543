package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const goodRules = `rules_version = '2';
service cloud.firestore {
  match /databases/{database}/documents {
    // Default deny.
    match /{document=**} {
      allow read, write: if false;
    }

    match /catalog/{id} {
      allow read: if true;
    }

    match /listings/{id} {
      allow read: if resource.data.status == 'active' || request.auth.uid == resource.data.ownerId;
      allow create: if request.auth != null;
    }
  }
}
`

func lintString(src string) []Finding {
	return Lint([]byte(src), DefaultPolicy())
}

func findingsFor(findings []Finding, rule string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestLint_GoodRules(t *testing.T) {
	findings := lintString(goodRules)
	if HasErrors(findings) {
		t.Fatalf("unexpected errors: %v", findings)
	}
	// The single "if true" read is reported as a warning.
	if got := findingsFor(findings, RuleUnconditional); len(got) != 1 || got[0].Severity != SeverityWarning || got[0].Line != 10 {
		t.Errorf("unconditional findings = %v", got)
	}
}

func TestLint_MissingDefaultDeny(t *testing.T) {
	src := strings.Replace(goodRules, "allow read, write: if false;", "allow read: if false;", 1)
	findings := lintString(src)
	if !HasErrors(findings) {
		t.Fatal("expected an error")
	}
	got := findingsFor(findings, RuleDefaultDeny)
	if len(got) != 1 || got[0].Line != 5 {
		t.Errorf("default-deny findings = %v", got)
	}
}

func TestLint_DefaultDenyOnlyInComment(t *testing.T) {
	src := `rules_version = '2';
service cloud.firestore {
  // match /{document=**} { allow read, write: if false; }
}
`
	if got := findingsFor(lintString(src), RuleDefaultDeny); len(got) != 1 {
		t.Errorf("commented-out default deny accepted: %v", got)
	}
}

func TestLint_Version(t *testing.T) {
	src := strings.Replace(goodRules, "rules_version = '2';", "rules_version = '1';", 1)
	if got := findingsFor(lintString(src), RuleVersion); len(got) != 1 {
		t.Errorf("version findings = %v", got)
	}
	src = strings.Replace(goodRules, "rules_version = '2';", `rules_version = "2";`, 1)
	if got := findingsFor(lintString(src), RuleVersion); len(got) != 0 {
		t.Errorf("double-quoted version rejected: %v", got)
	}
}

func TestLint_Braces(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unclosed", goodRules + "match /x/{id} {\n", 19},
		{"extra close", goodRules + "}\n", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findingsFor(lintString(tt.src), RuleBraces)
			if len(got) != 1 || got[0].Line != tt.line {
				t.Errorf("brace findings = %v, want one on line %d", got, tt.line)
			}
		})
	}
}

func TestLint_BracesInStringsAndCommentsIgnored(t *testing.T) {
	src := goodRules + "// stray } in a comment\n/* and { here */\n"
	src = strings.Replace(src, "'active'", "'act{ive'", 1)
	if got := findingsFor(lintString(src), RuleBraces); len(got) != 0 {
		t.Errorf("brace findings = %v", got)
	}
}

func TestLint_TooManyUnconditionalAllows(t *testing.T) {
	src := strings.Replace(goodRules, "allow create: if request.auth != null;",
		"allow create: if true;\n      allow update;\n      allow delete:   if   true ;", 1)
	findings := findingsFor(lintString(src), RuleUnconditional)
	if len(findings) != 4 {
		t.Fatalf("unconditional findings = %v, want 4", findings)
	}
	errs := 0
	for _, f := range findings {
		if f.Severity == SeverityError {
			errs++
		}
	}
	if errs != 2 {
		t.Errorf("%d errors, want the 2 beyond the threshold", errs)
	}
}

func TestLint_ProtectedCollectionWrites(t *testing.T) {
	src := strings.Replace(goodRules, "allow read: if true;",
		"allow read: if true;\n      allow write: if request.auth.token.admin == true;\n      allow delete: if false;", 1)
	got := findingsFor(lintString(src), RuleProtectedWrites)
	if len(got) != 1 || got[0].Line != 11 {
		t.Errorf("protected findings = %v, want one on line 11", got)
	}

	p := DefaultPolicy()
	p.ProtectedCollections = []string{"listings"}
	got = findingsFor(Lint([]byte(goodRules), p), RuleProtectedWrites)
	if len(got) != 1 || !strings.Contains(got[0].Message, "create") {
		t.Errorf("custom protected findings = %v", got)
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	os.WriteFile(path, []byte("maxUnconditionalAllows: 5\n"), 0o644)

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}
	if p.MaxUnconditionalAllows != 5 {
		t.Errorf("MaxUnconditionalAllows = %d", p.MaxUnconditionalAllows)
	}
	if len(p.ProtectedCollections) != 2 {
		t.Errorf("ProtectedCollections default lost: %v", p.ProtectedCollections)
	}

	os.WriteFile(path, []byte("maxUnconditionalAllows: -1\n"), 0o644)
	if _, err := LoadPolicy(path); err == nil {
		t.Error("negative threshold accepted")
	}
	if _, err := LoadPolicy(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestWatch_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "firestore.rules")
	os.WriteFile(path, []byte(goodRules), 0o644)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var calls int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func() {
			if atomic.AddInt32(&calls, 1) == 1 {
				cancel()
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644)
	os.WriteFile(path, []byte(goodRules+"\n"), 0o644)

	if err := <-done; err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if atomic.LoadInt32(&calls) < 1 {
		t.Error("onChange never called")
	}
}
