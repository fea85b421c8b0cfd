package guard_test

import (
	"strings"
	"testing"

	"github.com/HendryAvila/semantic-hooks/internal/guard"
)

func TestPlainText(t *testing.T) {
	src := "# Title\n\nSome **bold** text and `code`.\n\n```go\nfmt.Println()\n```\n\n<div>hidden</div>\n"
	got := guard.PlainText(src)

	for _, want := range []string{"Title", "Some bold text and code.", "fmt.Println()"} {
		if !strings.Contains(got, want) {
			t.Errorf("PlainText() missing %q:\n%s", want, got)
		}
	}
	for _, bad := range []string{"**", "#", "```", "<div>", "hidden"} {
		if strings.Contains(got, bad) {
			t.Errorf("PlainText() kept %q:\n%s", bad, got)
		}
	}
}

func TestPlainText_Plain(t *testing.T) {
	if got := guard.PlainText("just words here"); got != "just words here" {
		t.Errorf("PlainText() = %q", got)
	}
}
