package storage

import (
	"strings"
	"testing"
)

func TestSubmissionKey(t *testing.T) {
	key, err := SubmissionKey(7, 42, "Report.PDF")
	if err != nil {
		t.Fatalf("SubmissionKey: %v", err)
	}
	if !strings.HasPrefix(key, "submissions/7/42/") {
		t.Errorf("key = %q, want submissions/7/42/ prefix", key)
	}
	if !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key = %q, want lowercased .pdf suffix", key)
	}

	// Случайный суффикс: два ключа для одного файла не совпадают.
	other, err := SubmissionKey(7, 42, "Report.PDF")
	if err != nil {
		t.Fatalf("SubmissionKey: %v", err)
	}
	if key == other {
		t.Error("two keys for the same file are identical")
	}
}

func TestGetPublicURL(t *testing.T) {
	u := &cloudflareR2Uploader{publicBaseURL: "https://files.example.com/"}

	got := u.GetPublicURL("submissions/7/42/abcd.zip")
	want := "https://files.example.com/submissions/7/42/abcd.zip"
	if got != want {
		t.Errorf("url = %q, want %q", got, want)
	}

	if got := u.GetPublicURL(""); got != "" {
		t.Errorf("empty key url = %q, want empty", got)
	}
}
