package extract

import (
	"strings"
	"testing"
)

func TestFromBytesPlainText(t *testing.T) {
	data := []byte("First paragraph.\r\n\r\nSecond   paragraph\t here.\n\n\n\nThird.")
	res, err := FromBytes("notes.txt", "text/plain", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PageCount != 0 {
		t.Fatalf("plain text has no pages, got %d", res.PageCount)
	}
	if !strings.Contains(res.Text, "First paragraph.") {
		t.Fatalf("text lost: %q", res.Text)
	}
	// paragraph boundaries survive normalization
	if got := strings.Count(res.Text, "\n\n"); got != 2 {
		t.Fatalf("expected 2 paragraph breaks, got %d in %q", got, res.Text)
	}
	if strings.Contains(res.Text, "   ") {
		t.Fatalf("space runs not collapsed: %q", res.Text)
	}
}

func TestFromBytesHTML(t *testing.T) {
	data := []byte("<!DOCTYPE html><html><body><h1>Title</h1><p>Hello &amp; goodbye</p></body></html>")
	res, err := FromBytes("page.html", "", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.Text, "<") {
		t.Fatalf("tags not stripped: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Hello & goodbye") {
		t.Fatalf("entities not decoded: %q", res.Text)
	}
}

func TestFromBytesEmpty(t *testing.T) {
	if _, err := FromBytes("x.txt", "text/plain", nil); err == nil {
		t.Fatalf("empty file must error")
	}
}

func TestFromBytesFakePDF(t *testing.T) {
	// claims pdf by extension but lacks the header
	if _, err := FromBytes("doc.pdf", "application/pdf", []byte("not a pdf at all")); err == nil {
		t.Fatalf("expected error for pdf without header")
	}
	// has the header but is not a parseable document
	if _, err := FromBytes("doc.pdf", "application/pdf", []byte("%PDF-1.4 garbage")); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestFromBytesBinaryRejected(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0xFF, 0x00, 0x10}
	if _, err := FromBytes("blob.bin", "application/octet-stream", data); err == nil {
		t.Fatalf("binary blob must be rejected")
	}
}
