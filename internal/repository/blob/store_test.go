package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPut_ContentAddressedLayout(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "")

	data := []byte("%PDF-1.4 fake resume")
	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])

	sha, url, err := s.Put(data, "pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if sha != want {
		t.Fatalf("sha = %s, want %s", sha, want)
	}
	if url != "/files/"+want+"/"+want+".pdf" {
		t.Fatalf("url = %s", url)
	}

	path := filepath.Join(dir, want, want+".pdf")
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("blob not written: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("blob contents differ")
	}
}

func TestPut_Idempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, "")

	data := []byte("same bytes twice")
	sha1, url1, err := s.Put(data, "txt")
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	sha2, url2, err := s.Put(data, "txt")
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if sha1 != sha2 || url1 != url2 {
		t.Fatalf("re-put changed address: (%s,%s) vs (%s,%s)", sha1, url1, sha2, url2)
	}
}

func TestPut_NoExtension(t *testing.T) {
	s := New(t.TempDir(), "")
	sha, url, err := s.Put([]byte("raw"), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if strings.Contains(url, ".") {
		t.Fatalf("url should have no extension: %s", url)
	}
	if !strings.HasSuffix(url, "/"+sha) {
		t.Fatalf("url = %s", url)
	}
}

func TestPut_BaseURL(t *testing.T) {
	s := New(t.TempDir(), "https://cdn.example.com/blobs")
	sha, url, err := s.Put([]byte("hosted"), "pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := "https://cdn.example.com/blobs/" + sha + "/" + sha + ".pdf"
	if url != want {
		t.Fatalf("url = %s, want %s", url, want)
	}
}
