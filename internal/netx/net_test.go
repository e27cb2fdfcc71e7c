package netx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDownloadPresigned(t *testing.T) {
	t.Run("success 200 OK", func(t *testing.T) {
		var gotAuth, gotMethod string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte("hello, s3"))
		}))
		defer ts.Close()

		var buf bytes.Buffer
		n, err := DownloadPresigned(context.Background(), ts.Client(), ts.URL+"/obj?X-Amz-Signature=x", &buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Fatalf("method = %s, want GET", gotMethod)
		}
		if gotAuth != "" {
			t.Fatalf("no auth header expected, got %q", gotAuth)
		}
		if n != 9 || buf.String() != "hello, s3" {
			t.Fatalf("got %d %q", n, buf.String())
		}
	})

	t.Run("non-200 returns error with body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Request has expired"))
		}))
		defer ts.Close()

		var buf bytes.Buffer
		_, err := DownloadPresigned(context.Background(), ts.Client(), ts.URL, &buf)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "expired") {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Fatal("nothing should be written on failure")
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := DownloadPresigned(context.Background(), http.DefaultClient, "://bad", &bytes.Buffer{}); err == nil {
			t.Fatal("expected error for malformed url")
		}
	})
}
