package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oarkflow/tcloud-auth/pkg/models"
)

func pageHandler(prefixValue string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><meta name="tcloud-prefix" content=%q></head><body></body></html>`, prefixValue)
	}
}

func TestResolvePrefix(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "present",
			handler: pageHandler("tc"),
			want:    "/tc/",
		},
		{
			name:    "empty",
			handler: pageHandler(""),
			want:    "/",
		},
		{
			name: "absent",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<!DOCTYPE html><html><head></head><body></body></html>`)
			},
			want: "/",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: "/",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c, err := New(srv.URL + "/register")
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := c.ResolvePrefix(context.Background()); got != tc.want {
				t.Errorf("ResolvePrefix() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolvePrefixUnreachable(t *testing.T) {
	c, err := New("http://127.0.0.1:1/register")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.ResolvePrefix(context.Background()); got != "/" {
		t.Errorf("unreachable server should fall back to /, got %q", got)
	}
}

func TestResolvePrefixIsSticky(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		pageHandler("tc")(w, r)
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/register")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.ResolvePrefix(context.Background())
	c.ResolvePrefix(context.Background())
	if calls != 1 {
		t.Errorf("page fetched %d times, want 1", calls)
	}
}

func TestRegisterSuccess(t *testing.T) {
	var gotPayload map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/register", pageHandler("tc"))
	mux.HandleFunc("/tc/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"totp_url": "otpauth://totp/Tiny%20Cloud:alice?secret=ABC"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL + "/register")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	enrollment, err := c.Register(context.Background(), map[string]any{
		"username": "alice",
		"password": "correct horse",
		"token":    "invite-1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if enrollment.TOTPURL == "" {
		t.Error("expected a totp_url")
	}
	if gotPayload["username"] != "alice" {
		t.Errorf("payload username = %v", gotPayload["username"])
	}
}

func TestRegisterAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", pageHandler(""))
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error": models.ErrTagToken,
			"msg":   "invalid or expired registration token",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL + "/register")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Register(context.Background(), map[string]any{"username": "alice"})
	if err == nil {
		t.Fatal("expected an error")
	}

	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is %T, want *models.APIError", err)
	}
	if apiErr.Tag != models.ErrTagToken {
		t.Errorf("tag = %q, want %q", apiErr.Tag, models.ErrTagToken)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.Status)
	}
}

func TestRegisterMalformedErrorBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", pageHandler(""))
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>gateway timeout</html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL + "/register")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Register(context.Background(), map[string]any{"username": "alice"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		t.Error("a non-JSON error body should not surface as *models.APIError")
	}
}

func TestLoginDecodesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", pageHandler(""))
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "session-token"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL + "/register")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, err := c.Login(context.Background(), "alice", "correct horse", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "session-token" {
		t.Errorf("token = %q", token)
	}
}
