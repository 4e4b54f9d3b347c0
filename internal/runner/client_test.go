package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zerolog.Nop())
}

func TestExecuteSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Language != "python" || req.Version != "3.12" {
			t.Errorf("unexpected language %s %s", req.Language, req.Version)
		}
		if len(req.Files) != 1 || req.Files[0].Content != "print(42)" {
			t.Errorf("unexpected files %+v", req.Files)
		}
		json.NewEncoder(w).Encode(executeResponse{
			Run: stageResult{Stdout: "42\n", Output: "42\n", Code: 0},
		})
	})

	out, err := client.Execute(context.Background(), "python", "3.12", "print(42)")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "42\n" {
		t.Errorf("output = %q, want %q", out, "42\n")
	}
}

func TestExecuteRuntimeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{
			Run: stageResult{Stderr: "Traceback: ZeroDivisionError", Output: "Traceback: ZeroDivisionError", Code: 1},
		})
	})

	out, err := client.Execute(context.Background(), "python", "3.12", "1/0")
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
	if out != "Traceback: ZeroDivisionError" {
		t.Errorf("diagnostic output = %q", out)
	}
}

func TestExecuteCompileFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{
			Compile: &stageResult{Output: "main.c:1: error: expected ';'", Code: 1},
			Run:     stageResult{},
		})
	})

	out, err := client.Execute(context.Background(), "c", "10.2.0", "int main( { }")
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
	if out != "main.c:1: error: expected ';'" {
		t.Errorf("diagnostic output = %q", out)
	}
}

func TestExecuteServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown runtime", http.StatusBadRequest)
	})

	if _, err := client.Execute(context.Background(), "cobol", "1.0", "x"); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestExecuteTransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond, zerolog.Nop())
	out, err := client.Execute(context.Background(), "python", "3.12", "print(1)")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
}
