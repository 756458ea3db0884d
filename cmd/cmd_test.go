package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/balsim/btransfer-desktop/internal/health"
)

func healthServer(code int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
}

func TestRunHealth(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantOut string
		wantErr bool
	}{
		{"healthy", http.StatusOK, `{"status":"healthy","version":"2.3.2"}`, "Server Status: healthy\nVersion: 2.3.2\n", false},
		{"unhealthy", http.StatusServiceUnavailable, `{"status":"unhealthy","version":"2.3.2"}`, "Server Status: unhealthy\nVersion: 2.3.2\n", true},
		{"broken", http.StatusInternalServerError, `{"error":"Health check failed"}`, "Server not responding\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := healthServer(tt.code, tt.body)
			defer srv.Close()

			var out bytes.Buffer
			err := runHealth(context.Background(), &out, health.NewClient(srv.URL, time.Second), false)
			if (err != nil) != tt.wantErr {
				t.Errorf("runHealth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if out.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}
		})
	}
}

func TestHealthCmdJSON(t *testing.T) {
	srv := healthServer(http.StatusOK, `{"status":"healthy","version":"2.3.2","checks":{"uploads_directory":true}}`)
	defer srv.Close()

	cmd := CreateHealthCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--url", srv.URL, "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}

	var got health.Status
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.Status != "healthy" || !got.Checks["uploads_directory"] {
		t.Errorf("unexpected report %+v", got)
	}
}

func TestAboutCmd(t *testing.T) {
	cmd := CreateAboutCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if !strings.HasPrefix(out.String(), "B-Transfer v2.3.0\n") {
		t.Errorf("output = %q", out.String())
	}

	cmd = CreateAboutCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["message"] != "B-Transfer v2.3.0" {
		t.Errorf("message = %v", got["message"])
	}
	if _, ok := got["build"]; !ok {
		t.Error("build info missing")
	}
}
