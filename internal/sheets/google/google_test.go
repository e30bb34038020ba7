package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gsheet "google.golang.org/api/sheets/v4"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	clearCredentialEnv(t)

	_, err := New(context.Background(), "sheet-id")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr string
	}{
		{"inline wins", map[string]string{"GOOGLE_SERVICE_ACCOUNT_JSON": `{"inline":true}`, "GOOGLE_SERVICE_ACCOUNT_FILE": file}, `{"inline":true}`, ""},
		{"service account file", map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": file}, `{"type":"service_account"}`, ""},
		{"application credentials", map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": file}, `{"type":"service_account"}`, ""},
		{"missing file", map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": filepath.Join(dir, "nope.json")}, "", "read service account file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCredentialEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := credentialsFromEnv()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWriteReportWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if err := c.WriteReport(context.Background(), "TusGastos 2025-02", nil); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := []struct{ in, want string }{
		{"TusGastos 2025-02", "'TusGastos 2025-02'"},
		{"Ana's 2025-02", "'Ana''s 2025-02'"},
	}
	for _, tt := range tests {
		if got := quoteSheet(tt.in); got != tt.want {
			t.Errorf("quoteSheet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHasSheet(t *testing.T) {
	ss := &gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
		{Properties: &gsheet.SheetProperties{Title: "TusGastos 2025-01"}},
		{Properties: nil},
	}}
	if !hasSheet(ss, "TusGastos 2025-01") {
		t.Error("existing sheet not found")
	}
	if hasSheet(ss, "TusGastos 2025-02") || hasSheet(nil, "x") {
		t.Error("unexpected match")
	}
}
