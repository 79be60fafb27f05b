package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ServerURL:         "https://comments.example.com",
		PageURL:           "https://blog.example.com/posts/hello",
		PageID:            "/hello",
		HideDeleted:       true,
		AutoInit:          true,
		LogDir:            "/tmp/comentario/log",
		LogLevel:          "debug",
		TokenPath:         "/tmp/comentario/token.toml",
		RequestsPerSecond: 2.5,
		Burst:             4,
		Theme:             ThemeConfig{Accent: "#ff8800"},
	}

	for _, format := range []Format{FormatTOML, FormatYAML} {
		var buf bytes.Buffer
		m := &Manager{Format: format}

		if err := m.Write(&buf, original); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := m.Read(&buf, &Config{})
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}

		if *got != *original {
			t.Errorf("format %d: round trip = %+v, want %+v", format, got, original)
		}
	}
}

func TestManager_ReadKeepsDefaults(t *testing.T) {
	m := &Manager{Format: FormatYAML}
	got, err := m.Read(strings.NewReader("server_url: https://c.example.com\n"), NewConfig("/base"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ServerURL != "https://c.example.com" {
		t.Errorf("ServerURL = %q", got.ServerURL)
	}
	if got.TokenPath != filepath.Join("/base", "token.toml") || !got.AutoInit {
		t.Errorf("defaults lost: %+v", got)
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"config.toml": FormatTOML,
		"config.yaml": FormatYAML,
		"CONFIG.YML":  FormatYAML,
		"config":      FormatTOML,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %d, want %d", path, got, want)
		}
	}
}

func TestInitAndReadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewConfig(t.TempDir())
	cfg.ServerURL = "https://comments.example.com"

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := Init(path, cfg); err == nil {
		t.Error("second Init() should refuse to overwrite")
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.ServerURL != cfg.ServerURL {
		t.Errorf("ServerURL = %q, want %q", got.ServerURL, cfg.ServerURL)
	}
}

func TestReadFromFileMissing(t *testing.T) {
	got, err := ReadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if !got.AutoInit {
		t.Error("missing file should yield defaults")
	}
}

func TestReadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("server_url = ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFromFile(path); err == nil {
		t.Error("ReadFromFile() should fail on bad TOML")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"COMENTARIO_SERVER_URL":   "https://env.example.com",
		"COMENTARIO_HIDE_DELETED": "true",
		"COMENTARIO_AUTO_INIT":    "false",
		"COMENTARIO_RATE_RPS":     "1.5",
		"COMENTARIO_RATE_BURST":   "3",
		"COMENTARIO_PAGE_ID":      "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig("/base")
	cfg.PageID = "/keep"
	used, err := ApplyEnv(cfg, lookup)
	if err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if !used {
		t.Error("ApplyEnv() should report overrides")
	}
	if cfg.ServerURL != "https://env.example.com" || !cfg.HideDeleted || cfg.AutoInit {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RequestsPerSecond != 1.5 || cfg.Burst != 3 {
		t.Errorf("rate = %v/%d, want 1.5/3", cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.PageID != "/keep" {
		t.Error("empty variables should not override")
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "COMENTARIO_PLAIN" {
			return "sometimes", true
		}
		return "", false
	}
	if _, err := ApplyEnv(NewConfig("/base"), lookup); err == nil {
		t.Error("ApplyEnv() should reject a non-boolean")
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		name    string
		pageURL string
		pageID  string
		want    Page
		wantErr bool
	}{
		{
			name:    "path and fragment",
			pageURL: "https://blog.example.com/posts/hello#comentario-abc",
			want:    Page{Domain: "blog.example.com", Path: "/posts/hello", Fragment: "comentario-abc"},
		},
		{
			name:    "host with port and no path",
			pageURL: "http://localhost:8080",
			want:    Page{Domain: "localhost:8080", Path: "/"},
		},
		{
			name:    "page id override",
			pageURL: "https://blog.example.com/posts/hello?utm=x",
			pageID:  "/canonical",
			want:    Page{Domain: "blog.example.com", Path: "/canonical"},
		},
		{name: "missing", pageURL: "", wantErr: true},
		{name: "relative", pageURL: "/posts/hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{PageURL: tt.pageURL, PageID: tt.pageID}
			got, err := cfg.Page()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Page() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Page() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{ServerURL: "https://c.example.com", PageURL: "https://blog.example.com/"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.ServerURL = "c.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject a server URL without scheme")
	}
}
