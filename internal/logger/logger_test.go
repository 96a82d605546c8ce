package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	if expected := filepath.Join(realTmpDir, defaultLogDirName); realGot != expected {
		t.Fatalf("unexpected log dir: got=%s expected=%s", realGot, expected)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugWritesToConsoleOnly(t *testing.T) {
	tmpDir := t.TempDir()
	var buf bytes.Buffer
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log", Console: &buf})
	log.Debug("debug-log-test")
	_ = log.Sync()

	if !strings.Contains(buf.String(), "debug-log-test") {
		t.Fatalf("expected console output, got=%q", buf.String())
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestExplicitLevelOverridesMode(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", Options{Level: "warn", Console: &buf})
	log.Info("hidden-info")
	log.Warn("visible-warn")
	_ = log.Sync()

	if strings.Contains(buf.String(), "hidden-info") {
		t.Fatalf("info line should be filtered at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "visible-warn") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}
