package msgcat

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestEmbeddedDefaultsRenderEveryKey(t *testing.T) {
    c, err := New("")
    if err != nil { t.Fatalf("New: %v", err) }
    data := map[string]any{"Bot": "bot", "Board": "1 | 2 | 3", "Turn": "X", "Winner": "O", "Count": 2, "Moves": 5}
    keys := []string{
        KeyHelp, KeyStartOK, KeyStartActive, KeyMoveTurn, KeyMoveWon, KeyMoveDrawn,
        KeyNoGame, KeyNotYourTurn, KeyInvalidMove, KeyBoardShow, KeyBoardFinished,
        KeyHistoryHeader, KeyHistoryWon, KeyHistoryDrawn, KeyHistoryEmpty, KeyErrorGeneric,
    }
    for _, k := range keys {
        s, err := c.Render(k, data)
        if err != nil { t.Fatalf("Render(%s): %v", k, err) }
        if strings.TrimSpace(s) == "" { t.Fatalf("Render(%s) empty", k) }
    }
    s, _ := c.Render(KeyMoveWon, data)
    if !strings.Contains(s, "Player O wins") || !strings.Contains(s, "1 | 2 | 3") {
        t.Fatalf("unexpected win text: %q", s)
    }
}

func TestMissingDataIsAnError(t *testing.T) {
    c, err := New("")
    if err != nil { t.Fatalf("New: %v", err) }
    if _, err := c.Render(KeyMoveTurn, map[string]any{"Board": "b"}); err == nil {
        t.Fatalf("expected missingkey error")
    }
    if got := c.Text("nope.nothing", nil); got != "nope.nothing" {
        t.Fatalf("Text fallback = %q", got)
    }
}

func TestOverrideDir(t *testing.T) {
    dir := t.TempDir()
    if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("error:\n  generic: \"عفواً، حدث خطأ\"\n"), 0o644); err != nil {
        t.Fatal(err)
    }
    c, err := New(dir)
    if err != nil { t.Fatalf("New: %v", err) }
    if got := c.Text(KeyErrorGeneric, nil); got != "عفواً، حدث خطأ" {
        t.Fatalf("override not applied: %q", got)
    }
    if _, err := c.Render(KeyHelp, map[string]any{"Bot": "bot"}); err != nil {
        t.Fatalf("default key lost after override: %v", err)
    }
}

func TestOverrideDuplicateKeysRejected(t *testing.T) {
    dir := t.TempDir()
    body := []byte("help: \"x\"\n")
    _ = os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644)
    _ = os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644)
    if _, err := New(dir); err == nil {
        t.Fatalf("expected duplicate key error")
    }
}

func TestNonStringLeafRejected(t *testing.T) {
    dir := t.TempDir()
    _ = os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("help: 3\n"), 0o644)
    if _, err := New(dir); err == nil {
        t.Fatalf("expected unsupported value error")
    }
}
