package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/arjunr/dupfind/internal/types"
)

func TestWriteGroupsToFile(t *testing.T) {
	groups := []types.DuplicateGroup{
		{Paths: []string{"/a/1", "/a/2"}, Size: 42},
	}
	out := filepath.Join(t.TempDir(), "out.json")

	if err := writeGroups(groups, out); err != nil {
		t.Fatalf("writeGroups: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var decoded []duplicateGroupJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d groups, want 1", len(decoded))
	}
	if decoded[0].ElementSize != 42 {
		t.Errorf("ElementSize = %d, want 42", decoded[0].ElementSize)
	}
	if len(decoded[0].Duplicates) != 2 {
		t.Errorf("Duplicates = %v, want 2 entries", decoded[0].Duplicates)
	}
}

func TestWriteGroupsEmptySliceProducesEmptyArray(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	if err := writeGroups(nil, out); err != nil {
		t.Fatalf("writeGroups: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded []duplicateGroupJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected an empty array, got %v", decoded)
	}
}

func TestWriteGroupsEscapesNonUTF8Paths(t *testing.T) {
	groups := []types.DuplicateGroup{
		{Paths: []string{"/bad/\xff\xfe"}, Size: 1},
	}
	out := filepath.Join(t.TempDir(), "out.json")
	if err := writeGroups(groups, out); err != nil {
		t.Fatalf("writeGroups: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// A raw invalid-UTF-8 byte sequence must never reach the JSON output
	// unescaped; json.Marshal would otherwise fail or replace the bytes.
	var decoded []duplicateGroupJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestNewFindCmdRequiresPath(t *testing.T) {
	cmd := newFindCmd()
	cmd.SetArgs([]string{"--no-interactive"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when --path is not given")
	}
}
