package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/types"
)

func TestCreateAndLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.Create("c1", 4217, "/bundles/c1"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	record, err := s.Load("c1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if record.OCIVersion != types.OCIVersion {
		t.Errorf("OCIVersion = %q, want %q", record.OCIVersion, types.OCIVersion)
	}
	if record.ID != "c1" {
		t.Errorf("ID = %q, want c1", record.ID)
	}
	if record.Status != types.StatusCreated {
		t.Errorf("Status = %q, want created", record.Status)
	}
	if record.Pid != 0 {
		t.Errorf("Pid = %d, want 0", record.Pid)
	}
	if record.Bundle != "/bundles/c1" {
		t.Errorf("Bundle = %q", record.Bundle)
	}
	if record.VMID != 4217 {
		t.Errorf("VMID = %d, want 4217", record.VMID)
	}
	if record.CreatedAt == 0 {
		t.Error("CreatedAt is zero")
	}
}

func TestUpdateOverwritesStatusAndPid(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.Create("c1", 100, "/bundles/c1"); err != nil {
		t.Fatal(err)
	}

	if err := s.Update("c1", types.StatusRunning, 1234); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	record, err := s.Load("c1")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != types.StatusRunning || record.Pid != 1234 {
		t.Errorf("after update: status=%q pid=%d, want running/1234", record.Status, record.Pid)
	}

	// The rest of the record survives the rewrite
	if record.ID != "c1" || record.VMID != 100 || record.Bundle != "/bundles/c1" {
		t.Errorf("update clobbered unrelated fields: %+v", record)
	}

	if err := s.Update("c1", types.StatusStopped, 0); err != nil {
		t.Fatal(err)
	}
	record, _ = s.Load("c1")
	if record.Status != types.StatusStopped || record.Pid != 0 {
		t.Errorf("after stop: status=%q pid=%d, want stopped/0", record.Status, record.Pid)
	}
}

func TestLoadMissingIsError(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.Load("ghost")
	if !errors.Is(err, errdefs.ErrStateMissing) {
		t.Errorf("Load(ghost) error = %v, want ErrStateMissing", err)
	}
}

func TestUpdateMissingIsError(t *testing.T) {
	s := NewStore(t.TempDir())

	err := s.Update("ghost", types.StatusRunning, 1)
	if !errors.Is(err, errdefs.ErrStateMissing) {
		t.Errorf("Update(ghost) error = %v, want ErrStateMissing", err)
	}
}

func TestExists(t *testing.T) {
	s := NewStore(t.TempDir())

	if s.Exists("c1") {
		t.Error("Exists() = true before create")
	}
	if err := s.Create("c1", 100, "/b"); err != nil {
		t.Fatal(err)
	}
	if !s.Exists("c1") {
		t.Error("Exists() = false after create")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.Create("c1", 100, "/b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("c1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Exists("c1") {
		t.Error("record still exists after delete")
	}
	if err := s.Delete("c1"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestCorruptStateIsInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if err := os.MkdirAll(filepath.Join(dir, "c1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "c1", StateFile), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load("c1")
	if !errors.Is(err, errdefs.ErrInvalidStateFormat) {
		t.Errorf("Load() error = %v, want ErrInvalidStateFormat", err)
	}
}

func TestStateFileLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	if err := s.Create("c1", 4217, "/bundles/c1"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "c1", StateFile))
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"ociVersion", "id", "status", "pid", "bundle", "vmid", "created_at"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("state.json missing key %q", key)
		}
	}
}
