package extern

import (
	"testing"
)

var (
	_ Storage       = (*OSStore)(nil)
	_ MountSwitcher = (*OSStore)(nil)
)

func TestOSStoreCreateOpenRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s := NewOSStore(dir)

	f, err := s.Create("A:/title/test.bin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.WriteAt([]byte("hello"), 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	f.Close()

	info, err := s.Stat("A:/title/test.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 5 {
		t.Fatalf("expected size 5, got %d", info.Size)
	}

	f2, err := s.Open("A:/title/test.bin")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f2.Close()
	buf := make([]byte, 5)
	if _, err := f2.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q", buf)
	}
}

func TestOSStoreMountRestore(t *testing.T) {
	dir := t.TempDir()
	s := NewOSStore(dir)

	prior, err := s.Mount("T:", "dbs/ticket.db")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if prior != "" {
		t.Fatalf("expected empty prior mount, got %q", prior)
	}

	f, err := s.Create("T:/tickets.bin")
	if err != nil {
		t.Fatalf("Create under mount: %v", err)
	}
	f.Close()

	if err := s.Restore("T:", prior); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := s.Stat("T:/tickets.bin"); err == nil {
		t.Fatalf("expected T: to no longer resolve into the mounted image after restore")
	}
}
