package install

import (
	"context"
	"testing"

	"github.com/sargunv/ctrtool/lib/extern"
)

func TestInstallSingleContentLayout(t *testing.T) {
	store := extern.NewMemStore()
	src, err := store.Create("/source.app")
	if err != nil {
		t.Fatalf("Create source: %v", err)
	}
	plain := []byte("installed content payload")
	if _, err := src.WriteAt(plain, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	res, err := Install(context.Background(), Options{
		Store:   store,
		Mount:   store,
		TitleID: 0x0004000000030200,
		Contents: []ContentInput{
			{ContentID: 0, Index: 0, Src: src, Size: int64(len(plain)), Plain: true},
		},
		SaveDataSize:  0x2000,
		TicketBuf:     []byte("fake-ticket-bytes"),
		TitleDBImage:  "dbs/title.db",
		TicketDBImage: "dbs/ticket.db",
		TitleDBDrive:  "T:",
		TicketDBDrive: "K:",
		Cipher:        extern.StdAESCipher{},
		NewHash:       func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if len(res.TMD.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(res.TMD.Chunks))
	}

	layout := Layout{TitleID: 0x0004000000030200}
	out := make([]byte, len(plain))
	f, err := store.Open(layout.ContentPath(0, false))
	if err != nil {
		t.Fatalf("Open installed content: %v", err)
	}
	if _, err := f.ReadAt(out, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(out) != string(plain) {
		t.Fatalf("content mismatch: got %q want %q", out, plain)
	}

	if _, err := store.Stat(layout.TmdPath()); err != nil {
		t.Fatalf("expected tmd at %s: %v", layout.TmdPath(), err)
	}
	if _, err := store.Stat(layout.CmdPath(res.Entry.CmdContentID)); err != nil {
		t.Fatalf("expected cmd file: %v", err)
	}
	saveInfo, err := store.Stat(layout.SaveDataPath(false, 0))
	if err != nil {
		t.Fatalf("expected savedata file: %v", err)
	}
	if saveInfo.Size != 0x2000 {
		t.Fatalf("unexpected savedata size %d", saveInfo.Size)
	}
}

func TestInstallInsertsTitleAndTicketRecords(t *testing.T) {
	store := extern.NewMemStore()
	src, _ := store.Create("/source.app")
	plain := []byte("content")
	src.WriteAt(plain, 0)

	_, err := Install(context.Background(), Options{
		Store:   store,
		Mount:   store,
		TitleID: 0x0004000000030200,
		Contents: []ContentInput{
			{ContentID: 0, Index: 0, Src: src, Size: int64(len(plain)), Plain: true},
		},
		TicketBuf:     []byte("ticket"),
		TitleDBImage:  "dbs/title.db",
		TicketDBImage: "dbs/ticket.db",
		TitleDBDrive:  "T:",
		TicketDBDrive: "K:",
		Cipher:        extern.StdAESCipher{},
		NewHash:       func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := store.Stat("dbs/title.db/entries.bin"); err != nil {
		t.Fatalf("expected title.db entry record: %v", err)
	}
	if _, err := store.Stat("dbs/ticket.db/tickets.bin"); err != nil {
		t.Fatalf("expected ticket.db record: %v", err)
	}

	// the scoped mounts must not leak: T:/K: should be unmounted again,
	// so a fresh mount acquisition sees no prior alias.
	prior, err := store.Mount("T:", "probe")
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if prior != "" {
		t.Fatalf("expected T: to be unmounted after install, got prior=%q", prior)
	}
	store.Restore("T:", "")
}

func TestCetkPath(t *testing.T) {
	if got := CetkPath("/cdn/0004000000030200/00000000.tmd"); got != "/cdn/0004000000030200/00000000.cetk" {
		t.Fatalf("unexpected cetk path: %s", got)
	}
}
