package install

import (
	"fmt"

	"github.com/sargunv/ctrtool/lib/extern"
)

// dbSession is the scoped acquisition of a mounted database image (§9
// design note "mutable shared database state"): Mount swaps drive to
// point at imagePath, and Release restores whatever it pointed at before,
// unconditionally. Callers pair acquireDB with an immediate defer so
// the mount is always restored, even if an insert fails partway through.
type dbSession struct {
	sw    extern.MountSwitcher
	drive string
	prior string
}

// acquireDB mounts imagePath at drive and returns a session whose Release
// restores the prior mount.
func acquireDB(sw extern.MountSwitcher, drive, imagePath string) (*dbSession, error) {
	prior, err := sw.Mount(drive, imagePath)
	if err != nil {
		return nil, fmt.Errorf("install: mounting %s at %s: %w", imagePath, drive, err)
	}
	return &dbSession{sw: sw, drive: drive, prior: prior}, nil
}

// Release restores the drive's prior mount. Safe to call from a defer
// regardless of how the scope was exited.
func (s *dbSession) Release() error {
	return s.sw.Restore(s.drive, s.prior)
}

// appendRecord appends buf as a record to the flat record file at
// imagePath/name, creating both as needed. The title.db/ticket.db on-disk
// layouts are NAND partition formats outside this toolkit's domain (§1
// auxiliary-format-helpers); while mounted, this toolkit models each
// image as a directory holding a simple append-only record file, which is
// enough to exercise the scoped-mount acquisition/release contract end to
// end without an on-disk NAND partition codec.
func appendRecord(store extern.Storage, imagePath, name string, buf []byte) error {
	path := imagePath + "/" + name
	f, err := store.Open(path)
	if err != nil {
		f, err = store.Create(path)
		if err != nil {
			return fmt.Errorf("install: creating %s: %w", path, err)
		}
	}
	defer f.Close()
	size, err := f.Size()
	if err != nil {
		return fmt.Errorf("install: stat %s: %w", path, err)
	}
	if _, err := f.WriteAt(buf, size); err != nil {
		return fmt.Errorf("install: appending to %s: %w", path, err)
	}
	return nil
}

// titleDBRecordName is the flat record file holding every inserted
// TitleInfoEntry, relative to the mounted title.db drive.
const titleDBRecordName = "entries.bin"

// ticketDBRecordName is the flat record file holding every inserted
// ticket, relative to the mounted ticket.db drive.
const ticketDBRecordName = "tickets.bin"

// InsertTitleEntry mounts titleDBImage at drive, appends entry's marshaled
// record, and restores the prior mount (§4.8 "switches the ambient
// filesystem mount to dbs/title.db, inserts the TitleInfoEntry... restores
// the prior mount").
func InsertTitleEntry(sw extern.MountSwitcher, store extern.Storage, drive, titleDBImage string, buf []byte) error {
	sess, err := acquireDB(sw, drive, titleDBImage)
	if err != nil {
		return err
	}
	defer sess.Release()
	return appendRecord(store, titleDBImage, titleDBRecordName, buf)
}

// InsertTicket mounts ticketDBImage at drive, appends the ticket bytes,
// and restores the prior mount (§4.8 "switches mount to dbs/ticket.db,
// inserts the common-ticket, restores mount").
func InsertTicket(sw extern.MountSwitcher, store extern.Storage, drive, ticketDBImage string, buf []byte) error {
	sess, err := acquireDB(sw, drive, ticketDBImage)
	if err != nil {
		return err
	}
	defer sess.Release()
	return appendRecord(store, ticketDBImage, ticketDBRecordName, buf)
}
