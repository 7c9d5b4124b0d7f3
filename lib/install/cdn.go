package install

import (
	"fmt"
	"strings"

	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/ticket"
)

// CetkPath derives the sibling ticket-file path for a CDN TMD/content
// download, grounded on gameutil.c's LoadCdnTicketFile/GetTmdContentPath:
// a network content download stores its title-key ticket alongside the
// TMD as "<stem>.cetk" rather than embedding it in an OuterPackage.
func CetkPath(tmdPath string) string {
	if idx := strings.LastIndexByte(tmdPath, '.'); idx >= 0 {
		tmdPath = tmdPath[:idx]
	}
	return tmdPath + ".cetk"
}

// LoadCdnTicket reads and parses the sibling .cetk ticket file for a CDN
// TMD download, per CetkPath.
func LoadCdnTicket(store extern.Storage, tmdPath string) (*ticket.View, error) {
	path := CetkPath(tmdPath)
	f, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("install: opening cdn ticket %s: %w", path, err)
	}
	defer f.Close()

	info, err := store.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("install: stat cdn ticket %s: %w", path, err)
	}
	buf := make([]byte, info.Size)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("install: reading cdn ticket %s: %w", path, err)
	}
	return ticket.Parse(buf)
}
