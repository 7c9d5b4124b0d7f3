package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	ctrcrypto "github.com/sargunv/ctrtool/lib/crypto"
	"github.com/sargunv/ctrtool/lib/cryptcopy"
	"github.com/sargunv/ctrtool/lib/dispatch"
	"github.com/sargunv/ctrtool/lib/extern"
	"github.com/sargunv/ctrtool/lib/format/sc"
)

var (
	cryptRegion  string
	cryptEncrypt bool
	cryptKeyfile string
)

var cryptCmd = &cobra.Command{
	Use:   "crypt <file> [output]",
	Short: "Decrypt or encrypt one region of a SecondaryContainer, in place or to a new file",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCrypt,
}

func init() {
	cryptCmd.Flags().StringVar(&cryptRegion, "region", "exthdr", "region to transform: exthdr, exefs, romfs")
	cryptCmd.Flags().BoolVar(&cryptEncrypt, "encrypt", false, "encrypt instead of decrypt (CTR is its own inverse; this only gates policy checks)")
	cryptCmd.Flags().StringVar(&cryptKeyfile, "keyfile", "", "hex key-slot file (falls back to the built-in deterministic test slots if unset)")
	rootCmd.AddCommand(cryptCmd)
}

func runCrypt(cmd *cobra.Command, args []string) error {
	srcPath := args[0]
	dstPath := srcPath
	if len(args) == 2 {
		dstPath = args[1]
	}

	src, err := extern.OpenFile(srcPath)
	if err != nil {
		return fmt.Errorf("crypt: %w", err)
	}
	defer src.Close()

	size, err := src.Size()
	if err != nil {
		return fmt.Errorf("crypt: stat: %w", err)
	}
	probeSize := int64(dispatch.ProbeSize)
	if probeSize > size {
		probeSize = size
	}
	buf := make([]byte, probeSize)
	if _, err := src.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("crypt: probe read: %w", err)
	}
	kind := dispatch.Detect(buf, size, srcPath)
	if kind != dispatch.KindSecondaryContainer {
		return fmt.Errorf("crypt: %s: only SecondaryContainer regions are wired to this command", kind)
	}
	header, err := sc.ParseHeader(buf)
	if err != nil {
		return fmt.Errorf("crypt: %w", err)
	}

	var dst extern.File
	if dstPath == srcPath {
		dst = src
	} else {
		dst, err = extern.CreateFile(dstPath)
		if err != nil {
			return fmt.Errorf("crypt: %w", err)
		}
		defer dst.Close()
	}

	slots := resolveKeySlots(cryptKeyfile)
	key, err := ctrcrypto.ContentKey(slots, header)
	if err != nil {
		return fmt.Errorf("crypt: deriving content key: %w", err)
	}

	var (
		offset int64
		length int64
		tag    sc.RegionTag
	)
	switch cryptRegion {
	case "exthdr":
		offset, length, tag = 0x200, int64(sc.ExtHeaderSize), sc.RegionExtHeader
	case "exefs":
		offset, length, tag = int64(header.ExeFsOffset()), int64(header.SizeExeFs)*sc.MediaUnit, sc.RegionFlatArchive
	case "romfs":
		offset, length, tag = int64(header.RomFsOffset()), int64(header.SizeRomFs)*sc.MediaUnit, sc.RegionHashFS
	default:
		return fmt.Errorf("crypt: unknown --region %q", cryptRegion)
	}
	if length == 0 {
		return fmt.Errorf("crypt: region %q is absent from this container", cryptRegion)
	}

	direction := cryptcopy.Decrypt
	if cryptEncrypt {
		direction = cryptcopy.Encrypt
	}

	res, err := cryptcopy.Run(context.Background(), cryptcopy.Options{
		Src: src, Dst: dst,
		Offset:    offset,
		Size:      length,
		Cipher:    extern.StdAESCipher{},
		Key:       key,
		IVBase:    ctrcrypto.RegionCTR(header.ProgramID, tag),
		Plain:     !header.Encrypted(),
		Mode:      cryptcopy.ModeRaw,
		Direction: direction,
		NewHash:   func() extern.SHA256 { return extern.NewStdSHA256() },
	})
	if err != nil {
		return fmt.Errorf("crypt: %w", err)
	}
	fmt.Printf("crypt: transformed %s region, %d bytes, sha256 %x\n", cryptRegion, res.Size, res.Hash)
	return nil
}

// resolveKeySlots loads hex keys from keyfilePath if given, otherwise falls
// back to the deterministic test slots with a loud warning: those never
// match a real console's OTP-derived keys.
func resolveKeySlots(keyfilePath string) extern.KeySlots {
	if keyfilePath == "" {
		fmt.Println("crypt: warning: no --keyfile given, using built-in deterministic test key slots")
		return extern.StdKeySlots{}
	}
	return loadHexKeySlots(keyfilePath)
}

// loadHexKeySlots reads a "keyx_<slot>=<hex>" / "common_<idx>=<hex>" line
// file into a HexKeySlots. Parse failures are silently skipped: a missing
// or malformed line surfaces later as a KeyX/CommonKey lookup error with
// the slot number attached, which is a more useful error site than here.
func loadHexKeySlots(path string) extern.HexKeySlots {
	slots := extern.HexKeySlots{KeyXHex: map[int]string{}, CommonKeyHex: map[byte]string{}}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("crypt: warning: reading --keyfile %s: %v\n", path, err)
		return slots
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch {
		case strings.HasPrefix(key, "keyx_"):
			slot, err := strconv.Atoi(strings.TrimPrefix(key, "keyx_"))
			if err == nil {
				slots.KeyXHex[slot] = value
			}
		case strings.HasPrefix(key, "common_"):
			idx, err := strconv.Atoi(strings.TrimPrefix(key, "common_"))
			if err == nil {
				slots.CommonKeyHex[byte(idx)] = value
			}
		}
	}
	return slots
}
