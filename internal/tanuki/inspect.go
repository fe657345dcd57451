package tanuki

import (
	"archive/tar"
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
	"lukechampine.com/blake3"
)

// debInfo is the metadata peeked out of a foreign package's control archive.
type debInfo struct {
	Package       string
	Version       string
	Architecture  string
	InstalledSize string // kilobytes, as declared by the package
}

// inspectPackage logs what can be learned about the input before conversion:
// a BLAKE3 digest of the file and the control fields from inside the
// archive. Everything here is advisory; failures are logged and ignored,
// the conversion answers stay filename-derived.
func inspectPackage(path string, em *Emitter) {
	if digest, err := fileDigest(path); err == nil {
		em.Logf("blake3: %s", digest)
	} else {
		debugf("digest failed for %s: %v\n", path, err)
	}

	info, err := readDebInfo(path)
	if err != nil {
		em.Logf("warning: could not read package metadata: %v", err)
		return
	}
	em.Logf("control: %s %s (%s)", info.Package, info.Version, info.Architecture)
	if info.InstalledSize != "" {
		if kb, err := strconv.ParseFloat(info.InstalledSize, 64); err == nil {
			em.Logf("installed size: %.1f MB", kb/1024)
		}
	}
}

// fileDigest returns the hex BLAKE3-256 digest of a file.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readDebInfo extracts the control fields from a .deb file. The format is a
// Unix ar archive holding debian-binary, control.tar.{gz,xz,zst} and a data
// member; only the control member is read.
func readDebInfo(path string) (*debInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ar := newArReader(f)
	for {
		name, size, err := ar.next()
		if err == io.EOF {
			return nil, fmt.Errorf("no control archive found")
		}
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(name, "control.tar") {
			continue
		}
		return parseControlArchive(name, io.LimitReader(ar, size))
	}
}

// parseControlArchive decompresses the control member and reads the
// ./control file out of the inner tar.
func parseControlArchive(name string, r io.Reader) (*debInfo, error) {
	var inner io.Reader
	switch {
	case strings.HasSuffix(name, ".gz"):
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		inner = gz
	case strings.HasSuffix(name, ".xz"):
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		inner = xzr
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		inner = zr
	case name == "control.tar":
		inner = r
	default:
		return nil, fmt.Errorf("unsupported control archive %q", name)
	}

	tr := tar.NewReader(inner)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("control file missing from %s", name)
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimPrefix(hdr.Name, "./") != "control" {
			continue
		}
		return parseControlFields(tr), nil
	}
}

func parseControlFields(r io.Reader) *debInfo {
	info := &debInfo{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch key {
		case "Package":
			info.Package = val
		case "Version":
			info.Version = val
		case "Architecture":
			info.Architecture = val
		case "Installed-Size":
			info.InstalledSize = val
		}
	}
	return info
}

// arReader is a minimal common-format ar archive reader, enough for .deb
// files. The stdlib has no ar support.
type arReader struct {
	r         io.Reader
	remaining int64 // bytes left in the current member, plus padding
	checked   bool
}

func newArReader(r io.Reader) *arReader {
	return &arReader{r: r}
}

// next advances to the following member and returns its name and size.
func (a *arReader) next() (string, int64, error) {
	if !a.checked {
		magic := make([]byte, 8)
		if _, err := io.ReadFull(a.r, magic); err != nil {
			return "", 0, err
		}
		if string(magic) != "!<arch>\n" {
			return "", 0, fmt.Errorf("not an ar archive")
		}
		a.checked = true
	}

	// Skip whatever is left of the previous member, including the pad byte
	// that aligns members to even offsets.
	if a.remaining > 0 {
		if _, err := io.CopyN(io.Discard, a.r, a.remaining); err != nil {
			return "", 0, err
		}
		a.remaining = 0
	}

	hdr := make([]byte, 60)
	if _, err := io.ReadFull(a.r, hdr); err != nil {
		if err == io.ErrUnexpectedEOF {
			return "", 0, io.EOF
		}
		return "", 0, err
	}

	name := strings.TrimRight(string(hdr[0:16]), " ")
	name = strings.TrimSuffix(name, "/") // GNU style member names
	size, err := strconv.ParseInt(strings.TrimSpace(string(hdr[48:58])), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed ar header: %w", err)
	}

	a.remaining = size
	if size%2 == 1 {
		a.remaining++
	}
	return name, size, nil
}

// Read reads from the current member.
func (a *arReader) Read(p []byte) (int, error) {
	if a.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > a.remaining {
		p = p[:a.remaining]
	}
	n, err := a.r.Read(p)
	a.remaining -= int64(n)
	return n, err
}
