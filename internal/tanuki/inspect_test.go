package tanuki

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleControl = `Package: myapp
Version: 1.0-2
Architecture: amd64
Installed-Size: 2048
Description: sample package
`

func writeArMember(w io.Writer, name string, data []byte) {
	fmt.Fprintf(w, "%-16s%-12d%-6d%-6d%-8s%-10d`\n", name, 0, 0, 0, "100644", len(data))
	w.Write(data)
	if len(data)%2 == 1 {
		io.WriteString(w, "\n")
	}
}

func controlTarball(t *testing.T, compress func(io.Writer) io.WriteCloser) []byte {
	t.Helper()
	var buf bytes.Buffer
	cw := compress(&buf)
	tw := tar.NewWriter(cw)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "./control",
		Mode: 0o644,
		Size: int64(len(sampleControl)),
	}))
	_, err := tw.Write([]byte(sampleControl))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, cw.Close())
	return buf.Bytes()
}

// buildDeb assembles a minimal but structurally valid .deb: an ar archive
// with the debian-binary marker, a compressed control member and a dummy
// data member.
func buildDeb(t *testing.T, controlName string, control []byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	writeArMember(&buf, "debian-binary", []byte("2.0\n"))
	writeArMember(&buf, controlName, control)
	writeArMember(&buf, "data.tar.gz", []byte("irrelevant"))

	path := filepath.Join(t.TempDir(), "myapp_1.0-2_amd64.deb")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadDebInfoGzip(t *testing.T) {
	control := controlTarball(t, func(w io.Writer) io.WriteCloser {
		return pgzip.NewWriter(w)
	})
	path := buildDeb(t, "control.tar.gz", control)

	info, err := readDebInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "myapp", info.Package)
	assert.Equal(t, "1.0-2", info.Version)
	assert.Equal(t, "amd64", info.Architecture)
	assert.Equal(t, "2048", info.InstalledSize)
}

func TestReadDebInfoZstd(t *testing.T) {
	control := controlTarball(t, func(w io.Writer) io.WriteCloser {
		zw, err := zstd.NewWriter(w)
		require.NoError(t, err)
		return zw
	})
	path := buildDeb(t, "control.tar.zst", control)

	info, err := readDebInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "myapp", info.Package)
}

func TestReadDebInfoGNUNames(t *testing.T) {
	// Some ar writers terminate member names with a slash.
	control := controlTarball(t, func(w io.Writer) io.WriteCloser {
		return pgzip.NewWriter(w)
	})
	path := buildDeb(t, "control.tar.gz/", control)

	info, err := readDebInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "myapp", info.Package)
}

func TestReadDebInfoNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.deb")
	require.NoError(t, os.WriteFile(path, []byte("this is not an archive"), 0o644))

	_, err := readDebInfo(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an ar archive")
}

func TestReadDebInfoNoControlMember(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	writeArMember(&buf, "debian-binary", []byte("2.0\n"))
	writeArMember(&buf, "data.tar.gz", []byte("irrelevant"))

	path := filepath.Join(t.TempDir(), "nocontrol.deb")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err := readDebInfo(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no control archive found")
}

func TestFileDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("digest me"), 0o644))

	first, err := fileDigest(path)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	again, err := fileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestInspectPackageLogs(t *testing.T) {
	control := controlTarball(t, func(w io.Writer) io.WriteCloser {
		return pgzip.NewWriter(w)
	})
	path := buildDeb(t, "control.tar.gz", control)

	em := newEmitter()
	inspectPackage(path, em)

	logs := logText(drainEvents(em))
	assert.Contains(t, logs, "blake3: ")
	assert.Contains(t, logs, "control: myapp 1.0-2 (amd64)")
	assert.Contains(t, logs, "installed size: 2.0 MB")
}

func TestInspectPackageUnreadableMetadataIsAdvisory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.deb")
	require.NoError(t, os.WriteFile(path, []byte("garbage bytes"), 0o644))

	em := newEmitter()
	inspectPackage(path, em)

	logs := logText(drainEvents(em))
	assert.Contains(t, logs, "warning: could not read package metadata")
}
