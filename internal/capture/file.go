package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FileReader reads frames from a pcap or pcapng stream.
type FileReader struct {
	r      packetReader
	closer io.Closer
	name   string
}

// OpenFile opens a .pcap or .pcapng file for reading.
func OpenFile(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file %q: %w", path, err)
	}
	fr, err := NewReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	fr.closer = f
	return fr, nil
}

// NewReader reads pcap or pcapng data from r, telling the two apart by
// the leading magic number. Only Ethernet captures are accepted.
func NewReader(r io.Reader, name string) (*FileReader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header %q: %w", name, err)
	}

	var pr packetReader
	if bytes.Equal(magic, pcapngMagic) {
		pr, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		pr, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("parse capture header %q: %w", name, err)
	}
	if lt := pr.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("%q has link type %s: %w", name, lt, ErrUnsupportedLinkType)
	}
	return &FileReader{r: pr, name: name}, nil
}

// ReadFrame returns the next frame or io.EOF.
func (fr *FileReader) ReadFrame(ctx context.Context) ([]byte, gopacket.CaptureInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, gopacket.CaptureInfo{}, err
	}
	data, ci, err := fr.r.ReadPacketData()
	if err == io.EOF {
		return nil, ci, io.EOF
	}
	if err != nil {
		return nil, ci, fmt.Errorf("read frame from %q: %w", fr.name, err)
	}
	return data, ci, nil
}

// Name returns the path or label the reader was opened with.
func (fr *FileReader) Name() string { return fr.name }

// Close releases the underlying file, if any.
func (fr *FileReader) Close() error {
	if fr.closer != nil {
		return fr.closer.Close()
	}
	return nil
}
