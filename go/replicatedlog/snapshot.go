package replicatedlog

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// CurrentSnapshotVersion is the single monotonic integer spec.md §6
// requires; loaders reject anything else. Bump it whenever the persisted
// layout of distributed_commits changes.
const CurrentSnapshotVersion int32 = 1

// SaveSnapshot writes the version header followed by every registered
// saver's section (Keys priority before Values priority, matching the
// original's SaveKeys/SaveValues split), each length-framed. Sections
// carry no name on the wire: LoadSnapshot pairs them with loaders by
// position.
func (l *Log) SaveSnapshot(w io.Writer) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(CurrentSnapshotVersion))
	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "writing snapshot version")
	}

	var ordered = make([]saverEntry, len(l.savers))
	copy(ordered, l.savers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].priority < ordered[j].priority })

	for _, s := range ordered {
		var buf = &lengthFramedBuffer{}
		if err := s.fn(buf); err != nil {
			return errors.Wrapf(err, "saving snapshot section %q", s.name)
		}
		if err := buf.Flush(w); err != nil {
			return errors.Wrapf(err, "writing snapshot section %q", s.name)
		}
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot, rejecting
// unknown versions, and hands the i-th section read to the i-th loader
// in registration order; section names are not checked.
func (l *Log) LoadSnapshot(r io.Reader) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return errors.Wrap(err, "reading snapshot version")
	}
	var version = int32(binary.BigEndian.Uint32(hdr[:]))
	if version != CurrentSnapshotVersion {
		return errors.Errorf("unsupported snapshot version %d (expected %d)", version, CurrentSnapshotVersion)
	}

	for _, ldr := range l.loaders {
		var section, err = readLengthFramed(r)
		if err != nil {
			return errors.Wrapf(err, "reading snapshot section %q", ldr.name)
		}
		if err := ldr.fn(section); err != nil {
			return errors.Wrapf(err, "loading snapshot section %q", ldr.name)
		}
	}
	return nil
}

// lengthFramedBuffer accumulates a section's bytes in memory so its
// length can be written before its body.
type lengthFramedBuffer struct {
	buf []byte
}

func (b *lengthFramedBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *lengthFramedBuffer) Flush(w io.Writer) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b.buf)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(b.buf)
	return err
}

func readLengthFramed(r io.Reader) (io.Reader, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	var n = binary.BigEndian.Uint32(hdr[:])
	var buf = make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &byteReader{buf: buf}, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.buf) {
		return 0, io.EOF
	}
	var n = copy(p, b.buf[b.pos:])
	b.pos += n
	return n, nil
}
