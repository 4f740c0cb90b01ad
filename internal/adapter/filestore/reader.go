package filestore

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/couchcryptid/psws-hapi/internal/domain"
)

// maxLineBytes bounds a single archive line.
const maxLineBytes = 1 << 20

// Lines is the raw line stream of one container file. It satisfies
// domain.LineScanner and must be closed.
type Lines struct {
	*bufio.Scanner
	closer io.Closer
}

// Close releases the underlying file handles.
func (l *Lines) Close() error {
	return l.closer.Close()
}

// Open returns the line stream of a container file. Magnetometer containers
// are zip archives whose members are concatenated in name order; other types
// are read as plain text.
func Open(f domain.ContainerFile, t domain.DatasetType) (*Lines, error) {
	var (
		r      io.Reader
		closer io.Closer
	)
	switch t {
	case domain.TypeMag:
		zr, err := zip.OpenReader(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open zip %s: %w", f.Name, err)
		}
		m := newMemberReader(&zr.Reader)
		r, closer = m, multiCloser{m, zr}
	default:
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		r, closer = file, file
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Lines{Scanner: sc, closer: closer}, nil
}

// OpenStream is Open returning the domain.LineStream interface.
func OpenStream(f domain.ContainerFile, t domain.DatasetType) (domain.LineStream, error) {
	l, err := Open(f, t)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// memberReader reads the members of a zip archive back to back in
// lexicographic name order, opening one member at a time.
type memberReader struct {
	members []*zip.File
	cur     io.ReadCloser
}

func newMemberReader(zr *zip.Reader) *memberReader {
	var members []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members = append(members, f)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return &memberReader{members: members}
}

func (m *memberReader) Read(p []byte) (int, error) {
	for {
		if m.cur == nil {
			if len(m.members) == 0 {
				return 0, io.EOF
			}
			rc, err := m.members[0].Open()
			if err != nil {
				return 0, fmt.Errorf("open zip member %s: %w", m.members[0].Name, err)
			}
			m.cur = rc
			m.members = m.members[1:]
		}
		n, err := m.cur.Read(p)
		if errors.Is(err, io.EOF) {
			cerr := m.cur.Close()
			m.cur = nil
			if cerr != nil {
				return n, cerr
			}
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (m *memberReader) Close() error {
	if m.cur == nil {
		return nil
	}
	err := m.cur.Close()
	m.cur = nil
	return err
}

type multiCloser []io.Closer

func (mc multiCloser) Close() error {
	var errs []error
	for _, c := range mc {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
