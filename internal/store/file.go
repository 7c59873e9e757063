package store

import "os"

// File is a host-side Store backed by a fixed-size regular file, standing
// in for on-device EEPROM when a node runs as a host process (spec §9: the
// capability boundary is the only thing that differs between the hardware
// and simulated builds). Every write is compared against the current byte
// first and skipped if unchanged, per spec §4.7's wear-leveling policy.
type File struct {
	f *os.File
}

// OpenFile opens path as a TotalSize-byte store, creating and filling it
// with 0xFF (erased-EEPROM default, see Memory) if it doesn't already
// exist at the right size.
func OpenFile(path string) (*File, error) {
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < TotalSize {
		if err := f.Truncate(TotalSize); err != nil {
			f.Close()
			return nil, err
		}
		isNew = true
	}
	if isNew {
		blank := make([]byte, TotalSize)
		for i := range blank {
			blank[i] = 0xFF
		}
		if _, err := f.WriteAt(blank, 0); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &File{f: f}, nil
}

func (fs *File) Close() error { return fs.f.Close() }

func (fs *File) ReadByte(offset int) (byte, error) {
	if offset < 0 || offset >= TotalSize {
		return 0, ErrOutOfRange
	}
	var buf [1]byte
	if _, err := fs.f.ReadAt(buf[:], int64(offset)); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (fs *File) WriteByte(offset int, value byte) error {
	if offset < 0 || offset >= TotalSize {
		return ErrOutOfRange
	}
	cur, err := fs.ReadByte(offset)
	if err != nil {
		return err
	}
	if cur == value {
		return nil
	}
	_, err = fs.f.WriteAt([]byte{value}, int64(offset))
	return err
}

func (fs *File) ReadBlock(offset int, dst []byte) error {
	if offset < 0 || offset+len(dst) > TotalSize {
		return ErrOutOfRange
	}
	_, err := fs.f.ReadAt(dst, int64(offset))
	return err
}

// WriteBlock writes src byte by byte, skipping unchanged bytes, rather
// than one bulk WriteAt, so the wear-leveling policy applies at the same
// byte granularity it would on real EEPROM hardware.
func (fs *File) WriteBlock(offset int, src []byte) error {
	if offset < 0 || offset+len(src) > TotalSize {
		return ErrOutOfRange
	}
	cur := make([]byte, len(src))
	if _, err := fs.f.ReadAt(cur, int64(offset)); err != nil {
		return err
	}
	for i, b := range src {
		if cur[i] == b {
			continue
		}
		if _, err := fs.f.WriteAt([]byte{b}, int64(offset+i)); err != nil {
			return err
		}
	}
	return nil
}
