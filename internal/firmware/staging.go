package firmware

import "errors"

var ErrBlockOutOfRange = errors.New("firmware: block index out of range")

// MemoryStaging is a RAM-backed Staging for tests and the host node
// simulator. blockCount bounds how many FirmwareBlockSize-byte blocks the
// staged image may hold — the node's flash capacity on hardware, an
// arbitrary limit here.
type MemoryStaging struct {
	blocks   [][blockSize]byte
	crc      uint16
	final    Descriptor
	finalize bool
}

func NewMemoryStaging(blockCount uint16) *MemoryStaging {
	return &MemoryStaging{blocks: make([][blockSize]byte, blockCount)}
}

func (s *MemoryStaging) WriteBlock(index uint16, data [blockSize]byte) error {
	if int(index) >= len(s.blocks) {
		return ErrBlockOutOfRange
	}
	s.blocks[index] = data
	for _, b := range data {
		s.crc = crc16Update(s.crc, b)
	}
	return nil
}

func (s *MemoryStaging) Checksum() uint16 { return s.crc }

func (s *MemoryStaging) Finalize(desc Descriptor) error {
	s.final = desc
	s.finalize = true
	return nil
}

// Finalized reports whether Finalize has been called — the image swap
// the bootloader would perform on next boot, observable in tests.
func (s *MemoryStaging) Finalized() (Descriptor, bool) { return s.final, s.finalize }
