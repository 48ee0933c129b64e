package zealfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// v2 images may start with a classic MBR; the engine then mounts the first
// partition of type 0x5A ('Z'). An image without the 55 AA signature is
// treated as a raw filesystem when its first byte is the ZealFS magic.

const (
	mbrSize    = 512
	sectorSize = 512

	// PartitionType is the MBR partition type byte of a ZealFS partition.
	PartitionType = Magic
)

type partitionEntry struct {
	Status      byte
	FirstCHS    [3]byte
	Type        byte
	LastCHS     [3]byte
	LBA         uint32
	SectorCount uint32
}

type mbrSector struct {
	Bootstrap  [446]byte
	Partitions [4]partitionEntry
	Signature  [2]byte
}

// FindPartition scans the first sector of an image for a ZealFS partition
// and returns its byte offset and size. A sector without the MBR signature
// is accepted as a raw image spanning the whole file when it starts with
// the ZealFS magic. ok is false when the image is unrecognised.
func FindPartition(sector []byte, fileSize int64) (offset, size int64, ok bool) {
	if len(sector) < mbrSize || sector[510] != 0x55 || sector[511] != 0xAA {
		// Invalid MBR signature, check if it's a raw ZealFS image.
		if len(sector) > 0 && sector[0] == Magic {
			return 0, fileSize, true
		}
		return 0, 0, false
	}

	var mbr mbrSector
	_ = binary.Read(bytes.NewReader(sector[:mbrSize]), binary.LittleEndian, &mbr)

	for _, part := range mbr.Partitions {
		if part.Type == PartitionType {
			return int64(part.LBA) * sectorSize, int64(part.SectorCount) * sectorSize, true
		}
	}
	return 0, 0, false
}

// EncodeMBR builds a boot sector with a single, non-bootable ZealFS
// partition at the given byte offset and size, both multiples of the sector
// size. The ending CHS stays zeroed, only the LBA fields matter.
func EncodeMBR(partOffset, partSize int64) ([]byte, error) {
	if partOffset%sectorSize != 0 || partSize%sectorSize != 0 {
		return nil, fmt.Errorf("partition offset and size must be a multiple of %d", sectorSize)
	}

	mbr := mbrSector{
		Signature: [2]byte{0x55, 0xAA},
	}
	mbr.Partitions[0] = partitionEntry{
		Status:      0x00,
		Type:        PartitionType,
		LBA:         uint32(partOffset / sectorSize),
		SectorCount: uint32(partSize / sectorSize),
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, &mbr)
	return buf.Bytes(), nil
}
