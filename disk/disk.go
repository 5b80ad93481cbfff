/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Thu Oct  8 13:20:05 2026 mstenber
 * Last modified: Fri Oct 16 12:02:48 2026 mstenber
 * Edit time:     96 min
 *
 */

// disk package knows about MBR partition tables: finding the named
// partitions of a device, and writing a table when a disk is
// created.
//
// Primary partitions are named <disk>1.. in the order they are found,
// logical partitions inside an extended partition <disk>5..
package disk

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/fingon/go-tinyfs/device"
	"github.com/fingon/go-tinyfs/mlog"
)

const (
	partitionTableOffset = 446
	partitionEntrySize   = 16
	signatureOffset      = 510

	TYPE_EMPTY    = 0x00
	TYPE_EXTENDED = 0x05
	TYPE_LINUX    = 0x83

	MaxPrimaryPartitions = 4
	MaxLogicalPartitions = 8
)

var (
	ErrNoPartitionTable  = errors.New("no partition table")
	ErrNoSuchPartition   = errors.New("no such partition")
	ErrTooManyPartitions = errors.New("too many partitions")
	ErrPartitionsNotFit  = errors.New("partitions do not fit on disk")
	ErrPartitionsOverlap = errors.New("partitions overlap")
)

type PartitionInfo struct {
	Name    string
	Start   uint32
	Sectors uint32
	Type    byte
}

func (self PartitionInfo) String() string {
	return fmt.Sprintf("%s lba_start:0x%x, sec_cnt:0x%x", self.Name, self.Start, self.Sectors)
}

type Disk struct {
	Name       string
	Dev        device.Device
	Partitions []PartitionInfo
}

// Open reads the partition table of dev.
func Open(name string, dev device.Device) (*Disk, error) {
	parts, err := ReadPartitionTable(dev, name)
	if err != nil {
		return nil, err
	}
	return &Disk{Name: name, Dev: dev, Partitions: parts}, nil
}

func (self *Disk) Lookup(name string) (PartitionInfo, error) {
	for _, p := range self.Partitions {
		if p.Name == name {
			return p, nil
		}
	}
	return PartitionInfo{}, errors.Wrapf(ErrNoSuchPartition, "%s on %s", name, self.Name)
}

type tableEntry struct {
	ptype   byte
	start   uint32
	sectors uint32
}

func readTable(dev device.Device, lba uint32) ([MaxPrimaryPartitions]tableEntry, error) {
	var entries [MaxPrimaryPartitions]tableEntry
	buf := make([]byte, device.SectorSize)
	dev.ReadSectors(lba, buf)
	if buf[signatureOffset] != 0x55 || buf[signatureOffset+1] != 0xaa {
		return entries, errors.Wrapf(ErrNoPartitionTable, "no signature at lba %d", lba)
	}
	for i := range entries {
		b := buf[partitionTableOffset+i*partitionEntrySize:]
		entries[i] = tableEntry{
			ptype:   b[4],
			start:   binary.LittleEndian.Uint32(b[8:]),
			sectors: binary.LittleEndian.Uint32(b[12:]),
		}
	}
	return entries, nil
}

func writeTable(dev device.Device, lba uint32, entries []tableEntry) {
	buf := make([]byte, device.SectorSize)
	for i, e := range entries {
		b := buf[partitionTableOffset+i*partitionEntrySize:]
		b[4] = e.ptype
		binary.LittleEndian.PutUint32(b[8:], e.start)
		binary.LittleEndian.PutUint32(b[12:], e.sectors)
	}
	buf[signatureOffset] = 0x55
	buf[signatureOffset+1] = 0xaa
	dev.WriteSectors(lba, buf)
}

// ReadPartitionTable parses the MBR of dev, following the extended
// partition's EBR chain for logical partitions.
func ReadPartitionTable(dev device.Device, diskName string) (parts []PartitionInfo, err error) {
	mlog.Printf2("disk/disk", "ReadPartitionTable %s", diskName)
	primary, logical := 0, 0
	extBase := uint32(0)
	visited := map[uint32]bool{}
	var scan func(lba uint32) error
	scan = func(lba uint32) error {
		if visited[lba] || lba >= dev.SectorCount() {
			return ErrNoPartitionTable
		}
		visited[lba] = true
		entries, err := readTable(dev, lba)
		if err != nil {
			return err
		}
		for _, e := range entries {
			switch {
			case e.ptype == TYPE_EXTENDED:
				next := extBase + e.start
				if extBase == 0 {
					extBase = e.start
					next = e.start
				}
				if err := scan(next); err != nil {
					return err
				}
			case e.ptype == TYPE_EMPTY:
			case lba == 0:
				primary++
				name := fmt.Sprintf("%s%d", diskName, primary)
				p := PartitionInfo{Name: name, Start: e.start, Sectors: e.sectors, Type: e.ptype}
				mlog.Printf2("disk/disk", " %v", p)
				parts = append(parts, p)
			default:
				if logical >= MaxLogicalPartitions {
					return nil
				}
				logical++
				name := fmt.Sprintf("%s%d", diskName, logical+4)
				p := PartitionInfo{Name: name, Start: lba + e.start, Sectors: e.sectors, Type: e.ptype}
				mlog.Printf2("disk/disk", " %v", p)
				parts = append(parts, p)
			}
		}
		return nil
	}
	if err = scan(0); err != nil {
		return nil, err
	}
	return parts, nil
}

// Plan lays out partitions of the given sizes (in sectors) on a disk
// of total sectors; a zero size means the rest of the disk. With more
// than four partitions, the fourth onwards are logical partitions,
// each preceded by its EBR sector.
func Plan(diskName string, total uint32, sizes []uint32) ([]PartitionInfo, error) {
	if len(sizes) > MaxPrimaryPartitions-1+MaxLogicalPartitions {
		return nil, ErrTooManyPartitions
	}
	useLogical := len(sizes) > MaxPrimaryPartitions
	parts := make([]PartitionInfo, 0, len(sizes))
	cur := uint32(1)
	for i, size := range sizes {
		name := fmt.Sprintf("%s%d", diskName, i+1)
		if useLogical && i >= MaxPrimaryPartitions-1 {
			cur++
			name = fmt.Sprintf("%s%d", diskName, i-MaxPrimaryPartitions+6)
		}
		if cur >= total {
			return nil, ErrPartitionsNotFit
		}
		if size == 0 {
			size = total - cur
		}
		if uint64(cur)+uint64(size) > uint64(total) {
			return nil, ErrPartitionsNotFit
		}
		parts = append(parts, PartitionInfo{Name: name, Start: cur, Sectors: size, Type: TYPE_LINUX})
		cur += size
	}
	return parts, nil
}

// WritePartitionTable writes an MBR (and EBRs) describing parts, which
// must be laid out as Plan does.
func WritePartitionTable(dev device.Device, parts []PartitionInfo) error {
	if len(parts) > MaxPrimaryPartitions-1+MaxLogicalPartitions {
		return ErrTooManyPartitions
	}
	for i, p := range parts {
		if uint64(p.Start)+uint64(p.Sectors) > uint64(dev.SectorCount()) {
			return ErrPartitionsNotFit
		}
		if p.Start == 0 || (i > 0 && p.Start < parts[i-1].Start+parts[i-1].Sectors) {
			return ErrPartitionsOverlap
		}
	}
	primaries := parts
	var logicals []PartitionInfo
	if len(parts) > MaxPrimaryPartitions {
		primaries = parts[:MaxPrimaryPartitions-1]
		logicals = parts[MaxPrimaryPartitions-1:]
	}
	entries := make([]tableEntry, 0, MaxPrimaryPartitions)
	for _, p := range primaries {
		entries = append(entries, tableEntry{ptype: p.Type, start: p.Start, sectors: p.Sectors})
	}
	if logicals != nil {
		extBase := logicals[0].Start - 1
		last := logicals[len(logicals)-1]
		ext := tableEntry{ptype: TYPE_EXTENDED, start: extBase, sectors: last.Start + last.Sectors - extBase}
		entries = append(entries, ext)
		for i, p := range logicals {
			ebr := p.Start - 1
			if i > 0 && ebr < logicals[i-1].Start+logicals[i-1].Sectors {
				return ErrPartitionsOverlap
			}
			es := []tableEntry{{ptype: p.Type, start: 1, sectors: p.Sectors}}
			if i+1 < len(logicals) {
				next := logicals[i+1]
				link := tableEntry{ptype: TYPE_EXTENDED, start: next.Start - 1 - extBase, sectors: next.Sectors + 1}
				es = append(es, link)
			}
			writeTable(dev, ebr, es)
		}
	}
	writeTable(dev, 0, entries)
	return nil
}
