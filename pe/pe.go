// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package pe determines which CPU architecture a PE binary targets by
// reading its headers. Managed (.NET) images, whose COFF machine field says
// I386 no matter where they run, are resolved through their CLR header.
package pe

import (
	"bytes"
	dpe "debug/pe"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dblohm7/archscan/arch"
	"golang.org/x/exp/constraints"
)

const (
	offsetIMAGE_DOS_HEADERe_lfanew = 60
	sizeIMAGE_DOS_HEADER           = 64
	sizeIMAGE_FILE_HEADER          = 20
	sizeIMAGE_DATA_DIRECTORY       = 8
	sizeIMAGE_SECTION_HEADER       = 40
	sizeIMAGE_COR20_HEADER         = 72
	sizeIMAGE_OPTIONAL_HEADER32    = 224
	// The fixed part of IMAGE_OPTIONAL_HEADER32 that precedes DataDirectory.
	sizeOptionalHeader32Fields = 96

	imageDOSSignature     = 0x5A4D // "MZ"
	optionalHeader32Magic = 0x010B

	IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR = dpe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR
)

var imageNTSignature = [4]byte{'P', 'E', 0, 0}

// COMIMAGE_FLAGS is the Flags field of IMAGE_COR20_HEADER.
type COMIMAGE_FLAGS uint32

const (
	COMIMAGE_FLAGS_ILONLY            COMIMAGE_FLAGS = 0x00000001
	COMIMAGE_FLAGS_32BITREQUIRED     COMIMAGE_FLAGS = 0x00000002
	COMIMAGE_FLAGS_IL_LIBRARY        COMIMAGE_FLAGS = 0x00000004
	COMIMAGE_FLAGS_STRONGNAMESIGNED  COMIMAGE_FLAGS = 0x00000008
	COMIMAGE_FLAGS_NATIVE_ENTRYPOINT COMIMAGE_FLAGS = 0x00000010
	COMIMAGE_FLAGS_TRACKDEBUGDATA    COMIMAGE_FLAGS = 0x00010000
	COMIMAGE_FLAGS_32BITPREFERRED    COMIMAGE_FLAGS = 0x00020000
)

type _IMAGE_DOS_HEADER struct {
	Magic  uint16
	_      [offsetIMAGE_DOS_HEADERe_lfanew - 2]byte
	Lfanew uint32
}

// _IMAGE_OPTIONAL_HEADER32_FIELDS is IMAGE_OPTIONAL_HEADER32 without its
// DataDirectory array, whose real length is NumberOfRvaAndSizes.
type _IMAGE_OPTIONAL_HEADER32_FIELDS struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

type _IMAGE_COR20_HEADER struct {
	Cb                      uint32
	MajorRuntimeVersion     uint16
	MinorRuntimeVersion     uint16
	MetaData                dpe.DataDirectory
	Flags                   COMIMAGE_FLAGS
	EntryPointToken         uint32
	Resources               dpe.DataDirectory
	StrongNameSignature     dpe.DataDirectory
	CodeManagerTable        dpe.DataDirectory
	VTableFixups            dpe.DataDirectory
	ExportAddressTableJumps dpe.DataDirectory
	ManagedNativeHeader     dpe.DataDirectory
}

// Classifier determines the architecture of PE images. A Classifier holds
// no mutable state and may be used from multiple goroutines.
type Classifier struct {
	strictSignature bool
	host            func() arch.Architecture
}

// Option configures a Classifier.
type Option = func(c *Classifier)

// WithStrictSignature makes the Classifier verify the "PE\0\0" signature
// that precedes the COFF file header. By default it is skipped unchecked.
func WithStrictSignature() Option {
	return Option(func(c *Classifier) {
		c.strictSignature = true
	})
}

// WithHost replaces the function that reports the architecture an IL-only
// managed image resolves to. The default is arch.Current.
func WithHost(host func() arch.Architecture) Option {
	return Option(func(c *Classifier) {
		c.host = host
	})
}

// NewClassifier returns a Classifier configured by opts.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{host: arch.Current}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = NewClassifier()

// Classify determines the architecture of the PE image read from r using
// the default Classifier settings.
func Classify(r io.ReadSeeker) (arch.Architecture, error) {
	return defaultClassifier.Classify(r)
}

// imageReader tracks the stream position so that errors can say where
// they happened.
type imageReader struct {
	r   io.ReadSeeker
	off int64
}

func (ir *imageReader) read(buf []byte, structure string) error {
	off := ir.off
	n, err := io.ReadFull(ir.r, buf)
	ir.off += int64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return &IOError{Op: "read", Structure: structure, Offset: off, Err: err}
	}
	return nil
}

// seekTo positions ir at off, which may be any of the integer types that
// header fields and offset arithmetic produce.
func seekTo[O constraints.Integer](ir *imageReader, off O, structure string) error {
	if off < 0 || uint64(off) > math.MaxInt64 {
		return formatErrorf(structure, -1, "file offset %d out of range", off)
	}
	pos, err := ir.r.Seek(int64(off), io.SeekStart)
	if err != nil {
		return &IOError{Op: "seek", Structure: structure, Offset: int64(off), Err: err}
	}
	ir.off = pos
	return nil
}

func decode(buf []byte, v any, structure string, off int64) error {
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, v); err != nil {
		return &FormatError{Structure: structure, Offset: off, Err: err}
	}
	return nil
}

// Classify determines the architecture of the PE image read from r. The
// stream is read from offset 0; its position afterwards is unspecified.
//
// A machine field other than I386 is returned as-is. For I386 images the
// CLR header, when present, decides: 32BITREQUIRED images are I386, IL-only
// images run as the host's architecture, and anything else stays I386.
func (c *Classifier) Classify(r io.ReadSeeker) (arch.Architecture, error) {
	ir := &imageReader{r: r}
	if err := seekTo(ir, 0, "DOS header"); err != nil {
		return 0, err
	}

	// Large enough for IMAGE_OPTIONAL_HEADER32 with all 16 directories,
	// which is what nearly every I386 image declares.
	var scratch [sizeIMAGE_OPTIONAL_HEADER32]byte

	buf := scratch[:sizeIMAGE_DOS_HEADER]
	if err := ir.read(buf, "DOS header"); err != nil {
		return 0, err
	}
	var dosHeader _IMAGE_DOS_HEADER
	if err := decode(buf, &dosHeader, "DOS header", 0); err != nil {
		return 0, err
	}
	if dosHeader.Magic != imageDOSSignature {
		return 0, formatErrorf("DOS header", 0, "bad signature 0x%04X", dosHeader.Magic)
	}

	ntOffset := int64(dosHeader.Lfanew)
	if c.strictSignature {
		if err := seekTo(ir, dosHeader.Lfanew, "NT signature"); err != nil {
			return 0, err
		}
		var sig [4]byte
		if err := ir.read(sig[:], "NT signature"); err != nil {
			return 0, err
		}
		if sig != imageNTSignature {
			return 0, formatErrorf("NT signature", ntOffset, "got %q, want %q", sig[:], imageNTSignature[:])
		}
	} else if err := seekTo(ir, uint64(dosHeader.Lfanew)+uint64(len(imageNTSignature)), "file header"); err != nil {
		return 0, err
	}

	fileHeaderOffset := ir.off
	buf = scratch[:sizeIMAGE_FILE_HEADER]
	if err := ir.read(buf, "file header"); err != nil {
		return 0, err
	}
	var fileHeader dpe.FileHeader
	if err := decode(buf, &fileHeader, "file header", fileHeaderOffset); err != nil {
		return 0, err
	}

	if fileHeader.Machine != arch.I386.Code() {
		a, ok := arch.FromCode(fileHeader.Machine)
		if !ok {
			return 0, &UnknownMachineError{Machine: fileHeader.Machine}
		}
		return a, nil
	}

	return c.classifyI386(ir, &fileHeader, scratch[:])
}

// classifyI386 reads on from the end of the file header of an image whose
// machine field is I386 and decides whether it is really managed code that
// runs elsewhere. scratch is reused for every header read after the file
// header.
func (c *Classifier) classifyI386(ir *imageReader, fileHeader *dpe.FileHeader, scratch []byte) (arch.Architecture, error) {
	optionalHeaderOffset := ir.off
	var optionalHeader []byte
	if size := int(fileHeader.SizeOfOptionalHeader); size > len(scratch) {
		optionalHeader = make([]byte, size)
	} else {
		optionalHeader = scratch[:size]
	}
	if err := ir.read(optionalHeader, "optional header"); err != nil {
		return 0, err
	}

	clrDir, err := comDescriptor(optionalHeader, optionalHeaderOffset)
	if err != nil {
		return 0, err
	}
	if clrDir.VirtualAddress == 0 {
		return arch.I386, nil
	}

	// The section table immediately follows the optional header, which is
	// where ir is now positioned.
	clrOffset, err := resolveRVA(ir, fileHeader.NumberOfSections, clrDir.VirtualAddress, scratch)
	if err != nil {
		return 0, err
	}

	if err := seekTo(ir, clrOffset, "CLR header"); err != nil {
		return 0, err
	}
	buf := scratch[:sizeIMAGE_COR20_HEADER]
	if err := ir.read(buf, "CLR header"); err != nil {
		return 0, err
	}
	var corHeader _IMAGE_COR20_HEADER
	if err := decode(buf, &corHeader, "CLR header", int64(clrOffset)); err != nil {
		return 0, err
	}

	switch {
	case corHeader.Flags&COMIMAGE_FLAGS_32BITREQUIRED != 0:
		return arch.I386, nil
	case corHeader.Flags&COMIMAGE_FLAGS_ILONLY != 0:
		return c.host(), nil
	default:
		return arch.I386, nil
	}
}

// comDescriptor extracts the IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR entry from
// the raw bytes of a PE32 optional header.
func comDescriptor(optionalHeader []byte, off int64) (dpe.DataDirectory, error) {
	var dd dpe.DataDirectory
	if len(optionalHeader) < sizeOptionalHeader32Fields {
		return dd, formatErrorf("optional header", off, "declared size %d is smaller than the %d-byte PE32 header", len(optionalHeader), sizeOptionalHeader32Fields)
	}

	var fields _IMAGE_OPTIONAL_HEADER32_FIELDS
	if err := decode(optionalHeader[:sizeOptionalHeader32Fields], &fields, "optional header", off); err != nil {
		return dd, err
	}
	if fields.Magic != optionalHeader32Magic {
		return dd, formatErrorf("optional header", off, "bad magic 0x%04X for an I386 image", fields.Magic)
	}

	dirsOffset := off + sizeOptionalHeader32Fields
	dirs := optionalHeader[sizeOptionalHeader32Fields:]
	count := uint64(fields.NumberOfRvaAndSizes)
	if count*sizeIMAGE_DATA_DIRECTORY > uint64(len(dirs)) {
		return dd, formatErrorf("data directories", dirsOffset, "%d entries do not fit in %d bytes", count, len(dirs))
	}
	if IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR >= count {
		return dd, &FormatError{
			Structure: "data directories",
			Offset:    dirsOffset,
			Err:       fmt.Errorf("%w: entry %d of %d", ErrIndexOutOfRange, IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR, count),
		}
	}

	start := IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR * sizeIMAGE_DATA_DIRECTORY
	if err := decode(dirs[start:start+sizeIMAGE_DATA_DIRECTORY], &dd, "data directories", dirsOffset+int64(start)); err != nil {
		return dd, err
	}
	return dd, nil
}

// resolveRVA converts rva to a file offset by reading the section table
// from ir's current position. Headers are read in batches that fit in
// scratch, and never beyond numSections.
func resolveRVA(ir *imageReader, numSections uint16, rva uint32, scratch []byte) (uint64, error) {
	var sections [sizeIMAGE_OPTIONAL_HEADER32 / sizeIMAGE_SECTION_HEADER]dpe.SectionHeader32
	perBatch := min(len(sections), len(scratch)/sizeIMAGE_SECTION_HEADER)

	for remaining := int(numSections); remaining > 0; {
		n := min(remaining, perBatch)
		off := ir.off
		buf := scratch[:n*sizeIMAGE_SECTION_HEADER]
		if err := ir.read(buf, "section table"); err != nil {
			return 0, err
		}
		batch := sections[:n]
		if err := decode(buf, batch, "section table", off); err != nil {
			return 0, err
		}

		for _, s := range batch {
			size := s.VirtualSize
			if size == 0 {
				size = s.SizeOfRawData
			}
			if rva < s.VirtualAddress || uint64(rva) >= uint64(s.VirtualAddress)+uint64(size) {
				continue
			}
			return uint64(s.PointerToRawData) + uint64(rva-s.VirtualAddress), nil
		}

		remaining -= n
	}

	return 0, &FormatError{
		Structure: "CLR header",
		Offset:    -1,
		Err:       fmt.Errorf("%w: RVA 0x%08X lies outside all %d sections", ErrNotPresent, rva, numSections),
	}
}
