/*
   Pep/9 low level memory device.

   Adapted from the S370 simulator's memory model (emu/memory), which
   keeps a package-level byte array behind Get/Set/Read/Write accessors.
   Here the state is promoted into a struct (*Bus) since a single
   process may host more than one simulation instance (ISA and
   microcode cores sharing one Bus, unit tests running in parallel).

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package memory

// Byte is an unsigned 8-bit quantity.
type Byte = uint8

// Word is an unsigned 16-bit quantity, stored big-endian in memory.
type Word = uint16

// AccessType tags why a memory access happened, for cache/device models
// that care about instruction-vs-data traffic.
type AccessType int

const (
	Instruction AccessType = iota
	Data
	NA
)

// Device is the interface both the ISA and microcode cores see. It is
// implemented by *Bus (the aggregate address space) so that callers
// never need to know about individual chips.
type Device interface {
	ReadByte(addr Word, mode AccessType) (Byte, bool)
	WriteByte(addr Word, value Byte, mode AccessType) bool
	ReadWord(addr Word, mode AccessType) (Word, bool)
	WriteWord(addr Word, value Word, mode AccessType) bool

	GetByte(addr Word) Byte
	SetByte(addr Word, value Byte)
	GetWord(addr Word) Word
	SetWord(addr Word, value Word)

	BeginTransaction(mode AccessType) bool
	EndTransaction()

	OnCycleStarted()
	OnCycleFinished()
	OnInstructionFinished(opcode Byte)

	HadError() bool
	ErrorMessage() string
	ClearErrors()

	MaxAddress() Word

	OnChanged(func(addr Word, value Byte))
}

// chip is the minimal interface individual storage regions implement;
// Bus composes them by address range the way the source's chip
// hierarchy composed RAM/ROM/const/I-O devices under one channel.
type chip interface {
	get(addr Word) Byte
	set(addr Word, value Byte)
	writable() bool
}
