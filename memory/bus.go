package memory

import "fmt"

var _ Device = (*Bus)(nil)

// region binds a chip to the half-open address range it backs.
type region struct {
	base Word
	end  Word // exclusive
	c    chip
}

// Bus is the aggregated 16-bit address space: a byte-addressable
// mapping from address to value, partitioned internally into chips
// (RAM/ROM/const), but exposing a single flat Device to callers.
//
// Matches the source's pattern of one package-level memory array
// behind Get/Set/Read/Write (emu/memory/memory.go), generalized to an
// instance so more than one Bus can exist in a process.
type Bus struct {
	maxAddress Word
	regions    []region

	bytesRead    map[Word]bool
	bytesWritten map[Word]bool
	bytesSet     map[Word]bool

	hadError bool
	errMsg   string

	txOpen bool
	txMode AccessType

	onChanged []func(addr Word, value Byte)
}

// NewBus creates an empty bus whose addressable range is
// [0, maxAddress]; callers install regions with AddRAM/AddROM before
// use. Any address not covered by an installed region reads as zero
// (constZeroChip); WriteByte to it fails like a write to ROM, and
// SetByte leaves it unchanged.
func NewBus(maxAddress Word) *Bus {
	return &Bus{
		maxAddress:   maxAddress,
		bytesRead:    make(map[Word]bool),
		bytesWritten: make(map[Word]bool),
		bytesSet:     make(map[Word]bool),
	}
}

// AddRAM installs a read/write region covering [base, base+size).
func (b *Bus) AddRAM(base Word, size int) {
	b.regions = append(b.regions, region{base: base, end: base + Word(size), c: newRAMChip(size)})
}

// AddROM installs a read-only region covering [base, base+size).
func (b *Bus) AddROM(base Word, size int) {
	b.regions = append(b.regions, region{base: base, end: base + Word(size), c: newROMChip(size)})
}

func (b *Bus) findChip(addr Word) (chip, Word, bool) {
	for _, r := range b.regions {
		if addr >= r.base && addr < r.end {
			return r.c, addr - r.base, true
		}
	}
	return constZeroChip{}, 0, false
}

func (b *Bus) MaxAddress() Word { return b.maxAddress }

// ReadByte is the side-effecting read: it records access-pattern
// tracking and may trigger chip-level side effects in a fuller MMIO
// model. For Pep/9 there is no memory-mapped I/O device wired into
// this core (the spec's Out of scope excludes file/IO collaborators),
// so it behaves identically to GetByte aside from tracking.
func (b *Bus) ReadByte(addr Word, mode AccessType) (Byte, bool) {
	if addr > b.maxAddress {
		b.fail(fmt.Sprintf("read from address 0x%04X out of range", addr))
		return 0, false
	}
	c, off, _ := b.findChip(addr)
	b.bytesRead[addr] = true
	return c.get(off), true
}

// WriteByte is the side-effecting write: fails against ROM.
func (b *Bus) WriteByte(addr Word, value Byte, mode AccessType) bool {
	if addr > b.maxAddress {
		b.fail(fmt.Sprintf("write to address 0x%04X out of range", addr))
		return false
	}
	c, off, _ := b.findChip(addr)
	if !c.writable() {
		b.fail(fmt.Sprintf("write to read-only address 0x%04X", addr))
		return false
	}
	c.set(off, value)
	b.bytesWritten[addr] = true
	b.notify(addr, value)
	return true
}

// ReadWord performs two ReadByte calls; the word address is not
// truncated to an even boundary at this level (callers needing bus
// alignment, e.g. the two-byte microcode datapath, must mask the
// address themselves before calling).
func (b *Bus) ReadWord(addr Word, mode AccessType) (Word, bool) {
	hi, ok1 := b.ReadByte(addr, mode)
	lo, ok2 := b.ReadByte(addr+1, mode)
	if !ok1 || !ok2 {
		return 0, false
	}
	return Word(hi)<<8 | Word(lo), true
}

// WriteWord performs two WriteByte calls, high byte first.
func (b *Bus) WriteWord(addr Word, value Word, mode AccessType) bool {
	ok1 := b.WriteByte(addr, Byte(value>>8), mode)
	ok2 := b.WriteByte(addr+1, Byte(value), mode)
	return ok1 && ok2
}

// GetByte is the pure, side-effect-free read: no access tracking, no
// possibility of failure (out-of-range reads return 0).
func (b *Bus) GetByte(addr Word) Byte {
	if addr > b.maxAddress {
		return 0
	}
	c, off, _ := b.findChip(addr)
	return c.get(off)
}

// SetByte is the pure, side-effect-free write: it never fails on ROM
// (it is how the loader installs an object image into a read-only
// region) but it does emit a changed notification.
func (b *Bus) SetByte(addr Word, value Byte) {
	if addr > b.maxAddress {
		return
	}
	c, off, ok := b.findChip(addr)
	if !ok {
		return
	}
	switch t := c.(type) {
	case *ramChip:
		t.set(off, value)
	case *romChip:
		t.set(off, value)
	default:
		return
	}
	b.bytesSet[addr] = true
	b.notify(addr, value)
}

func (b *Bus) GetWord(addr Word) Word {
	return Word(b.GetByte(addr))<<8 | Word(b.GetByte(addr+1))
}

func (b *Bus) SetWord(addr Word, value Word) {
	b.SetByte(addr, Byte(value>>8))
	b.SetByte(addr+1, Byte(value))
}

// BeginTransaction opens an advisory grouping for cache-replacement
// models; at most one outstanding transaction per bus.
func (b *Bus) BeginTransaction(mode AccessType) bool {
	if b.txOpen {
		return false
	}
	b.txOpen = true
	b.txMode = mode
	return true
}

func (b *Bus) EndTransaction() {
	b.txOpen = false
}

func (b *Bus) OnCycleStarted()                    {}
func (b *Bus) OnCycleFinished()                   {}
func (b *Bus) OnInstructionFinished(opcode Byte)   {}

func (b *Bus) HadError() bool     { return b.hadError }
func (b *Bus) ErrorMessage() string { return b.errMsg }
func (b *Bus) ClearErrors() {
	b.hadError = false
	b.errMsg = ""
}

func (b *Bus) fail(msg string) {
	b.hadError = true
	b.errMsg = msg
}

// OnChanged registers a callback invoked whenever a byte in the bus
// changes via WriteByte or SetByte. Matches the teacher's device
// "changed" event pattern (emu/memory) adapted to a headless callback
// list rather than a signal/slot framework.
func (b *Bus) OnChanged(cb func(addr Word, value Byte)) {
	b.onChanged = append(b.onChanged, cb)
}

func (b *Bus) notify(addr Word, value Byte) {
	for _, cb := range b.onChanged {
		cb(addr, value)
	}
}

// BytesRead reports whether addr has ever been read via ReadByte/ReadWord.
func (b *Bus) BytesRead(addr Word) bool { return b.bytesRead[addr] }

// BytesWritten reports whether addr has ever been written via WriteByte/WriteWord.
func (b *Bus) BytesWritten(addr Word) bool { return b.bytesWritten[addr] }

// BytesSet reports whether addr has ever been written via SetByte/SetWord.
func (b *Bus) BytesSet(addr Word) bool { return b.bytesSet[addr] }
