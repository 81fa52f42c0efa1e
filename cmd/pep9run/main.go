/*
 * pep9run - ISA-level batch executor.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// pep9run drives the ISA Executor over a pre-assembled object file: it
// never parses assembly source. The file is read as raw object bytes
// and copied into memory starting at the --load address.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/cpu"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/pep9log"
	"github.com/StanWarford/pep9suite-sub001/register"
)

func parseAddress(s string, def uint16) uint16 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pep9run: bad address %q: %v\n", s, err)
		os.Exit(1)
	}
	return uint16(v)
}

func main() {
	optObject := getopt.StringLong("object", 'o', "", "Object file (raw bytes) to load")
	optLoad := getopt.StringLong("load", 'a', "0x0000", "Load address for the object file")
	optStart := getopt.StringLong("start", 'p', "", "Starting program counter, defaults to the load address")
	optOSBurn := getopt.StringLong("osburn", 'b', "0xFFFF", "Top address burned by the OS loader")
	optMaxSteps := getopt.StringLong("max-steps", 'm', "1000000", "Instruction ceiling before aborting as an endless loop")
	optNOP0Trap := getopt.BoolLong("nop0-trap", 0, "Classify NOP0 as a trap instead of a unary no-op")
	optTwoByteBus := getopt.BoolLong("two-byte-bus", 0, "Use the two-byte datapath bus width")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Mirror log records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logOut *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pep9run:", err)
			os.Exit(1)
		}
		logOut = f
	}
	log := pep9log.New(logOut, *optDebug)
	slog.SetDefault(log)

	if *optObject == "" {
		log.Error("no object file given, use -o")
		os.Exit(1)
	}
	objectBytes, err := os.ReadFile(*optObject)
	if err != nil {
		log.Error("reading object file", "error", err.Error())
		os.Exit(1)
	}

	loadAddr := parseAddress(*optLoad, 0x0000)
	osBurn := parseAddress(*optOSBurn, 0xFFFF)
	startAddr := parseAddress(*optStart, loadAddr)
	maxSteps, err := strconv.ParseUint(*optMaxSteps, 0, 64)
	if err != nil {
		log.Error("bad -max-steps value", "value", *optMaxSteps)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.NOP0IsTrap = *optNOP0Trap
	cfg.OSBurn = osBurn
	cfg.Debug = *optDebug
	if *optTwoByteBus {
		cfg.Bus = config.TwoByteBus
	}

	bus := memory.NewBus(0xFFFF)
	bus.AddRAM(0x0000, 0x10000)
	for i, b := range objectBytes {
		addr := loadAddr + uint16(i)
		if !bus.WriteByte(addr, b, memory.Data) {
			log.Error("loading object file", "address", addr)
			os.Exit(1)
		}
	}

	c := cpu.New(bus, cfg, log)
	c.Registers().WriteWord(register.PC, startAddr)

	b := cpu.NewBounded(c, maxSteps)
	b.Run()

	if b.HadErrorOnStep() {
		log.Error("execution stopped", "message", b.GetErrorMessage(), "steps", b.StepCount())
		os.Exit(1)
	}
	log.Info("execution finished", "steps", b.StepCount())
}
