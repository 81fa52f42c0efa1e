/*
 * pep9curun - microcode-level batch executor.
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

// pep9curun drives the Microcode Executor over a pre-microassembled
// program: it never parses microcode source text, only the JSON
// encoding of a micro.MicrocodeProgram a microassembler would already
// have produced (see micro.MicrocodeProgram's field names). Optional
// precondition/postcondition files use a small line-oriented
// register/memory assignment language:
//
//	A=0x0005
//	SP=0xFB00
//	Mem[0x1000]=0xFF
//
// Precondition lines are applied before the run starts; postcondition
// lines are checked after the run finishes and any mismatch is
// written to the error log.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/StanWarford/pep9suite-sub001/config"
	"github.com/StanWarford/pep9suite-sub001/memory"
	"github.com/StanWarford/pep9suite-sub001/micro"
	"github.com/StanWarford/pep9suite-sub001/pep9log"
	"github.com/StanWarford/pep9suite-sub001/register"
)

// registerNumbers maps the assignment language's register names to
// register.File addresses, word-addressed (the name refers to the
// register pair's high byte).
var registerNumbers = map[string]int{
	"A": register.A, "X": register.X, "SP": register.SP, "PC": register.PC,
	"T2": register.T2, "T3": register.T3, "T4": register.T4,
	"T5": register.T5, "T6": register.T6,
}

// byteRegisterNumbers holds the single-byte registers the assignment
// language may also target.
var byteRegisterNumbers = map[string]int{
	"IS": register.IS, "OS": register.OS, "T1": register.T1,
}

type assignment struct {
	isMemory bool
	isByte   bool
	reg      string
	addr     uint16
	value    uint16
}

func parseAssignments(path string) ([]assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []assignment
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("line %d: missing '='", lineNo)
		}
		lhs := strings.TrimSpace(line[:eq])
		rhs := strings.TrimSpace(line[eq+1:])
		value, err := strconv.ParseUint(rhs, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value %q: %w", lineNo, rhs, err)
		}
		if strings.HasPrefix(lhs, "Mem[") && strings.HasSuffix(lhs, "]") {
			addr, err := strconv.ParseUint(lhs[4:len(lhs)-1], 0, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad address %q: %w", lineNo, lhs, err)
			}
			out = append(out, assignment{isMemory: true, addr: uint16(addr), value: uint16(value)})
			continue
		}
		if _, ok := byteRegisterNumbers[lhs]; ok {
			out = append(out, assignment{isByte: true, reg: lhs, value: uint16(value)})
			continue
		}
		if _, ok := registerNumbers[lhs]; ok {
			out = append(out, assignment{reg: lhs, value: uint16(value)})
			continue
		}
		return nil, fmt.Errorf("line %d: unknown register %q", lineNo, lhs)
	}
	return out, sc.Err()
}

func applyAssignments(regs *register.File, bus *memory.Bus, assigns []assignment) {
	for _, a := range assigns {
		switch {
		case a.isMemory:
			bus.WriteByte(a.addr, byte(a.value), memory.Data)
		case a.isByte:
			regs.WriteByte(byteRegisterNumbers[a.reg], byte(a.value))
		default:
			regs.WriteWord(registerNumbers[a.reg], a.value)
		}
	}
}

// checkAssignments reports every assignment whose live value disagrees
// with the postcondition, formatted one per line.
func checkAssignments(regs *register.File, bus *memory.Bus, assigns []assignment) []string {
	var failures []string
	for _, a := range assigns {
		switch {
		case a.isMemory:
			got, _ := bus.ReadByte(a.addr, memory.Data)
			if uint16(got) != a.value {
				failures = append(failures, fmt.Sprintf("Mem[0x%04X]: expected 0x%02X, got 0x%02X", a.addr, a.value, got))
			}
		case a.isByte:
			got := regs.ReadByteCurrent(byteRegisterNumbers[a.reg])
			if uint16(got) != a.value {
				failures = append(failures, fmt.Sprintf("%s: expected 0x%02X, got 0x%02X", a.reg, a.value, got))
			}
		default:
			got := regs.ReadWordCurrent(registerNumbers[a.reg])
			if got != a.value {
				failures = append(failures, fmt.Sprintf("%s: expected 0x%04X, got 0x%04X", a.reg, a.value, got))
			}
		}
	}
	return failures
}

func loadProgram(path string) (*micro.MicrocodeProgram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var prog micro.MicrocodeProgram
	if err := json.Unmarshal(data, &prog); err != nil {
		return nil, fmt.Errorf("decoding microcode program: %w", err)
	}
	return &prog, nil
}

func main() {
	optSource := getopt.StringLong("source", 's', "", "Microassembled program (JSON-encoded micro.MicrocodeProgram)")
	optPre := getopt.StringLong("pre", 'p', "", "Precondition assignment file")
	optPost := getopt.StringLong("post", 0, "", "Postcondition assignment file, checked after the run")
	optD2 := getopt.BoolLong("d2", 0, "Use the two-byte datapath bus width")
	optErrLog := getopt.StringLong("errlog", 'e', "", "Error log file for postcondition failures and control errors")
	optMaxCycles := getopt.StringLong("max-cycles", 'm', "1000000", "Cycle ceiling before aborting as an endless loop")
	optDebug := getopt.BoolLong("debug", 'd', "Mirror log records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	log := pep9log.New(nil, *optDebug)
	slog.SetDefault(log)

	var errLog *os.File
	if *optErrLog != "" {
		f, err := os.Create(*optErrLog)
		if err != nil {
			fmt.Fprintln(os.Stderr, "pep9curun:", err)
			os.Exit(1)
		}
		errLog = f
		defer errLog.Close()
	}
	reportError := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		log.Error(msg)
		if errLog != nil {
			fmt.Fprintln(errLog, msg)
		}
	}

	if *optSource == "" {
		reportError("no microcode program given, use -s")
		os.Exit(1)
	}
	prog, err := loadProgram(*optSource)
	if err != nil {
		reportError("loading microcode program: %v", err)
		os.Exit(1)
	}

	maxCycles, err := strconv.ParseUint(*optMaxCycles, 0, 64)
	if err != nil {
		reportError("bad -max-cycles value %q", *optMaxCycles)
		os.Exit(1)
	}

	cfg := config.Default()
	busWidth := config.OneByteBus
	if *optD2 {
		busWidth = config.TwoByteBus
	}
	cfg.Bus = busWidth

	bus := memory.NewBus(0xFFFF)
	bus.AddRAM(0x0000, 0x10000)
	regs := register.New()

	if *optPre != "" {
		pre, err := parseAssignments(*optPre)
		if err != nil {
			reportError("reading precondition file: %v", err)
			os.Exit(1)
		}
		applyAssignments(regs, bus, pre)
	}

	dp := micro.NewDatapath(bus, regs, busWidth)
	exec := micro.NewExecutor(prog, dp, regs, bus, cfg, log)
	bounded := micro.NewBounded(exec, maxCycles)
	bounded.Run()

	if bounded.HadErrorOnStep() {
		reportError("execution stopped: %s (cycle %d)", bounded.GetErrorMessage(), bounded.CycleCount())
		os.Exit(1)
	}

	if *optPost != "" {
		post, err := parseAssignments(*optPost)
		if err != nil {
			reportError("reading postcondition file: %v", err)
			os.Exit(1)
		}
		if failures := checkAssignments(regs, bus, post); len(failures) > 0 {
			for _, f := range failures {
				reportError("postcondition failed: %s", f)
			}
			os.Exit(1)
		}
	}

	log.Info("execution finished", "cycles", bounded.CycleCount())
}
