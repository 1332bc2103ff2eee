package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/example/hammerfuzz/addrmap"
	"github.com/example/hammerfuzz/asmkit"
	"github.com/example/hammerfuzz/codejit"
	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/fuzzparams"
	"github.com/example/hammerfuzz/patternio"
)

const (
	outputFormatArg = "o"
	asmSyntaxArg    = "s"
	mappingArg      = "mapping"
	baseArg         = "base"
	channelsArg     = "channels"
	dimmsArg        = "dimms"
	ranksArg        = "ranks"
	banksArg        = "banks"
	aggRoundsArg    = "agg-rounds"
	refreshArg      = "refresh-intervals"
	flushingArg     = "flushing"
	fencingArg      = "fencing"
	strategyArg     = "strategy"
	helpArg         = "h"

	intelSyntax = "intel"
	attSyntax   = "att"
	goSyntax    = "go"

	hexFormat = "hex"
	b64Format = "b64"

	prettyFormat      = "pretty"
	jsonDisassFormat  = "json"
	jsonVerboseFormat = "jsonv"
	goFormat          = "go"

	earliest = "earliest"
	latest   = "latest"

	strict   = "strict"
	original = "original"

	appName = "hammerdump"
	usage   = appName + `
DESCRIPTION
  Reads a hammering pattern and its bank mappings (as written by
  patternio.Marshal) from stdin, re-assembles the hammering routine
  codejit would have jitted for it, and disassembles the result.

USAGE
  ` + appName + ` [options] < some-pattern.json

EXAMPLES:
  Dump a saved pattern's routine in Intel syntax:
    $ ` + appName + ` < pattern.json

  Dump it as a Go []byte literal instead:
    $ ` + appName + ` -` + outputFormatArg + ` ` + goFormat + ` < pattern.json

OPTIONS
`
)

func main() {
	log.SetFlags(0)

	err := mainWithError()
	if err != nil {
		log.Fatalln("fatal:", err)
	}
}

func mainWithError() error {
	help := flag.Bool(
		helpArg,
		false,
		"Display this information")

	outputFormat := flag.String(
		outputFormatArg,
		prettyFormat,
		"The output format (pretty, hex, b64, json, jsonv, go)")

	syntax := flag.String(
		asmSyntaxArg,
		intelSyntax,
		"The desired assembly syntax (intel, att, go)")

	mappingIndex := flag.Int(
		mappingArg,
		0,
		"Which of the document's mappings to assemble a routine for")

	base := flag.String(
		baseArg,
		"0",
		"The virtual base address to translate DRAM addresses against, as hex or decimal")

	channels := flag.Int(channelsArg, 1, "DIMM topology: channel count")
	dimms := flag.Int(dimmsArg, 1, "DIMM topology: DIMM count")
	ranks := flag.Int(ranksArg, 1, "DIMM topology: rank count")
	banks := flag.Int(banksArg, 16, "DIMM topology: bank count")

	aggRounds := flag.Int(aggRoundsArg, 8, "Inner hammering rounds per REFRESH interval")
	refreshIntervals := flag.Int(refreshArg, 2, "Number of REFRESH intervals to hammer across")
	flushing := flag.String(flushingArg, earliest, "Flush timing: earliest or latest")
	fencing := flag.String(fencingArg, latest, "Fence timing: earliest or latest")
	strategy := flag.String(strategyArg, original, "Hammering strategy: strict or original")

	flag.Parse()

	if *help {
		os.Stderr.WriteString(usage)
		flag.PrintDefaults()
		os.Exit(1)
	}

	doc, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read pattern document from stdin - %w", err)
	}

	pattern, mappings, err := patternio.Unmarshal(doc)
	if err != nil {
		return fmt.Errorf("failed to decode pattern document - %w", err)
	}

	if *mappingIndex < 0 || *mappingIndex >= len(mappings) {
		return fmt.Errorf("mapping index %d out of range; document has %d mapping(s)",
			*mappingIndex, len(mappings))
	}
	mapping := mappings[*mappingIndex]

	registry := dram.NewRegistry()
	key := dram.Key{Channels: *channels, DIMMs: *dimms, Ranks: *ranks, Banks: *banks}
	memConfig, ok := registry.Lookup(key)
	if !ok {
		return fmt.Errorf("no MemConfig registered for topology %+v", key)
	}

	baseAddr, err := strconv.ParseUint(*base, 0, 64)
	if err != nil {
		return fmt.Errorf("failed to parse -%s %q - %w", baseArg, *base, err)
	}

	translator := dram.NewTranslator(memConfig)
	translator.SetBase(uintptr(baseAddr))

	addresses, err := addrmap.ExportAddresses(mapping, pattern, translator)
	if err != nil {
		return fmt.Errorf("failed to export addresses - %w", err)
	}

	flushingStrategy, err := parseFlushing(*flushing)
	if err != nil {
		return err
	}
	fencingStrategy, err := parseFencing(*fencing)
	if err != nil {
		return err
	}
	hammeringStrategy, err := parseStrategy(*strategy)
	if err != nil {
		return err
	}

	jitter := codejit.NewJitter()
	code, err := jitter.Build(codejit.EmitConfig{
		NOPAddrs: [2]uintptr{
			translator.ToVirt(dram.DRAMAddr{Bank: uint64(mapping.BankNo), Row: uint64(mapping.MaxRow + 4), Col: 0}),
			translator.ToVirt(dram.DRAMAddr{Bank: uint64(mapping.BankNo), Row: uint64(mapping.MaxRow + 6), Col: 0}),
		},
		Addresses:           addresses,
		AggRounds:           *aggRounds,
		NumRefreshIntervals: *refreshIntervals,
		Flushing:            flushingStrategy,
		Fencing:             fencingStrategy,
		Strategy:            hammeringStrategy,
	})
	if err != nil {
		return fmt.Errorf("failed to assemble routine - %w", err)
	}

	disassembler, err := asmkit.NewDisassembler(asmkit.DisassemblySyntax(*syntax))
	if err != nil {
		return fmt.Errorf("failed to create disassembler - %w", err)
	}

	output := bytes.NewBuffer(nil)
	var writer instWriter

	switch *outputFormat {
	case prettyFormat:
		writer = &disassWriter{w: output}
	case hexFormat:
		writer = &encoderWriter{encoder: hex.NewEncoder(output), w: output}
	case b64Format:
		writer = &encoderWriter{encoder: base64.NewEncoder(base64.StdEncoding, output), w: output}
	case jsonDisassFormat:
		writer = &jsonDisassWriter{indent: "  ", w: output}
	case jsonVerboseFormat:
		writer = &jsonVerboseWriter{indent: "  ", w: output}
	case goFormat:
		writer = &goByteSliceWriter{w: output}
	default:
		return fmt.Errorf("unsupported output format: %q", *outputFormat)
	}

	err = disassembler.All(code, func(inst asmkit.Inst) error {
		return writer.Write(inst)
	})
	if err != nil {
		return fmt.Errorf("failed to disassemble assembled routine - %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write remaining data to output - %w", err)
	}

	_, err = io.Copy(os.Stdout, output)
	return err
}

func parseFlushing(s string) (fuzzparams.FlushingStrategy, error) {
	switch s {
	case earliest:
		return fuzzparams.FlushEarliest, nil
	case latest:
		return fuzzparams.FlushLatest, nil
	default:
		return 0, fmt.Errorf("unsupported -%s value: %q", flushingArg, s)
	}
}

func parseFencing(s string) (fuzzparams.FencingStrategy, error) {
	switch s {
	case earliest:
		return fuzzparams.FenceEarliest, nil
	case latest:
		return fuzzparams.FenceLatest, nil
	default:
		return 0, fmt.Errorf("unsupported -%s value: %q", fencingArg, s)
	}
}

func parseStrategy(s string) (fuzzparams.HammeringStrategy, error) {
	switch s {
	case strict:
		return fuzzparams.Strict, nil
	case original:
		return fuzzparams.Original, nil
	default:
		return 0, fmt.Errorf("unsupported -%s value: %q", strategyArg, s)
	}
}

type instWriter interface {
	Write(asmkit.Inst) error
	Flush() error
}

var _ instWriter = (*disassWriter)(nil)

type disassWriter struct {
	w io.Writer
}

func (o *disassWriter) Write(inst asmkit.Inst) error {
	_, err := o.w.Write([]byte(inst.Dis + "\n"))
	return err
}

func (o *disassWriter) Flush() error {
	return nil
}

var _ instWriter = (*encoderWriter)(nil)

type encoderWriter struct {
	encoder io.Writer
	w       io.Writer
}

func (o *encoderWriter) Write(inst asmkit.Inst) error {
	_, err := o.encoder.Write(inst.Bin)
	return err
}

func (o *encoderWriter) Flush() error {
	if closer, ok := o.encoder.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}

	_, err := o.w.Write([]byte{'\n'})
	return err
}

var _ instWriter = (*jsonDisassWriter)(nil)

type jsonDisassWriter struct {
	indent string
	w      io.Writer
	buf    []string
}

func (o *jsonDisassWriter) Write(inst asmkit.Inst) error {
	o.buf = append(o.buf, inst.Dis)
	return nil
}

func (o *jsonDisassWriter) Flush() error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", o.indent)
	return enc.Encode(o.buf)
}

var _ instWriter = (*jsonVerboseWriter)(nil)

type jsonVerboseWriter struct {
	indent string
	w      io.Writer
	buf    []json.RawMessage
}

func (o *jsonVerboseWriter) Write(inst asmkit.Inst) error {
	item, err := json.MarshalIndent(&inst, "", o.indent)
	if err != nil {
		return err
	}

	o.buf = append(o.buf, item)
	return nil
}

func (o *jsonVerboseWriter) Flush() error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", o.indent)
	return enc.Encode(o.buf)
}

var _ instWriter = (*goByteSliceWriter)(nil)

type goByteSliceWriter struct {
	isInit bool
	w      io.Writer
}

func (o *goByteSliceWriter) Write(inst asmkit.Inst) error {
	if !o.isInit {
		o.isInit = true

		if _, err := o.w.Write([]byte("[]byte {\n")); err != nil {
			return err
		}
	}

	if _, err := o.w.Write([]byte{'\t'}); err != nil {
		return err
	}

	for _, b := range inst.Bin {
		if _, err := fmt.Fprintf(o.w, "0x%x, ", b); err != nil {
			return err
		}
	}

	_, err := o.w.Write([]byte("// " + inst.Dis + "\n"))
	return err
}

func (o *goByteSliceWriter) Flush() error {
	_, err := o.w.Write([]byte{'}', '\n'})
	return err
}
