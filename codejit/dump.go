package codejit

import (
	"fmt"
	"strings"

	"github.com/example/hammerfuzz/asmkit"
)

// Dump disassembles code and renders it one instruction per line, in
// Intel syntax, for debug logging and for tests that want to assert on
// the emitted instruction sequence without ever executing it.
func Dump(code []byte) (string, error) {
	dis, err := asmkit.NewDisassembler(asmkit.IntelSyntax)
	if err != nil {
		return "", err
	}

	var lines []string
	err = dis.All(code, func(inst asmkit.Inst) error {
		lines = append(lines, fmt.Sprintf("%04x  %s", inst.Index, inst.Dis))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("codejit: failed to disassemble - %w", err)
	}

	return strings.Join(lines, "\n"), nil
}

// Mnemonics disassembles code and returns just the ordered list of
// instruction mnemonics (mov, cmp, jg, ...), which is what most tests
// actually want to assert against.
func Mnemonics(code []byte) ([]string, error) {
	dis, err := asmkit.NewDisassembler(asmkit.GoSyntax)
	if err != nil {
		return nil, err
	}

	var mnemonics []string
	err = dis.All(code, func(inst asmkit.Inst) error {
		mnemonics = append(mnemonics, inst.Op)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("codejit: failed to disassemble - %w", err)
	}

	return mnemonics, nil
}
