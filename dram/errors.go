package dram

import "errors"

// ErrBankConflictsNotInducible is returned when a chosen MemConfig does
// not produce row conflicts on the hardware a dramanalyzer.Measurer
// probed - the matrices describe a DIMM topology the running machine
// does not actually have. The caller should pick a different Key, not
// retry the same one.
var ErrBankConflictsNotInducible = errors.New("dram: chosen MemConfig does not induce bank conflicts on this hardware")
