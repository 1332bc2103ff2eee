package patternio

import (
	"encoding/json"
	"fmt"

	"github.com/example/hammerfuzz/addrmap"
	"github.com/example/hammerfuzz/dram"
	"github.com/example/hammerfuzz/hammerpattern"
)

// Marshal serializes pattern and the mappings generated for it into a
// single JSON document.
func Marshal(pattern *hammerpattern.HammeringPattern, mappings []*addrmap.Mapping) ([]byte, error) {
	doc := wireDocument{
		InstanceID: pattern.InstanceID,
		BasePeriod: pattern.BasePeriod,
		MaxPeriod:  pattern.MaxPeriod,
	}

	doc.Accesses = make([]int, len(pattern.Accesses))
	for i, agg := range pattern.Accesses {
		doc.Accesses[i] = agg.ID
	}

	doc.AggAccessPatterns = make([]wireAccessPattern, len(pattern.AggAccessPatterns))
	for i, aap := range pattern.AggAccessPatterns {
		ids := make([]int, len(aap.Aggressors))
		for j, agg := range aap.Aggressors {
			ids[j] = agg.ID
		}
		doc.AggAccessPatterns[i] = wireAccessPattern{
			Period:       aap.Period,
			Amplitude:    aap.Amplitude,
			Offset:       aap.Offset,
			AggressorIDs: ids,
		}
	}

	for _, m := range mappings {
		if m.InstanceID != pattern.InstanceID {
			return nil, fmt.Errorf("patternio: mapping instance ID %q does not match pattern %q",
				m.InstanceID, pattern.InstanceID)
		}

		rows := make(map[int]int, len(m.AggressorToAddr))
		for id, addr := range m.AggressorToAddr {
			rows[id] = int(addr.Row)
		}

		doc.Mappings = append(doc.Mappings, wireMapping{
			BankNo:         m.BankNo,
			MinRow:         m.MinRow,
			MaxRow:         m.MaxRow,
			AggressorToRow: rows,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal is the inverse of Marshal.
func Unmarshal(data []byte) (*hammerpattern.HammeringPattern, []*addrmap.Mapping, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("patternio: failed to decode JSON - %w", err)
	}

	pattern := &hammerpattern.HammeringPattern{
		InstanceID: doc.InstanceID,
		BasePeriod: doc.BasePeriod,
		MaxPeriod:  doc.MaxPeriod,
	}

	pattern.Accesses = make([]hammerpattern.Aggressor, len(doc.Accesses))
	for i, id := range doc.Accesses {
		pattern.Accesses[i] = hammerpattern.Aggressor{ID: id}
	}

	pattern.AggAccessPatterns = make([]hammerpattern.AggressorAccessPattern, len(doc.AggAccessPatterns))
	for i, wap := range doc.AggAccessPatterns {
		aggressors := make([]hammerpattern.Aggressor, len(wap.AggressorIDs))
		for j, id := range wap.AggressorIDs {
			aggressors[j] = hammerpattern.Aggressor{ID: id}
		}
		pattern.AggAccessPatterns[i] = hammerpattern.AggressorAccessPattern{
			Period:     wap.Period,
			Amplitude:  wap.Amplitude,
			Offset:     wap.Offset,
			Aggressors: aggressors,
		}
	}

	mappings := make([]*addrmap.Mapping, len(doc.Mappings))
	for i, wm := range doc.Mappings {
		aggressorToAddr := make(map[int]dram.DRAMAddr, len(wm.AggressorToRow))
		for id, row := range wm.AggressorToRow {
			aggressorToAddr[id] = dram.DRAMAddr{
				Bank: uint64(wm.BankNo),
				Row:  uint64(row),
				Col:  0,
			}
		}
		mappings[i] = addrmap.NewMapping(doc.InstanceID, wm.BankNo, wm.MinRow, wm.MaxRow, aggressorToAddr)
	}

	return pattern, mappings, nil
}
