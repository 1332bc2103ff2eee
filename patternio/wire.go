package patternio

// wireDocument is the on-disk JSON shape: one HammeringPattern plus
// every AddressMapping that has been generated for it.
type wireDocument struct {
	InstanceID        string             `json:"instance_id"`
	Accesses          []int              `json:"accesses"`
	AggAccessPatterns []wireAccessPattern `json:"agg_access_patterns"`
	BasePeriod        int                `json:"base_period"`
	MaxPeriod         int                `json:"max_period"`
	Mappings          []wireMapping      `json:"mappings"`
}

type wireAccessPattern struct {
	Period       int   `json:"period"`
	Amplitude    int   `json:"amplitude"`
	Offset       int   `json:"offset"`
	AggressorIDs []int `json:"aggressor_ids"`
}

type wireMapping struct {
	BankNo         int         `json:"bank_no"`
	MinRow         int         `json:"min_row"`
	MaxRow         int         `json:"max_row"`
	AggressorToRow map[int]int `json:"aggressor_to_row"`
}
