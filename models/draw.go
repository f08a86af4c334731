package models

// Number ranges for the Lotto draw format served by the Pais archive.
const (
	MainNumberCount = 6
	MainNumberMin   = 1
	MainNumberMax   = 37
	BonusNumberMin  = 1
	BonusNumberMax  = 7
)

// DrawRecord represents a single historical lottery draw.
type DrawRecord struct {
	// DrawID is the archive's draw identifier, unique within a dataset
	DrawID int `json:"draw_id"`

	// Date is the draw date normalized to ISO YYYY-MM-DD
	Date string `json:"date"`

	// Numbers holds the six main numbers in drawn order, each in [1,37],
	// pairwise distinct
	Numbers []int `json:"numbers"`

	// Bonus is the strong number in [1,7]
	Bonus int `json:"bonus"`
}

// IsValid reports whether the record satisfies all range and distinctness
// invariants. Records failing any check are dropped at parse time, never
// retained as partial.
func (r DrawRecord) IsValid() bool {
	if r.DrawID <= 0 || r.Date == "" {
		return false
	}
	if len(r.Numbers) != MainNumberCount {
		return false
	}
	seen := make(map[int]bool, MainNumberCount)
	for _, n := range r.Numbers {
		if n < MainNumberMin || n > MainNumberMax {
			return false
		}
		if seen[n] {
			return false
		}
		seen[n] = true
	}
	return r.Bonus >= BonusNumberMin && r.Bonus <= BonusNumberMax
}
