package enums

// SugarLevel is the sweetness selected for a drink.
type SugarLevel string

const (
	SugarLevel0  SugarLevel = "0 SL"
	SugarLevel50 SugarLevel = "50 SL"
	SugarLevel75 SugarLevel = "75 SL"
)

var sugarLevels = set[SugarLevel]{SugarLevel0, SugarLevel50, SugarLevel75}

func (s SugarLevel) String() string { return string(s) }
func (s SugarLevel) IsValid() bool  { return sugarLevels.has(s) }

func ParseSugarLevel(value string) (SugarLevel, error) {
	return sugarLevels.parse("sugar level", value)
}
