package domain

// RuleSet is the immutable rule configuration for one validation run
type RuleSet struct {
	// RequiredColumns must be present in every table and never hold a null cell
	RequiredColumns []string `json:"required_columns,omitempty" yaml:"required_columns"`

	// NonNullableColumns are listed in the missing data details when they hold null cells
	NonNullableColumns []string `json:"non_nullable_columns,omitempty" yaml:"non_nullable_columns"`

	// SkipColumns are case-insensitive name fragments; matching columns are not validated per row
	SkipColumns []string `json:"skip_columns,omitempty" yaml:"skip_columns"`

	// RankThreshold is the ceiling for numeric values in any column whose name contains "rank"
	RankThreshold float64 `json:"rank_threshold" yaml:"rank_threshold"`

	// FrequencySkipKeywords suppress row validation when found in the frequency column
	FrequencySkipKeywords []string `json:"frequency_skip_keywords,omitempty" yaml:"frequency_skip_keywords"`
}

// DefaultRuleSet returns the rules used when nothing is configured
func DefaultRuleSet() RuleSet {
	return RuleSet{
		SkipColumns:           []string{"q1", "q2", "q3", "q4", "h1", "h2", "quarterly", "half_yearly", "half-yearly"},
		RankThreshold:         5,
		FrequencySkipKeywords: []string{"quarterly", "half-yearly", "half_yearly"},
	}
}
