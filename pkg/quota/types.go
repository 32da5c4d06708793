package quota

import "time"

// MonthFormat is the layout of State.CurrentMonth.
const MonthFormat = "2006-01"

// DateFormat is the layout of State.LastCollectionDate.
const DateFormat = "2006-01-02"

// Default limits applied when no persisted state exists. Copernicus Data
// Space grants 10,000 processing units and 10,000 requests per calendar
// month on the free tier.
const (
	DefaultMonthlyLimitPU       = 10000
	DefaultMonthlyLimitRequests = 10000
	DefaultDailyBudgetPU        = 300
	DefaultDailyBudgetRequests  = 300
)

// State is the persisted quota document. It is replaced as a whole on every
// save; there are no partial updates.
type State struct {
	MonthlyLimitPU       int       `json:"monthly_limit_pu"`
	MonthlyLimitRequests int       `json:"monthly_limit_requests"`
	CurrentMonth         string    `json:"current_month"`
	ProcessingUnitsUsed  int       `json:"processing_units_used"`
	RequestsUsed         int       `json:"requests_used"`
	DailyBudgetPU        int       `json:"daily_budget_pu"`
	DailyBudgetRequests  int       `json:"daily_budget_requests"`
	CollectionsToday     int       `json:"collections_today"`
	LastCollectionDate   string    `json:"last_collection_date,omitempty"`
	LastUpdated          time.Time `json:"last_updated"`
}

// NewState returns a zeroed state for the month containing now, with the
// default limits.
func NewState(now time.Time) *State {
	return &State{
		MonthlyLimitPU:       DefaultMonthlyLimitPU,
		MonthlyLimitRequests: DefaultMonthlyLimitRequests,
		CurrentMonth:         now.Format(MonthFormat),
		DailyBudgetPU:        DefaultDailyBudgetPU,
		DailyBudgetRequests:  DefaultDailyBudgetRequests,
	}
}

// Operation identifies a gated data-collection operation. The value doubles
// as the cost-table key and the label recorded in logs and metrics.
type Operation string

const (
	// OpMapRGB is a true-color satellite map render.
	OpMapRGB Operation = "map_rgb"
	// OpMapNDVI is a colorized NDVI map render.
	OpMapNDVI Operation = "map_ndvi"
	// OpNDVI is a numeric NDVI retrieval.
	OpNDVI Operation = "ndvi"
	// OpNDWI is a numeric NDWI retrieval.
	OpNDWI Operation = "ndwi"
	// OpNDSI is a numeric NDSI retrieval.
	OpNDSI Operation = "ndsi"
	// OpZonalStats is a Statistical API zonal-statistics query.
	OpZonalStats Operation = "zonal_stats"
)

// DefaultOperationCost is charged for operations missing from the cost table.
const DefaultOperationCost = 30

// operationCosts estimates processing units consumed per operation kind.
var operationCosts = map[Operation]int{
	OpMapRGB:     50,
	OpMapNDVI:    50,
	OpNDVI:       30,
	OpNDWI:       30,
	OpNDSI:       30,
	OpZonalStats: 40,
}

// EstimatedCost returns the estimated processing-unit cost for the
// operation, or DefaultOperationCost for unknown kinds.
func (op Operation) EstimatedCost() int {
	if cost, ok := operationCosts[op]; ok {
		return cost
	}
	return DefaultOperationCost
}

// Mode is a named collection profile with an aggregate cost estimate used
// for the upfront admission check before a multi-step run.
type Mode string

const (
	// ModeNormal collects maps and all indices (~220 PU).
	ModeNormal Mode = "normal"
	// ModeEconomic collects indices only (~90 PU).
	ModeEconomic Mode = "economic"
	// ModeMinimal collects NDVI only (~30 PU).
	ModeMinimal Mode = "minimal"
)

var modeCosts = map[Mode]int{
	ModeNormal:   220,
	ModeEconomic: 90,
	ModeMinimal:  30,
}

// EstimatedCost returns the aggregate cost estimate for a whole run in this
// mode. Unknown modes are priced as ModeNormal.
func (m Mode) EstimatedCost() int {
	if cost, ok := modeCosts[m]; ok {
		return cost
	}
	return modeCosts[ModeNormal]
}

// ParseMode validates a mode name from config or the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNormal, ModeEconomic, ModeMinimal:
		return Mode(s), nil
	}
	return "", ErrUnknownMode
}

// Decision is the result of an admission check.
type Decision struct {
	// Allowed reports whether the estimated cost fits the remaining budget.
	Allowed bool

	// RemainingPU is the processing-unit allowance left this month.
	RemainingPU int

	// RemainingRequests is the request allowance left this month.
	RemainingRequests int

	// Reason names the exhausted counter when the check is denied. Empty
	// when Allowed is true.
	Reason string
}

// Status is a read-only snapshot of the month's budget standing.
type Status struct {
	PUUsed            int     `json:"pu_used"`
	PURemaining       int     `json:"pu_remaining"`
	PULimit           int     `json:"pu_limit"`
	RequestsUsed      int     `json:"requests_used"`
	RequestsRemaining int     `json:"requests_remaining"`
	RequestsLimit     int     `json:"requests_limit"`
	PercentUsed       float64 `json:"percent_used"`
	DaysRemaining     int     `json:"days_remaining"`
	SafeDailyPU       int     `json:"safe_daily_pu"`
	CollectionsToday  int     `json:"collections_today"`
}

// CheckOption configures a Check call.
type CheckOption func(*checkOptions)

type checkOptions struct {
	minRequests int
}

// WithMinRequests overrides the minimum request allowance a check requires.
// The default is 1.
func WithMinRequests(n int) CheckOption {
	return func(opts *checkOptions) {
		opts.minRequests = n
	}
}

// CommitOption configures a Commit call.
type CommitOption func(*commitOptions)

type commitOptions struct {
	cost *int
}

// WithCost overrides the cost-table estimate with the actual processing-unit
// cost of the completed operation.
func WithCost(pu int) CommitOption {
	return func(opts *commitOptions) {
		opts.cost = &pu
	}
}
