package airquality

// MaxAQI is the top of every AQI scale used here.
const MaxAQI = 500

// Breakpoint maps a concentration band onto an AQI band.
type Breakpoint struct {
	LowC, HighC     float64
	LowAQI, HighAQI int
}

// BreakpointTable is an ordered piecewise-linear concentration to AQI mapping.
type BreakpointTable []Breakpoint

// IndianPM25 is the PM2.5 table applied to CPCB records.
var IndianPM25 = BreakpointTable{
	{LowC: 0, HighC: 30, LowAQI: 0, HighAQI: 50},
	{LowC: 30, HighC: 60, LowAQI: 50, HighAQI: 100},
	{LowC: 60, HighC: 90, LowAQI: 100, HighAQI: 200},
	{LowC: 90, HighC: 120, LowAQI: 200, HighAQI: 300},
	{LowC: 120, HighC: 250, LowAQI: 300, HighAQI: 400},
	{LowC: 250, HighC: 380, LowAQI: 400, HighAQI: 500},
}

// USEPAPM25 is the PM2.5 table applied to OpenAQ locations.
var USEPAPM25 = BreakpointTable{
	{LowC: 0, HighC: 12, LowAQI: 0, HighAQI: 50},
	{LowC: 12, HighC: 35.4, LowAQI: 50, HighAQI: 100},
	{LowC: 35.4, HighC: 55.4, LowAQI: 100, HighAQI: 150},
	{LowC: 55.4, HighC: 150.4, LowAQI: 150, HighAQI: 200},
	{LowC: 150.4, HighC: 250.4, LowAQI: 200, HighAQI: 300},
	{LowC: 250.4, HighC: 350.4, LowAQI: 300, HighAQI: 400},
	{LowC: 350.4, HighC: 500.4, LowAQI: 400, HighAQI: 500},
}

// AQI converts a concentration to an index by linear interpolation inside
// the matching band, truncated to an integer. Non-positive input yields 0,
// input above the last band yields MaxAQI.
func (t BreakpointTable) AQI(c float64) int {
	if c <= 0 || len(t) == 0 {
		return 0
	}
	for _, bp := range t {
		if c <= bp.HighC {
			span := float64(bp.HighAQI - bp.LowAQI)
			return int(float64(bp.LowAQI) + (c-bp.LowC)*span/(bp.HighC-bp.LowC))
		}
	}
	return MaxAQI
}
