package ward

import (
	"time"

	"github.com/i474232898/air-quality-aggregation/internal/airquality"
)

// Seed is the fixed geography of one ward.
type Seed struct {
	Name   string
	WardNo string
	Lat    float64
	Lon    float64
}

// DelhiWards are ward centroids taken from the Delhi ward boundaries dataset.
var DelhiWards = []Seed{
	{Name: "Delhi Cantt Charge 1", WardNo: "CANT_1", Lat: 28.6189, Lon: 77.1304},
	{Name: "Delhi Cantt Charge 2", WardNo: "CANT_2", Lat: 28.6100, Lon: 77.1420},
	{Name: "Delhi Cantt Charge 3", WardNo: "CANT_3", Lat: 28.5890, Lon: 77.1498},
	{Name: "Delhi Cantt Charge 4", WardNo: "CANT_4", Lat: 28.5620, Lon: 77.1450},
	{Name: "Delhi Cantt Charge 5", WardNo: "CANT_5", Lat: 28.5750, Lon: 77.1330},
	{Name: "Delhi Cantt Charge 6", WardNo: "CANT_6", Lat: 28.5820, Lon: 77.1050},
	{Name: "Delhi Cantt Charge 7", WardNo: "CANT_7", Lat: 28.6030, Lon: 77.1150},
	{Name: "Delhi Cantt Charge 8", WardNo: "CANT_8", Lat: 28.5980, Lon: 77.1250},
	{Name: "NDMC Charge 1", WardNo: "NDMC_1", Lat: 28.6250, Lon: 77.2280},
	{Name: "NDMC Charge 2", WardNo: "NDMC_2", Lat: 28.6380, Lon: 77.2150},
	{Name: "NDMC Charge 3", WardNo: "NDMC_3", Lat: 28.6280, Lon: 77.1900},
	{Name: "NDMC Charge 4", WardNo: "NDMC_4", Lat: 28.6200, Lon: 77.2100},
	{Name: "NDMC Charge 5", WardNo: "NDMC_5", Lat: 28.6020, Lon: 77.2200},
	{Name: "NDMC Charge 6", WardNo: "NDMC_6", Lat: 28.5850, Lon: 77.2200},
	{Name: "NDMC Charge 7", WardNo: "NDMC_7", Lat: 28.5720, Lon: 77.2050},
	{Name: "NDMC Charge 8", WardNo: "NDMC_8", Lat: 28.5780, Lon: 77.1950},
	{Name: "NDMC Charge 9", WardNo: "NDMC_9", Lat: 28.5880, Lon: 77.1800},
	{Name: "Chandni Chowk", WardNo: "80", Lat: 28.6580, Lon: 77.2300},
	{Name: "Minto Road", WardNo: "81", Lat: 28.6400, Lon: 77.2350},
	{Name: "Kucha Pandit", WardNo: "82", Lat: 28.6490, Lon: 77.2250},
	{Name: "Bazar Sitaram", WardNo: "83", Lat: 28.6480, Lon: 77.2320},
	{Name: "Idgah Road", WardNo: "85", Lat: 28.6550, Lon: 77.2180},
	{Name: "Khyala", WardNo: "108", Lat: 28.6520, Lon: 77.1050},
	{Name: "Janak Puri North", WardNo: "109", Lat: 28.6280, Lon: 77.0950},
	{Name: "Mukherjee Nagar", WardNo: "11", Lat: 28.7100, Lon: 77.2100},
	{Name: "Janak Puri West", WardNo: "117", Lat: 28.6230, Lon: 77.0800},
	{Name: "Janak Puri South", WardNo: "118", Lat: 28.6160, Lon: 77.0950},
	{Name: "Milap Nagar", WardNo: "119", Lat: 28.6180, Lon: 77.0650},
	{Name: "Sita Puri", WardNo: "120", Lat: 28.6100, Lon: 77.0750},
	{Name: "Chhawla", WardNo: "133", Lat: 28.5550, Lon: 76.9350},
	{Name: "Nangli Sakrawati", WardNo: "134", Lat: 28.5800, Lon: 77.0050},
	{Name: "Kakraula", WardNo: "135", Lat: 28.6050, Lon: 77.0280},
	{Name: "Khera", WardNo: "140", Lat: 28.5950, Lon: 76.9550},
	{Name: "Dilshad Garden", WardNo: "241", Lat: 28.6850, Lon: 77.3150},
	{Name: "New Seema Puri", WardNo: "242", Lat: 28.6880, Lon: 77.3280},
	{Name: "Nand Nagri", WardNo: "243", Lat: 28.6950, Lon: 77.3080},
	{Name: "Sunder Nagari", WardNo: "244", Lat: 28.6980, Lon: 77.3180},
	{Name: "Durga Puri", WardNo: "245", Lat: 28.6900, Lon: 77.2950},
	{Name: "Ashok Nagar", WardNo: "246", Lat: 28.6960, Lon: 77.2930},
	{Name: "Ram Nagar", WardNo: "247", Lat: 28.6780, Lon: 77.2870},
	{Name: "Welcome Colony", WardNo: "248", Lat: 28.6780, Lon: 77.2750},
	{Name: "Chauhan Banger", WardNo: "249", Lat: 28.6870, Lon: 77.2700},
	{Name: "Zaffrabad", WardNo: "250", Lat: 28.6730, Lon: 77.2680},
	{Name: "Maujpur", WardNo: "252", Lat: 28.6920, Lon: 77.2760},
	{Name: "Ghonda", WardNo: "255", Lat: 28.6930, Lon: 77.2620},
	{Name: "Yamuna Vihar", WardNo: "256", Lat: 28.7010, Lon: 77.2700},
	{Name: "Subhash Mohalla", WardNo: "257", Lat: 28.6960, Lon: 77.2760},
	{Name: "Kardam Puri", WardNo: "258", Lat: 28.6950, Lon: 77.2880},
	{Name: "Janta Colony", WardNo: "259", Lat: 28.6830, Lon: 77.2800},
	{Name: "Babar Pur", WardNo: "260", Lat: 28.6850, Lon: 77.2880},
	{Name: "Jiwanpur", WardNo: "261", Lat: 28.7200, Lon: 77.2850},
	{Name: "Gokalpur", WardNo: "262", Lat: 28.7080, Lon: 77.2920},
	{Name: "Saboli", WardNo: "263", Lat: 28.7080, Lon: 77.3080},
	{Name: "Harsh Vihar", WardNo: "264", Lat: 28.7050, Lon: 77.3230},
	{Name: "Shiv Vihar", WardNo: "265", Lat: 28.7280, Lon: 77.2830},
	{Name: "Karawal Nagar East", WardNo: "266", Lat: 28.7200, Lon: 77.2730},
	{Name: "Mustafabad", WardNo: "268", Lat: 28.7100, Lon: 77.2700},
	{Name: "Khajoori Khas", WardNo: "269", Lat: 28.7100, Lon: 77.2580},
	{Name: "Karawal Nagar West", WardNo: "271", Lat: 28.7300, Lon: 77.2650},
	{Name: "Sonia Vihar", WardNo: "272", Lat: 28.7350, Lon: 77.2500},
	{Name: "Nizamuddin", WardNo: "154", Lat: 28.5950, Lon: 77.2500},
	{Name: "Bhogal", WardNo: "156", Lat: 28.5780, Lon: 77.2550},
	{Name: "Kasturba Nagar", WardNo: "157", Lat: 28.5820, Lon: 77.2350},
	{Name: "Amar Colony", WardNo: "160", Lat: 28.5620, Lon: 77.2380},
	{Name: "Malviya Nagar", WardNo: "161", Lat: 28.5380, Lon: 77.2050},
	{Name: "Hauz Rani", WardNo: "162", Lat: 28.5320, Lon: 77.2150},
	{Name: "Andrewsganj", WardNo: "159", Lat: 28.5720, Lon: 77.2320},
	{Name: "Vasant Vihar", WardNo: "165", Lat: 28.5600, Lon: 77.1550},
	{Name: "Munirka", WardNo: "166", Lat: 28.5580, Lon: 77.1750},
	{Name: "Nanak Pura", WardNo: "168", Lat: 28.5800, Lon: 77.1700},
}

type fallbackStation struct {
	name     string
	lat, lon float64
	aqi      int
}

var fallbackStations = []fallbackStation{
	{"Anand Vihar", 28.6469, 77.3164, 350},
	{"RK Puram", 28.5651, 77.1744, 280},
	{"Dwarka", 28.5921, 77.0460, 220},
	{"Rohini", 28.7495, 77.0565, 290},
	{"Punjabi Bagh", 28.6683, 77.1167, 310},
	{"Okhla", 28.5308, 77.2713, 340},
	{"Bawana", 28.7762, 77.0511, 320},
	{"Jahangirpuri", 28.7298, 77.1723, 360},
	{"Nehru Place", 28.5491, 77.2533, 250},
	{"IGI Airport", 28.5562, 77.1000, 200},
}

// FallbackStations returns the static station set used when no live source
// produced data. Only AQI is known for these stations.
func FallbackStations(now time.Time) []airquality.StationReading {
	out := make([]airquality.StationReading, 0, len(fallbackStations))
	for _, s := range fallbackStations {
		out = append(out, airquality.StationReading{
			Name:              s.name,
			Lat:               s.lat,
			Lon:               s.lon,
			AQI:               s.aqi,
			DominantPollutant: string(airquality.PM25),
			Source:            airquality.SourceFallback,
			Timestamp:         now.UTC(),
			Reliability:       airquality.DefaultReliability,
		})
	}
	return out
}
