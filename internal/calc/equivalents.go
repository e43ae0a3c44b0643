package calc

// EPA equivalency factors per short ton of CO2.
const (
	treesPerTon   = 16.5 // seedlings grown for 10 years
	carsPerTon    = 0.22 // passenger cars driven for one year
	homesPerTon   = 0.18 // homes' electricity use for one year
	gallonsPerTon = 113  // gallons of gasoline burned
)

// Equivalents expresses a CO2 reduction in everyday terms.
type Equivalents struct {
	TreesPlanted    int64 `json:"trees_planted"`
	CarsOffRoad     int64 `json:"cars_off_road"`
	HomesPowered    int64 `json:"homes_powered"`
	GallonsGasoline int64 `json:"gallons_gasoline_saved"`
}

// EquivalentsFor converts tons of CO2 to rounded equivalents.
func EquivalentsFor(tons float64) Equivalents {
	return Equivalents{
		TreesPlanted:    RoundInt(tons * treesPerTon),
		CarsOffRoad:     RoundInt(tons * carsPerTon),
		HomesPowered:    RoundInt(tons * homesPerTon),
		GallonsGasoline: RoundInt(tons * gallonsPerTon),
	}
}
