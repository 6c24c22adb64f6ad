package excel

// ReaderConfig controls how life-data columns are recognised
type ReaderConfig struct {
	TimeColumns     []string `json:"time_columns"`
	StateColumns    []string `json:"state_columns"`
	QuantityColumns []string `json:"quantity_columns"`
	// MaxObservations caps the expanded observation count (0 disables the cap)
	MaxObservations int `json:"max_observations"`
}

// DefaultReaderConfig returns the header aliases accepted by the importer
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		TimeColumns:     []string{"time", "t", "hours", "cycles", "age"},
		StateColumns:    []string{"state", "status", "event", "type"},
		QuantityColumns: []string{"qty", "quantity", "count", "n"},
		MaxObservations: 100000,
	}
}
