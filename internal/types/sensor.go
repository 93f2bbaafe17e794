package types

// SensorConfig maps one channel field to a named sensor with display bounds.
type SensorConfig struct {
	Key   string  `yaml:"key" json:"key"`
	Field string  `yaml:"field" json:"field"`
	Name  string  `yaml:"name" json:"name"`
	Unit  string  `yaml:"unit" json:"unit"`
	Color string  `yaml:"color" json:"color"`
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
}

// DefaultSensors is the sensor table used when no sensors file is configured.
func DefaultSensors() []SensorConfig {
	return []SensorConfig{
		{Key: "temperature", Field: "field1", Name: "Temperature", Unit: "°C", Color: "#f59e0b", Min: 15, Max: 35},
		{Key: "humidity", Field: "field2", Name: "Humidity", Unit: "%", Color: "#3b82f6", Min: 30, Max: 80},
		{Key: "pressure", Field: "field3", Name: "Pressure", Unit: "hPa", Color: "#8b5cf6", Min: 980, Max: 1040},
		{Key: "waterLevel", Field: "field4", Name: "Water Level", Unit: "cm", Color: "#06b6d4", Min: 0, Max: 100},
	}
}
