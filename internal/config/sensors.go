package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"feedwatch/internal/types"
)

//go:embed sensors.cue
var sensorsSchema string

const defaultSensorColor = "#64748b"

type sensorsFile struct {
	Sensors []types.SensorConfig `yaml:"sensors"`
}

// LoadSensors reads a YAML sensor table, validates it against the embedded CUE
// schema and decodes it.
func LoadSensors(path string) ([]types.SensorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sensors file: %w", err)
	}
	return ParseSensors(path, data)
}

// ParseSensors validates and decodes sensor YAML. filename is only used in
// error positions.
func ParseSensors(filename string, data []byte) ([]types.SensorConfig, error) {
	if err := validateSensors(filename, data); err != nil {
		return nil, err
	}

	var f sensorsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode sensors: %w", err)
	}
	if len(f.Sensors) == 0 {
		return nil, fmt.Errorf("sensors: at least one sensor is required")
	}

	seenKeys := make(map[string]bool, len(f.Sensors))
	seenFields := make(map[string]bool, len(f.Sensors))
	for i := range f.Sensors {
		s := &f.Sensors[i]
		if s.Key == "" {
			s.Key = strcase.ToLowerCamel(s.Name)
		}
		if s.Color == "" {
			s.Color = defaultSensorColor
		}
		if s.Min >= s.Max {
			return nil, fmt.Errorf("sensor %q: min %v must be below max %v", s.Key, s.Min, s.Max)
		}
		if seenKeys[s.Key] {
			return nil, fmt.Errorf("sensor %q: duplicate key", s.Key)
		}
		if seenFields[s.Field] {
			return nil, fmt.Errorf("sensor %q: %s already mapped", s.Key, s.Field)
		}
		seenKeys[s.Key] = true
		seenFields[s.Field] = true
	}
	return f.Sensors, nil
}

func validateSensors(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(sensorsSchema, cue.Filename("sensors.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile sensors schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("cannot parse sensors YAML: %w", err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("cannot build sensors YAML: %w", err)
	}

	final := schema.Unify(value)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("sensors schema validation failed: %w", err)
	}
	return nil
}
