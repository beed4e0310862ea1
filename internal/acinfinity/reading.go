package acinfinity

import (
	"fmt"
	"math"
	"strings"
)

// Sensor field names, in output order.
const (
	FieldTemperatureC = "temperature_c"
	FieldTemperatureF = "temperature_f"
	FieldHumidity     = "humidity"
	FieldVPD          = "vpd_kpa"
)

var fieldNames = []string{FieldTemperatureC, FieldTemperatureF, FieldHumidity, FieldVPD}

// Response is a decoded controller reply: SensorReading or Ack.
type Response interface {
	response()
}

// SensorReading is a complete sensor sample. All four fields are always set.
type SensorReading struct {
	TemperatureC float64 `json:"temperature_c"`
	TemperatureF float64 `json:"temperature_f"`
	Humidity     float64 `json:"humidity"`
	VPDkPa       float64 `json:"vpd_kpa"`
}

func (SensorReading) response() {}

// NewSensorReading derives the Fahrenheit temperature from temperatureC.
func NewSensorReading(temperatureC, humidity, vpdKPa float64) SensorReading {
	return SensorReading{
		TemperatureC: temperatureC,
		TemperatureF: (temperatureC*9.0)/5.0 + 32.0,
		Humidity:     humidity,
		VPDkPa:       vpdKPa,
	}
}

// FieldNames lists the sensor fields in output order.
func FieldNames() []string {
	names := make([]string, len(fieldNames))
	copy(names, fieldNames)
	return names
}

// ValidateField reports whether name is a known sensor field.
func ValidateField(name string) error {
	for _, f := range fieldNames {
		if f == name {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown field %q (available: %s)", ErrInvalidArgument, name, strings.Join(fieldNames, ", "))
}

// Field returns the value of a single sensor field by name.
func (r SensorReading) Field(name string) (float64, error) {
	switch name {
	case FieldTemperatureC:
		return r.TemperatureC, nil
	case FieldTemperatureF:
		return r.TemperatureF, nil
	case FieldHumidity:
		return r.Humidity, nil
	case FieldVPD:
		return r.VPDkPa, nil
	default:
		return 0, ValidateField(name)
	}
}

// Ack confirms that the controller accepted a command.
type Ack struct {
	Sequence uint16 `json:"sequence"`
}

func (Ack) response() {}

// VPD returns the air vapour-pressure deficit in kPa for a temperature in
// degrees Celsius and a relative humidity in percent (Tetens equation),
// rounded to two decimals like the controller reports it.
func VPD(temperatureC, humidity float64) float64 {
	svp := 0.61078 * math.Exp(17.27*temperatureC/(temperatureC+237.3))
	vpd := svp * (1 - humidity/100)
	if vpd < 0 {
		vpd = 0
	}
	return math.Round(vpd*100) / 100
}
