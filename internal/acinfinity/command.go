package acinfinity

import "fmt"

// Fan level bounds accepted by the controller.
const (
	MinFanLevel = 0
	MaxFanLevel = 10
)

// Command is a request sent to the controller. The set of commands is closed.
type Command interface {
	fmt.Stringer
	command()
}

// ReadSensors asks for the current temperature, humidity and VPD.
type ReadSensors struct{}

func (ReadSensors) command() {}

func (ReadSensors) String() string { return "read sensors" }

// SetFanLevel sets the speed of the fan channel.
type SetFanLevel struct {
	Level int
}

func (SetFanLevel) command() {}

func (c SetFanLevel) String() string { return fmt.Sprintf("set fan level %d", c.Level) }

// Validate reports whether the level is within MinFanLevel..MaxFanLevel.
func (c SetFanLevel) Validate() error {
	if c.Level < MinFanLevel || c.Level > MaxFanLevel {
		return fmt.Errorf("%w: fan level must be %d-%d, got %d", ErrInvalidArgument, MinFanLevel, MaxFanLevel, c.Level)
	}
	return nil
}
