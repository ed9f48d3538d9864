package process

import "github.com/sarchlab/desim/sim"

// A Description is a named, ordered list of commands.
type Description struct {
	name     string
	commands []Command
}

// NewDescription creates a Description.
func NewDescription(name string, commands ...Command) *Description {
	for i, c := range commands {
		if c == nil {
			panic(sim.NewConfigError(
				"process %s: command %d must not be nil", name, i))
		}
	}

	return &Description{
		name:     name,
		commands: commands,
	}
}

// Name returns the name of the description.
func (d *Description) Name() string {
	return d.name
}

// Len returns the number of commands.
func (d *Description) Len() int {
	return len(d.commands)
}

// Command returns the command at the given index.
func (d *Description) Command(idx int) Command {
	return d.commands[idx]
}

func (d *Description) command(idx int) (Command, bool) {
	if idx < 0 || idx >= len(d.commands) {
		return nil, false
	}

	return d.commands[idx], true
}
