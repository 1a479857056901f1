package imageprocessing

import (
	"fmt"
	"log/slog"
	"time"
)

// CommandInvoker executes a sequence of commands on a frame
type CommandInvoker struct {
	commands []Command
}

// NewCommandInvoker creates a new command invoker
func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{
		commands: commands,
	}
}

// NewCommandInvokerFromConfigs creates an invoker from command configurations
func NewCommandInvokerFromConfigs(configs []CommandConfig) (*CommandInvoker, error) {
	commands, err := CreateCommands(configs)
	if err != nil {
		return nil, err
	}
	return NewCommandInvoker(commands), nil
}

// Execute applies all commands in sequence to the frame
func (i *CommandInvoker) Execute(frame *Frame) (*Frame, error) {
	start := time.Now()

	slog.Debug("starting image processing pipeline",
		"command_count", len(i.commands),
		"input_width", frame.Image.Bounds().Dx(),
		"input_height", frame.Image.Bounds().Dy())

	current := frame

	for idx, command := range i.commands {
		commandStart := time.Now()

		processed, err := command.Execute(current)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err)
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		slog.Debug("command completed",
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"output_width", processed.Image.Bounds().Dx(),
			"output_height", processed.Image.Bounds().Dy())

		current = processed
	}

	slog.Info("image processing pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands),
		"output_width", current.Image.Bounds().Dx(),
		"output_height", current.Image.Bounds().Dy())

	return current, nil
}
