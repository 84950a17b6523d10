package commandstructure

import (
	"fmt"
	"log/slog"
)

// BuildBattery creates every configured command through the registry, keeping order.
// An unknown name or invalid parameters make the whole battery invalid.
func BuildBattery(registry *CommandRegistry, configs []CommandConfig) ([]Command, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("command list cannot be empty")
	}

	battery := make([]Command, 0, len(configs))
	for i, config := range configs {
		slog.Debug("creating command",
			"index", i,
			"command_name", config.Name,
			"params", config.Params)

		command, err := registry.Create(config.Name, config.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to create command at index %d (%s): %w", i, config.Name, err)
		}
		battery = append(battery, command)
	}

	return battery, nil
}

// ValidateConfigs checks that every configured command is known to the registry
// and can be created with its parameters.
func ValidateConfigs(registry *CommandRegistry, configs []CommandConfig) error {
	for i, config := range configs {
		if config.Name == "" {
			return fmt.Errorf("command at index %d has an empty name", i)
		}
		if !registry.IsRegistered(config.Name) {
			return fmt.Errorf("command at index %d has unknown name '%s'", i, config.Name)
		}
		if _, err := registry.Create(config.Name, config.Params); err != nil {
			return fmt.Errorf("command at index %d: %w", i, err)
		}
	}
	return nil
}
