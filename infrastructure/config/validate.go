package config

import "fmt"

// ValidationError names the offending key and what is wrong with it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Required fails when value is empty.
func Required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// Port fails outside 1..65535.
func Port(field string, port int) error {
	if port < 1 || port > 65535 {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	return Port("server.port", c.Port)
}

func (c *DatabaseConfig) Validate() error {
	if err := Required("database.host", c.Host); err != nil {
		return err
	}
	if err := Port("database.port", c.Port); err != nil {
		return err
	}
	if err := Required("database.user", c.User); err != nil {
		return err
	}
	return Required("database.database", c.Database)
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error, fatal"}
	}
	switch c.Format {
	case "json", "console":
	default:
		return &ValidationError{Field: "logging.format", Message: "must be json or console"}
	}
	return nil
}
