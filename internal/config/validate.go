package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"iconsort/internal/services"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("toml"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	sections := []struct {
		name  string
		value any
	}{
		{"scan", c.Scan},
		{"dedupe", c.Dedupe},
		{"classify", c.Classify},
		{"watch", c.Watch},
	}
	for _, section := range sections {
		if err := validateSection(section.name, section.value); err != nil {
			return err
		}
	}
	if err := c.validateClassify(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func validateSection(name string, value any) error {
	err := structValidator.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%s: %w", name, err)
	}
	fe := fieldErrs[0]
	field := name + "." + fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s must be set", field)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s (got %v)", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "min", "gte":
		return fmt.Errorf("%s must be >= %s (got %v)", field, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Errorf("%s must be <= %s (got %v)", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be > %s (got %v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %q validation", field, fe.Tag())
	}
}

func (c *Config) validateClassify() error {
	if c.Classify.Provider == ProviderCloud && c.Classify.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/iconsort/config.toml"
		}
		envName := apiKeyEnvName(c.Classify.CloudBackend)
		return services.WithRemediation(
			services.Wrap(services.ErrConfiguration, "config", "validate",
				fmt.Sprintf("classify.api_key is required for the %s backend", c.Classify.CloudBackend), nil),
			"set api key: export "+envName+" or classify.api_key",
			fmt.Sprintf("edit %s (create with 'iconsort config init')", defaultPath),
		)
	}
	if !containsString(c.Classify.Categories, c.Classify.DefaultCategory) {
		return errors.New("classify.default_category must be one of classify.categories")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func apiKeyEnvName(backend string) string {
	switch backend {
	case BackendAnthropic:
		return "ANTHROPIC_API_KEY"
	case BackendGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
