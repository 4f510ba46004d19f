package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// scaffoldHeader is prepended to generated config files.
const scaffoldHeader = `# fbpulse configuration.
# Every key can also be set via FBPULSE_* environment variables,
# e.g. FBPULSE_DATA_DIR or FBPULSE_LOGGING_LEVEL.
`

// WriteScaffold writes a default configuration file to path. It refuses
// to overwrite an existing file.
func WriteScaffold(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	body, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	err = os.WriteFile(path, append([]byte(scaffoldHeader), body...), 0o644)
	if err != nil {
		return fmt.Errorf("write config scaffold %s: %w", path, err)
	}

	return nil
}
