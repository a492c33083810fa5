package app

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type GSheetConfig struct {
	EventID         string `toml:"event_id"`
	CredentialsPath string `toml:"credentials_path"`
	SpreadsheetID   string `toml:"spreadsheet_id"`
	SheetName       string `toml:"sheet_name"`
	Schedule        string `toml:"schedule"`
}

type Config struct {
	Storage struct {
		DSN string `toml:"dsn"`
	} `toml:"storage"`

	Remote struct {
		BaseURL         string         `toml:"base_url"`
		Token           string         `toml:"token"`
		TimeoutSeconds  int            `toml:"timeout_seconds"`
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"remote"`

	Metrics struct {
		Listen string `toml:"listen"`
	} `toml:"metrics"`

	Bot struct {
		Token    string  `toml:"token"`
		AdminIDs []int64 `toml:"admin_ids"`
	} `toml:"bot"`

	GSheet []GSheetConfig `toml:"gsheet"`
}

func (c *Config) RemoteTimeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Storage.DSN == "" {
		return nil, fmt.Errorf("storage dsn is not specified in config, use a value like klicka.db or memory")
	}
	if config.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote base_url is not specified in config")
	}

	logger.Debug.Printf("Loaded config: storage=%s remote=%s", config.Storage.DSN, config.Remote.BaseURL)

	return &config, nil
}
