// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"fmt"
	"io/ioutil"

	"github.com/hoxca/nightcal/internal/archive"
	"gopkg.in/yaml.v3"
)

// Parameters for the HTTP server
type ServerParams struct {
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"staticDir"`
}

// Configuration file contents. Command line flags override individual values
type Config struct {
	LogFile     string          `yaml:"logFile"`
	Calibration CalibrateParams `yaml:"calibration"`
	Archive     archive.Config  `yaml:"archive"`
	Server      ServerParams    `yaml:"server"`
}

// Configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Calibration: CalibrateParams{
			FrameTypeKeys: append([]string(nil), DefaultFrameTypeKeys...),
			Write:         true,
			Output:        OutputParams{Suffix: DefaultCalibratedSuffix},
		},
		Archive: archive.DefaultConfig(),
		Server:  ServerParams{Port: 8080, StaticDir: "./web/build"},
	}
}

// Load configuration from a YAML file. Keys missing in the file keep their defaults
func LoadConfig(fileName string) (*Config, error) {
	cfg := DefaultConfig()
	if fileName == "" {
		return cfg, nil
	}
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", fileName, err)
	}
	return cfg, nil
}
