package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
)

// Format names an output rendering of a configuration.
type Format string

const (
	FormatConf Format = "conf"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported renderings.
var Formats = []Format{FormatConf, FormatJSON, FormatYAML, FormatTOML}

const confHeader = "# devel79 server configuration\n"

// MarshalConf renders the configuration in the name=value file format.
func (c *Configuration) MarshalConf() ([]byte, error) {
	f := ini.Empty(ini.LoadOptions{IgnoreInlineComment: true, AllowShadows: true})
	sec := f.Section("")

	keys := []struct {
		name  string
		value string
	}{
		{"name", c.DisplayName},
		{"machine", c.MachineID},
		{"ip", c.ManagementAddress},
		{"checktime", strconv.Itoa(c.PollIntervalSeconds)},
		{"vboxmanage", c.VBoxManage},
		{"sessiontype", c.SessionType},
		{"ssh", c.SSHCommand},
	}
	for _, k := range keys {
		value, err := confValue(k.name, k.value)
		if err != nil {
			return nil, err
		}
		if value == "" {
			continue
		}
		if _, err := sec.NewKey(k.name, value); err != nil {
			return nil, fmt.Errorf("failed to add key %s: %w", k.name, err)
		}
	}

	var commands, watches []string
	for _, cmd := range c.Commands {
		commands = append(commands, cmd.String())
	}
	for _, w := range c.Watches {
		watches = append(watches, w.String())
	}
	if err := addRepeated(sec, "command", commands); err != nil {
		return nil, err
	}
	if err := addRepeated(sec, "watch", watches); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(confHeader)
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addRepeated writes one name=value line per value, as key shadows.
func addRepeated(sec *ini.Section, name string, values []string) error {
	var key *ini.Key
	for _, v := range values {
		value, err := confValue(name, v)
		if err != nil {
			return err
		}
		if key == nil {
			if key, err = sec.NewKey(name, value); err != nil {
				return fmt.Errorf("failed to add key %s: %w", name, err)
			}
			continue
		}
		if err := key.AddShadow(value); err != nil {
			return fmt.Errorf("failed to add %s %q: %w", name, value, err)
		}
	}
	return nil
}

// confValue prepares a value for a single line of the file. Surrounding
// space is dropped since Parse trims it; line breaks cannot be stored.
func confValue(key, value string) (string, error) {
	if strings.ContainsAny(value, "\r\n") {
		return "", errors.ValidationError(fmt.Sprintf("Value of '%s' contains a line break.", key))
	}
	return strings.TrimSpace(value), nil
}

// Encode writes the configuration to w in the given format.
func (c *Configuration) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatConf, "":
		data, err := c.MarshalConf()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(c)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteDefault writes a configuration file with the built-in defaults.
// An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := Default().MarshalConf()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
