package config

import (
	"bufio"
	"io"
	"iter"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/firefly-engineering/devel79ctl/internal/errors"
	"github.com/firefly-engineering/devel79ctl/internal/logging"
)

const (
	DefaultConfigFile   = "devel79.conf"
	DefaultName         = "Devel79 Server"
	DefaultMachine      = "devel79"
	DefaultIP           = "192.168.56.1"
	DefaultCheckSeconds = 15
	DefaultSessionType  = "gui"
)

// maxCheckTime is the largest checktime whose duration fits in a
// time.Duration.
const maxCheckTime = math.MaxInt64 / int64(time.Second)

// SessionTypes lists the accepted sessiontype values.
var SessionTypes = []string{"gui", "headless", "separate"}

// Configuration is the devel79 server definition read from the config file.
type Configuration struct {
	DisplayName         string `json:"name" yaml:"name" toml:"name"`
	MachineID           string `json:"machine" yaml:"machine" toml:"machine"`
	ManagementAddress   string `json:"ip" yaml:"ip" toml:"ip"`
	PollIntervalSeconds int    `json:"checktime" yaml:"checktime" toml:"checktime"`
	VBoxManage          string `json:"vboxmanage,omitempty" yaml:"vboxmanage,omitempty" toml:"vboxmanage,omitempty"`
	SessionType         string `json:"sessiontype" yaml:"sessiontype" toml:"sessiontype"`
	SSHCommand          string `json:"ssh,omitempty" yaml:"ssh,omitempty" toml:"ssh,omitempty"`

	// Commands are the named host commands from "command = name | command"
	// lines, in file order.
	Commands []Command `json:"commands,omitempty" yaml:"commands,omitempty" toml:"commands,omitempty"`

	// Watches are the "watch = name | message | directory" lines.
	Watches []Watch `json:"watches,omitempty" yaml:"watches,omitempty" toml:"watches,omitempty"`

	// Path is the file the configuration was loaded from.
	Path string `json:"-" yaml:"-" toml:"-"`
}

// Command is a named host command.
type Command struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Command string `json:"command" yaml:"command" toml:"command"`
}

// String renders the command in its "name | command" file form.
func (c Command) String() string {
	return c.Name + " | " + c.Command
}

// ParseCommand splits a "name | command" value. Both parts must be
// non-empty after trimming.
func ParseCommand(value string) (Command, bool) {
	name, command, found := strings.Cut(value, "|")
	if !found {
		return Command{}, false
	}
	cmd := Command{Name: strings.TrimSpace(name), Command: strings.TrimSpace(command)}
	if cmd.Name == "" || cmd.Command == "" {
		return Command{}, false
	}
	return cmd, true
}

// Watch is a directory whose new files are announced while the server
// runs.
type Watch struct {
	Name      string `json:"name" yaml:"name" toml:"name"`
	Message   string `json:"message" yaml:"message" toml:"message"`
	Directory string `json:"directory" yaml:"directory" toml:"directory"`
}

func (w Watch) String() string {
	return w.Name + " | " + w.Message + " | " + w.Directory
}

// ParseWatch splits a "name | message | directory" value. The directory
// is everything after the second '|'.
func ParseWatch(value string) (Watch, bool) {
	parts := strings.SplitN(value, "|", 3)
	if len(parts) != 3 {
		return Watch{}, false
	}
	w := Watch{
		Name:      strings.TrimSpace(parts[0]),
		Message:   strings.TrimSpace(parts[1]),
		Directory: strings.TrimSpace(parts[2]),
	}
	if w.Name == "" || w.Message == "" || w.Directory == "" {
		return Watch{}, false
	}
	return w, true
}

// Default returns a configuration holding the built-in defaults.
func Default() *Configuration {
	return &Configuration{
		DisplayName:         DefaultName,
		MachineID:           DefaultMachine,
		ManagementAddress:   DefaultIP,
		PollIntervalSeconds: DefaultCheckSeconds,
		SessionType:         DefaultSessionType,
	}
}

// LookupCommand returns the first command whose name matches name,
// ignoring case.
func (c *Configuration) LookupCommand(name string) (Command, bool) {
	for _, cmd := range c.Commands {
		if strings.EqualFold(cmd.Name, name) {
			return cmd, true
		}
	}
	return Command{}, false
}

// PollInterval returns checktime as a duration. Out of range values
// give the default.
func (c *Configuration) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 || int64(c.PollIntervalSeconds) > maxCheckTime {
		return DefaultCheckSeconds * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// executable is swapped in tests.
var executable = os.Executable

// ExecutableDir returns the directory containing the running executable.
func ExecutableDir() (string, error) {
	exe, err := executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// ResolvePath maps a config file argument to an absolute path. An empty
// path selects DefaultConfigFile; relative paths are joined to the
// executable's directory.
func ResolvePath(path string) (string, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	dir, err := ExecutableDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, path), nil
}

// Load resolves path and reads the configuration from it.
func Load(path string) (*Configuration, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, errors.ConfigIO(path, err)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, errors.ConfigIO(resolved, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, errors.ConfigIO(resolved, err)
	}
	cfg.Path = resolved

	logging.Debug("configuration loaded", "path", resolved, "machine", cfg.MachineID)
	return cfg, nil
}

// Parse reads assignments from r on top of the defaults.
func Parse(r io.Reader) (*Configuration, error) {
	cfg := Default()
	for line, err := range Lines(r) {
		if err != nil {
			return nil, err
		}
		key, value, ok := parseLine(line)
		if !ok {
			continue
		}
		cfg.set(key, value)
	}
	return cfg, nil
}

// Lines yields the lines of r, decoding UTF-16 and stripping a UTF-8 BOM.
// The sequence reads r as it goes and can only be ranged over once.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
		scanner := bufio.NewScanner(decoded)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}

// unquote strips the triple quotes MarshalConf puts around values
// containing a backtick.
func unquote(value string) string {
	const q = `"""`
	if len(value) >= 2*len(q) && strings.HasPrefix(value, q) && strings.HasSuffix(value, q) {
		return strings.TrimSpace(value[len(q) : len(value)-len(q)])
	}
	return value
}

// parseLine splits an assignment. Blank lines, comments, lines without
// '=' and assignments with an empty key or value are rejected.
func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	key = strings.TrimSpace(key)
	value = unquote(strings.TrimSpace(value))
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

func (c *Configuration) set(key, value string) {
	switch strings.ToLower(key) {
	case "name":
		c.DisplayName = value
	case "machine":
		c.MachineID = value
	case "ip":
		c.ManagementAddress = value
	case "checktime":
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 || int64(seconds) > maxCheckTime {
			logging.Warn("ignoring invalid checktime", "value", value, "default", c.PollIntervalSeconds)
			return
		}
		c.PollIntervalSeconds = seconds
	case "vboxmanage":
		c.VBoxManage = value
	case "ssh":
		c.SSHCommand = value
	case "command":
		cmd, ok := ParseCommand(value)
		if !ok {
			logging.Warn("ignoring command without name | command", "value", value)
			return
		}
		c.Commands = append(c.Commands, cmd)
	case "watch":
		w, ok := ParseWatch(value)
		if !ok {
			logging.Warn("ignoring watch without name | message | directory", "value", value)
			return
		}
		c.Watches = append(c.Watches, w)
	case "sessiontype":
		st := strings.ToLower(value)
		for _, known := range SessionTypes {
			if st == known {
				c.SessionType = st
				return
			}
		}
		logging.Warn("ignoring unknown sessiontype", "value", value, "default", c.SessionType)
	default:
		logging.Debug("ignoring unknown configuration key", "key", key)
	}
}

// DefaultStateDir returns the directory for the event log.
func DefaultStateDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "devel79ctl")
}
