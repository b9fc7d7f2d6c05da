package config

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

// Values for Separators.Mixed.
const (
	MixedReject   = "reject"
	MixedLastWins = "last-wins"
)

type Configuration struct {
	configFs afero.Fs

	Prompt     Prompt     `json:"prompt"`
	Separators Separators `json:"separators"`
	Builtins   Builtins   `json:"builtins"`
	Redirect   Redirect   `json:"redirect"`

	// EventLog is the path of the session event log relative to the
	// configuration directory, empty to disable it.
	EventLog string `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

type Prompt struct {
	// Format of the prompt, %s is replaced by the working directory.
	Format string `json:"format" validate:"required"`
	Color  bool   `json:"color"`
}

// Render fills the working directory into the prompt format.
func (p *Prompt) Render(cwd string) string {
	return strings.Replace(p.Format, "%s", cwd, 1)
}

type Separators struct {
	Mixed string `json:"mixed" validate:"required,oneof=reject last-wins"`
}

// RejectMixed reports whether lines with more than one kind of operator are
// refused.
func (s *Separators) RejectMixed() bool {
	return s.Mixed != MixedLastWins
}

type Builtins struct {
	ExitEverywhere bool `json:"exit_everywhere"`
}

type Redirect struct {
	FileMode uint32 `json:"file_mode" validate:"lte=511"` // At most 0777.
}

// Mode returns the permissions for newly created redirection targets.
func (r *Redirect) Mode() os.FileMode {
	return os.FileMode(r.FileMode).Perm()
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// EventLogEnabled reports whether session events should be recorded.
func (c *Configuration) EventLogEnabled() bool {
	return c.EventLog != ""
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration. It has no backing directory, so
// the event log lives in memory.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}

// DefaultData returns the contents of the built-in config.yaml.
func DefaultData() []byte {
	return append([]byte(nil), defaultConfigData...)
}
