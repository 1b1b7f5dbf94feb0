package action

import (
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
)

// PluginIDInput is the workflow input naming the plugin to activate.
const PluginIDInput = "pluginID"

// InputProvider gives access to the workflow step inputs.
type InputProvider interface {
	// GetInput returns the trimmed input value, or "" when unset.
	GetInput(name string) string
}

// EnvInputs reads inputs the way the runner exposes them: INPUT_<NAME>,
// upper-cased with spaces replaced by underscores.
type EnvInputs struct {
	lookup func(string) (string, bool)
}

// NewEnvInputs reads inputs from the process environment.
func NewEnvInputs() *EnvInputs {
	return &EnvInputs{lookup: os.LookupEnv}
}

// InputEnvName returns the environment variable carrying input name. Upper
// casing uses full Unicode mappings, so "ß" becomes "SS".
func InputEnvName(name string) string {
	return "INPUT_" + cases.Upper(language.Und).String(strings.ReplaceAll(name, " ", "_"))
}

func (e *EnvInputs) GetInput(name string) string {
	v, ok := e.lookup(InputEnvName(name))
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// MapInputs is an InputProvider backed by a map.
// Used for testing and inline configuration.
type MapInputs map[string]string

func (m MapInputs) GetInput(name string) string {
	return strings.TrimSpace(m[name])
}

// PluginID resolves the plugin id: override wins when non-empty, otherwise
// the pluginID input. An unresolvable id is a PLUGIN_ID error.
func PluginID(inputs InputProvider, override string) (string, error) {
	if id := strings.TrimSpace(override); id != "" {
		return id, nil
	}
	if inputs != nil {
		if id := inputs.GetInput(PluginIDInput); id != "" {
			return id, nil
		}
	}
	return "", apperrors.NewMissingPluginID()
}
