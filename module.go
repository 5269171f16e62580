package kxci

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"gopkg.in/yaml.v3"
)

// WaitPolicy computes the execution window for a module: the time the
// client sleeps after writing an EX command before reading the response.
// The response buffers in the instrument until the operation completes,
// so the window is a blocking sleep, not a busy poll.
type WaitPolicy struct {
	// Floor is the minimum window regardless of point count.
	Floor time.Duration `yaml:"floor"`
	// PerPoint is the additional window per measured point, for
	// read-train style modules whose run time scales with point count.
	PerPoint time.Duration `yaml:"per_point"`
}

// UnmarshalYAML decodes the policy with Go duration strings, e.g.
// "500ms" or "1.5s".
func (w *WaitPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Floor    string `yaml:"floor"`
		PerPoint string `yaml:"per_point"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	var err error
	if raw.Floor != "" {
		if w.Floor, err = time.ParseDuration(raw.Floor); err != nil {
			return fmt.Errorf("kxci: wait floor: %w", err)
		}
	}
	if raw.PerPoint != "" {
		if w.PerPoint, err = time.ParseDuration(raw.PerPoint); err != nil {
			return fmt.Errorf("kxci: wait per_point: %w", err)
		}
	}

	return nil
}

// Window returns the execution window for the given point count.
func (w WaitPolicy) Window(points int) time.Duration {
	d := time.Duration(points) * w.PerPoint
	if d < w.Floor {
		return w.Floor
	}
	return d
}

// ProbeWindow locates the measurement aperture inside a probe segment as
// a pair of fractions of the segment width. The pair is module- and
// firmware-version-specific; different compiled modules ship with
// different apertures (observed pairs include (0.4, 0.9) and (0.5, 0.7)).
type ProbeWindow struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Valid reports whether the fractions are ordered and within [0, 1].
func (w ProbeWindow) Valid() bool {
	return w.Low >= 0 && w.High <= 1 && w.Low <= w.High
}

// IsZero reports whether the window is unset.
func (w ProbeWindow) IsZero() bool { return w.Low == 0 && w.High == 0 }

// ParamSpec declares one positional parameter of a module's call
// signature, for pre-I/O validation of caller-supplied values.
type ParamSpec struct {
	Name string `yaml:"name"`
	// Type is one of "int", "float", "string", "array".
	Type string `yaml:"type"`
	// Min and Max bound numeric parameters when set.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// Module is the per-module configuration that parameterizes the shared
// engine: the KXCI command cycle is identical across compiled test
// modules, only these tables differ.
type Module struct {
	// Name is the compiled module (user library) name, e.g. "A_Iv_Sweep".
	Name string `yaml:"name"`
	// Function is the entry point within the module, e.g. "smu_ivsweep".
	Function string `yaml:"function"`
	// Params declares the call signature for validation. When empty,
	// parameter validation is skipped.
	Params []ParamSpec `yaml:"params,omitempty"`
	// ErrorCodes maps negative return codes to human-readable messages.
	ErrorCodes map[int]string `yaml:"error_codes,omitempty"`
	// Wait is the execution window policy.
	Wait WaitPolicy `yaml:"wait"`
	// Window is the measurement aperture used by probe-timing
	// reconstruction. Zero for modules that return their own timestamps.
	Window ProbeWindow `yaml:"probe_window,omitempty"`
	// QuoteStrings wraps string parameters in double quotes in the call
	// string. Requirement varies per module.
	QuoteStrings bool `yaml:"quote_strings,omitempty"`
}

// ErrorMessage returns the configured message for a return code, or the
// empty string if the code is not in the table.
func (m *Module) ErrorMessage(code int) string {
	return m.ErrorCodes[code]
}

// Command builds a Command for this module with the given parameters.
func (m *Module) Command(params ...Parameter) Command {
	return Command{Module: m.Name, Function: m.Function, Params: params}
}

// ValidateParams checks caller-supplied parameters against the declared
// signature before any I/O. It verifies arity, variant kind per position,
// and numeric ranges. A nil return means the call is safe to encode.
func (m *Module) ValidateParams(params []Parameter) error {
	if len(m.Params) == 0 {
		return nil
	}
	if len(params) != len(m.Params) {
		return &ValidationError{
			Module: m.Name,
			Index:  min(len(params), len(m.Params)),
			Reason: fmt.Sprintf("expected %d parameters, got %d", len(m.Params), len(params)),
		}
	}

	for i, spec := range m.Params {
		p := params[i]
		if spec.Type != "" && p.Type().String() != spec.Type {
			return &ValidationError{
				Module: m.Name,
				Param:  spec.Name,
				Index:  i,
				Reason: fmt.Sprintf("expected %s, got %s", spec.Type, p.Type()),
			}
		}

		var v float64
		switch p.Type() {
		case IntParam:
			v = float64(p.IntValue())
		case FloatParam:
			v = p.FloatValue()
		default:
			continue
		}
		if spec.Min != nil && v < *spec.Min {
			return &ValidationError{
				Module: m.Name,
				Param:  spec.Name,
				Index:  i,
				Reason: fmt.Sprintf("value %v below minimum %v", v, *spec.Min),
			}
		}
		if spec.Max != nil && v > *spec.Max {
			return &ValidationError{
				Module: m.Name,
				Param:  spec.Name,
				Index:  i,
				Reason: fmt.Sprintf("value %v above maximum %v", v, *spec.Max),
			}
		}
	}

	return nil
}

// Library is a registry of module configurations keyed by module name.
// It is safe for concurrent use.
type Library struct {
	mods *xsync.MapOf[string, *Module]
}

// NewLibrary creates an empty module library.
func NewLibrary() *Library {
	return &Library{mods: xsync.NewMapOf[string, *Module]()}
}

// Register adds or replaces a module configuration.
func (l *Library) Register(mod *Module) error {
	if mod == nil {
		return ErrModuleNil
	}
	if mod.Name == "" || mod.Function == "" {
		return fmt.Errorf("kxci: module registration requires name and function, got %q/%q", mod.Name, mod.Function)
	}
	if !mod.Window.IsZero() && !mod.Window.Valid() {
		return fmt.Errorf("%w: module %s declares (%v, %v)", ErrInvalidProbeWindow, mod.Name, mod.Window.Low, mod.Window.High)
	}

	l.mods.Store(mod.Name, mod)

	return nil
}

// Get returns the configuration for a module name.
func (l *Library) Get(name string) (*Module, bool) {
	return l.mods.Load(name)
}

// Names returns the registered module names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, l.mods.Size())
	l.mods.Range(func(name string, _ *Module) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)

	return names
}

// Load reads a YAML module-definition document from r and registers every
// module in it. The document is a mapping with a top-level "modules" list.
func (l *Library) Load(r io.Reader) error {
	var doc struct {
		Modules []*Module `yaml:"modules"`
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("kxci: decoding module library: %w", err)
	}

	for _, mod := range doc.Modules {
		if err := l.Register(mod); err != nil {
			return err
		}
	}

	return nil
}

// LoadFile reads and registers a YAML module-definition file.
func (l *Library) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("kxci: opening module library %s: %w", path, err)
	}
	defer f.Close()

	return l.Load(f)
}
