package vmhost

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

// settings holds the loader's small set of user-visible knobs. The set
// command stores new values here, but nothing else reads them: hexdump
// always prints hexdump.Width bytes per line, and the memory image is
// always MemorySize bytes.
type settings struct {
	DumpWidth int `doc:"stored hexdump width; not applied to hexdump output"`
	MemSize   int `doc:"stored memory size; not applied to the memory image"`
}

func newSettings() *settings {
	return &settings{
		DumpWidth: 16,
		MemSize:   MemorySize,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	t := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{name: f.Name, index: i, kind: f.Type.Kind(), doc: doc}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// SetString parses value according to the named field's kind and assigns
// it. key is matched by unambiguous prefix, case-insensitively.
func (s *settings) SetString(key, value string) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return fmt.Errorf("unknown setting %q", key)
	}

	v := reflect.ValueOf(s).Elem().Field(f.index)
	switch f.kind {
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s", value, f.name)
		}
		v.SetInt(int64(n))
	case reflect.String:
		v.SetString(value)
	default:
		return fmt.Errorf("unsupported setting kind for %s", f.name)
	}
	return nil
}
