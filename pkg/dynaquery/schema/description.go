package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	mserrors "github.com/nonibytes/dynaquery/pkg/dynaquery/errors"
	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FieldSpec describes one field of a dynamically described record type.
type FieldSpec struct {
	Name          string `json:"name" yaml:"name"`
	Type          string `json:"type" yaml:"type"`
	PrimaryKey    bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty" yaml:"auto_increment,omitempty"`
	// Attribute is the column/attribute name in the backing store; defaults to Name.
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
}

func (f FieldSpec) StoreName() string {
	if f.Attribute != "" {
		return f.Attribute
	}
	return f.Name
}

func (f FieldSpec) Kind() value.Kind {
	k, _ := value.ParseKind(strings.ToLower(f.Type))
	return k
}

// Description is a schema file: a record type name plus its fields in
// declaration order.
type Description struct {
	Name   string      `json:"name" yaml:"name"`
	Fields []FieldSpec `json:"fields" yaml:"fields"`
}

func (d Description) Validate() error {
	if len(d.Fields) == 0 {
		return mserrors.NewError(mserrors.ErrSchema, "schema must have at least one field")
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if !fieldNameRe.MatchString(f.Name) {
			return mserrors.NewError(mserrors.ErrSchema, "invalid field name: "+f.Name)
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			return mserrors.NewError(mserrors.ErrSchema, "duplicate field name: "+f.Name)
		}
		seen[key] = true
		if _, ok := value.ParseKind(strings.ToLower(f.Type)); !ok {
			return mserrors.NewError(mserrors.ErrSchema, "unknown field type '"+f.Type+"' for field '"+f.Name+"'")
		}
	}
	return nil
}

func (d Description) ToJSON() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, mserrors.Wrap(mserrors.ErrSchema, "json encode", err)
	}
	return bytes.TrimSpace(b), nil
}

func FromJSON(b []byte) (Description, error) {
	var d Description
	if err := json.Unmarshal(b, &d); err != nil {
		return Description{}, mserrors.Wrap(mserrors.ErrSchema, "json parse", err)
	}
	return d, d.Validate()
}

func FromYAML(b []byte) (Description, error) {
	var d Description
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Description{}, mserrors.Wrap(mserrors.ErrSchema, "yaml parse", err)
	}
	return d, d.Validate()
}

// LoadFile reads a .json, .yaml or .yml schema description.
func LoadFile(path string) (Description, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Description{}, mserrors.Wrap(mserrors.ErrSchema, "read schema file", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(b)
	default:
		return FromJSON(b)
	}
}
