package output

import (
	"io"

	"go.yaml.in/yaml/v3"
)

// YAMLFormatter formats data as YAML documents.
type YAMLFormatter struct{}

// Format writes data as one YAML document.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(Value(data)); err != nil {
		return err
	}
	return encoder.Close()
}
