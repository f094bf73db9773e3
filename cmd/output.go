package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"yfmcp/internal/errs"
)

const outputFormats = "json|yaml|toml"

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	case "toml":
		return "toml", nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected: %s)", format, outputFormats)
	}
}

// writeOutput encodes v in format. TOML documents must be tables, so any
// other top-level value is nested under "result".
func writeOutput(w io.Writer, format string, v any) error {
	format, err := normalizeFormat(format)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format {
	case "json":
		encoder := json.NewEncoder(&buf)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return errs.Wrap(err, "encode json output")
		}
	case "yaml":
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return errs.Wrap(err, "encode yaml output")
		}
		if err := encoder.Close(); err != nil {
			return errs.Wrap(err, "flush yaml output")
		}
	case "toml":
		if !isTable(v) {
			v = map[string]any{"result": v}
		}
		encoder := toml.NewEncoder(&buf)
		encoder.SetIndentTables(true)
		if err := encoder.Encode(v); err != nil {
			return errs.Wrap(err, "encode toml output")
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errs.Wrap(err, "write output")
	}
	return nil
}

// decodeDocument turns a JSON tool result back into plain values so it can
// be re-encoded in another format.
func decodeDocument(text string) (any, error) {
	var doc any
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, errs.Wrap(err, "decode tool result")
	}
	return normalizeNumbers(doc), nil
}

func normalizeNumbers(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		for key, value := range typed {
			typed[key] = normalizeNumbers(value)
		}
		return typed
	case []any:
		for i, value := range typed {
			typed[i] = normalizeNumbers(value)
		}
		return typed
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return n
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		return v
	}
}

func isTable(v any) bool {
	rv := reflect.Indirect(reflect.ValueOf(v))
	return rv.IsValid() && (rv.Kind() == reflect.Struct || rv.Kind() == reflect.Map)
}
