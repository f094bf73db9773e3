package mcpserver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
)

// inputSchema holds a tool's argument schema in the two shapes the server
// needs: a plain map advertised to clients and a compiled validator.
type inputSchema struct {
	doc       map[string]any
	validator *gojsonschema.Schema
}

func newInputSchema(in market.Input) (*inputSchema, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(in)
	// gojsonschema predates draft 2020-12; the meta-schema URI is dropped so
	// it validates with its own draft rules.
	schema.Version = ""
	schema.ID = ""

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, errs.Wrap(err, "marshal input schema")
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Wrap(err, "decode input schema")
	}
	if _, ok := doc["properties"]; !ok {
		doc["properties"] = map[string]any{}
	}

	validator, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, errs.Wrap(err, "compile input schema")
	}
	return &inputSchema{doc: doc, validator: validator}, nil
}

// validate checks raw tool arguments and reports the first violation as an
// invalid parameter.
func (s *inputSchema) validate(args json.RawMessage) error {
	if len(strings.TrimSpace(string(args))) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	result, err := s.validator.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return market.InvalidParameter("arguments", string(args), "a JSON object")
	}
	if result.Valid() {
		return nil
	}

	violations := result.Errors()
	sort.SliceStable(violations, func(i, j int) bool { return violations[i].Field() < violations[j].Field() })
	v := violations[0]

	param := v.Field()
	if prop, ok := v.Details()["property"].(string); ok && prop != "" {
		param = prop
	}
	value := ""
	if v.Value() != nil {
		value = fmt.Sprint(v.Value())
	}

	// Object-level violations report the whole argument object as the value.
	switch v.Type() {
	case "enum":
		return market.InvalidParameter(param, value, s.enumValues(param)...)
	case "required":
		return market.InvalidParameter(param, "", "a value for this required parameter")
	case "additional_property_not_allowed":
		return market.InvalidParameter(param, "", s.propertyNames()...)
	default:
		return market.InvalidParameter(param, value, v.Description())
	}
}

func (s *inputSchema) properties() map[string]any {
	props, _ := s.doc["properties"].(map[string]any)
	return props
}

func (s *inputSchema) propertyNames() []string {
	props := s.properties()
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *inputSchema) enumValues(param string) []string {
	prop, _ := s.properties()[param].(map[string]any)
	values, _ := prop["enum"].([]any)
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
