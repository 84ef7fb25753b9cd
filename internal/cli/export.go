package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export writes v to w in the named format.
func Export(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, v)
	case FormatYAML, "yml":
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
}

// WriteJSON writes v as indented JSON with a trailing newline.
func WriteJSON(w io.Writer, v any) error {
	if err := json.MarshalWrite(w, v, json.Deterministic(true), jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteYAML writes v as YAML. The value goes through its JSON form first so
// field names and ordering match the JSON export exactly.
func WriteYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	dec := jsontext.NewDecoder(bytes.NewReader(raw))
	node, err := yamlNode(dec)
	if err != nil {
		return fmt.Errorf("converting to yaml: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// yamlNode reads one JSON value from dec and returns the equivalent YAML node.
// Numbers keep their literal text.
func yamlNode(dec *jsontext.Decoder) (*yaml.Node, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}

	switch tok.Kind() {
	case '{':
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for dec.PeekKind() != '}' {
			key, err := dec.ReadToken()
			if err != nil {
				return nil, err
			}
			val, err := yamlNode(dec)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, scalar("!!str", key.String()), val)
		}
		_, err := dec.ReadToken()
		return n, err
	case '[':
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for dec.PeekKind() != ']' {
			val, err := yamlNode(dec)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, val)
		}
		_, err := dec.ReadToken()
		return n, err
	case '"':
		return scalar("!!str", tok.String()), nil
	case '0':
		lit := tok.String()
		if bytes.ContainsAny([]byte(lit), ".eE") {
			return scalar("!!float", lit), nil
		}
		return scalar("!!int", lit), nil
	case 't':
		return scalar("!!bool", "true"), nil
	case 'f':
		return scalar("!!bool", "false"), nil
	case 'n':
		return scalar("!!null", "null"), nil
	default:
		return nil, errors.New("unexpected json token")
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
