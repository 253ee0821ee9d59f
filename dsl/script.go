package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"vortex"
)

// BuildScript transforms a lightweight line script into a flow. The format
// mirrors the YAML pipeline spec:
//
//	# build the prompt, translate it, then print the result
//	node seed = set prompt "translate to spanish"
//	node translator = llm input=prompt output=translation system="You are a translator"
//	node show = logger "translation" translation
//	start seed
//	connect seed -> translator
//	connect translator -> show
//
// Lines starting with # are comments. When no connect lines are present the
// nodes run in declaration order.
func BuildScript(script string, opts BuildOptions) (*vortex.Flow, error) {
	spec := &PipelineSpec{Name: "script"}

	for idx, raw := range strings.Split(script, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		keyword, rest := takeToken(line)
		switch strings.ToLower(keyword) {
		case "node":
			ns, err := parseNodeLine(idx+1, rest)
			if err != nil {
				return nil, err
			}
			spec.Nodes = append(spec.Nodes, ns)

		case "start":
			name, _ := takeToken(rest)
			if name == "" {
				return nil, fmt.Errorf("dsl line %d: start requires a node name", idx+1)
			}
			spec.Start = name

		case "connect":
			edge, err := parseConnectLine(idx+1, rest)
			if err != nil {
				return nil, err
			}
			spec.Edges = append(spec.Edges, edge)

		default:
			return nil, fmt.Errorf("dsl line %d: unknown keyword %q", idx+1, keyword)
		}
	}

	return Build(spec, opts)
}

// parseNodeLine handles `<name> = <kind> <args>`.
func parseNodeLine(line int, rest string) (NodeSpec, error) {
	name, rest := takeToken(rest)
	if name == "" {
		return NodeSpec{}, fmt.Errorf("dsl line %d: node requires a name", line)
	}

	eq, rest := takeToken(rest)
	if eq != "=" {
		return NodeSpec{}, fmt.Errorf("dsl line %d: expected '=' after node name %q", line, name)
	}

	kind, rest := takeToken(rest)
	if kind == "" {
		return NodeSpec{}, fmt.Errorf("dsl line %d: node %q requires a kind", line, name)
	}

	params, err := parseParams(line, strings.ToLower(kind), rest)
	if err != nil {
		return NodeSpec{}, err
	}
	return NodeSpec{Name: name, Kind: kind, Params: params}, nil
}

// parseConnectLine handles `<from> -> <to> [on <action>]`.
func parseConnectLine(line int, rest string) (EdgeSpec, error) {
	from, rest := takeToken(rest)
	arrow, rest := takeToken(rest)
	to, rest := takeToken(rest)
	if from == "" || arrow != "->" || to == "" {
		return EdgeSpec{}, fmt.Errorf("dsl line %d: connect expects 'from -> to'", line)
	}

	edge := EdgeSpec{From: from, To: to}
	if keyword, remainder := takeToken(rest); keyword != "" {
		if !strings.EqualFold(keyword, "on") {
			return EdgeSpec{}, fmt.Errorf("dsl line %d: unexpected token %q after connect", line, keyword)
		}
		action, _ := takeToken(remainder)
		if action == "" {
			return EdgeSpec{}, fmt.Errorf("dsl line %d: 'on' requires an action label", line)
		}
		edge.Action = action
	}
	return edge, nil
}

// parseParams turns a kind's argument list into the params map the builder
// consumes. Positional shapes are recognized per kind; everything else must
// be key=value pairs.
func parseParams(line int, kind, args string) (map[string]any, error) {
	params := make(map[string]any)

	switch kind {
	case "set":
		key, rest := takeToken(args)
		if key == "" {
			return nil, fmt.Errorf("dsl line %d: set requires a key", line)
		}
		value, err := parseStringArgument(rest)
		if err != nil {
			return nil, fmt.Errorf("dsl line %d: invalid value for %s: %w", line, key, err)
		}
		params["key"] = key
		params["value"] = value
		return params, nil

	case "logger":
		message, rest, err := takeStringArgument(args)
		if err != nil {
			return nil, fmt.Errorf("dsl line %d: logger requires a quoted message: %w", line, err)
		}
		params["message"] = message
		params["keys"] = strings.Fields(rest)
		return params, nil

	case "delay":
		duration, _ := takeToken(args)
		params["duration"] = duration
		return params, nil

	case "loop":
		raw, rest := takeToken(args)
		max, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("dsl line %d: loop requires an integer bound", line)
		}
		params["max"] = max
		if again, _ := takeToken(rest); again != "" {
			params["again"] = again
		}
		return params, nil
	}

	// key=value form for llm, http, and future kinds.
	rest := strings.TrimSpace(args)
	for rest != "" {
		var pair string
		pair, rest = takeToken(rest)
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("dsl line %d: expected key=value, got %q", line, pair)
		}
		params[key] = strings.Trim(value, `"`)
	}
	return params, nil
}

// takeToken splits off the next whitespace-delimited token. Quoted strings
// count as a single token with the quotes preserved.
func takeToken(s string) (token, rest string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	if s[0] == '"' {
		for i := 1; i < len(s); i++ {
			if s[i] == '"' && s[i-1] != '\\' {
				return s[:i+1], strings.TrimSpace(s[i+1:])
			}
		}
		return s, ""
	}

	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimSpace(s[end:])
}

func takeStringArgument(s string) (value, rest string, err error) {
	token, rest := takeToken(s)
	value, err = parseStringArgument(token)
	return value, rest, err
}

func parseStringArgument(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' {
		return strconv.Unquote(s)
	}
	if s == "" {
		return "", fmt.Errorf("missing value")
	}
	return s, nil
}
