package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"vortex"
)

// HTTPConfig describes how to drive an HTTP request from component state.
// URL and BodyTemplate may use Go template syntax; templates render against
// the node's component data.
type HTTPConfig struct {
	Name           string
	Component      string // defaults to Name
	Method         string
	URL            string
	QueryParams    map[string]string
	Headers        map[string]string
	BodyTemplate   string
	Timeout        time.Duration
	Client         *http.Client
	ResponseKey    string
	StatusKey      string
	ResponseAsJSON bool
	RetryWaits     []time.Duration
}

// DefaultHTTPConfig returns a JSON GET starter config.
func DefaultHTTPConfig(name string) HTTPConfig {
	return HTTPConfig{
		Name:           name,
		Method:         http.MethodGet,
		Headers:        map[string]string{"Content-Type": "application/json"},
		Timeout:        30 * time.Second,
		ResponseKey:    fmt.Sprintf("%s_response", name),
		StatusKey:      fmt.Sprintf("%s_status", name),
		ResponseAsJSON: true,
	}
}

// httpRequestParts is the prelude payload handed to the dispatch hook.
type httpRequestParts struct {
	url  string
	body io.Reader
}

// NewHTTPNode builds a node that executes a request and writes the response
// and status code into its component.
func NewHTTPNode(cfg HTTPConfig) (*vortex.Node, error) {
	if cfg.Name == "" {
		return nil, errors.New("http node requires a name")
	}
	if cfg.URL == "" {
		return nil, errors.New("http node requires a url")
	}
	if cfg.Component == "" {
		cfg.Component = cfg.Name
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}

	var urlTmpl, bodyTmpl *template.Template
	if strings.Contains(cfg.URL, "{{") {
		tmpl, err := template.New(cfg.Name + "-url").Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("compile url template: %w", err)
		}
		urlTmpl = tmpl
	}
	if cfg.BodyTemplate != "" {
		tmpl, err := template.New(cfg.Name + "-body").Parse(cfg.BodyTemplate)
		if err != nil {
			return nil, fmt.Errorf("compile body template: %w", err)
		}
		bodyTmpl = tmpl
	}

	node := vortex.NewNode(vortex.NodeConfig{
		Name:       cfg.Name,
		Component:  cfg.Component,
		RetryWaits: cfg.RetryWaits,
		Prelude: func(_ context.Context, shared *vortex.SharedContext, _ map[string]any) (any, error) {
			data := shared.Component(cfg.Component)

			target, err := renderURL(cfg, urlTmpl, data)
			if err != nil {
				return nil, err
			}
			body, err := renderBody(bodyTmpl, data)
			if err != nil {
				return nil, err
			}
			return httpRequestParts{url: target, body: body}, nil
		},
		Dispatch: func(ctx context.Context, prepRes any, _ map[string]any) (any, error) {
			parts, ok := prepRes.(httpRequestParts)
			if !ok {
				return nil, fmt.Errorf("http node %s: unexpected prelude payload %T", cfg.Name, prepRes)
			}

			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			req, err := http.NewRequestWithContext(ctx, strings.ToUpper(cfg.Method), parts.url, parts.body)
			if err != nil {
				return nil, err
			}
			for key, value := range cfg.Headers {
				req.Header.Set(key, value)
			}

			resp, err := cfg.Client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			payload, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			return httpResponse{status: resp.StatusCode, payload: payload}, nil
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			resp, ok := execRes.(httpResponse)
			if !ok {
				return "", fmt.Errorf("http node %s: unexpected dispatch payload %T", cfg.Name, execRes)
			}

			data := shared.Component(cfg.Component)
			if cfg.StatusKey != "" {
				data[cfg.StatusKey] = resp.status
			}
			if cfg.ResponseKey != "" {
				stored := any(string(resp.payload))
				if cfg.ResponseAsJSON {
					var parsed any
					if err := json.Unmarshal(resp.payload, &parsed); err == nil {
						stored = parsed
					}
				}
				data[cfg.ResponseKey] = stored
			}
			return "", nil
		},
	})
	return node, nil
}

type httpResponse struct {
	status  int
	payload []byte
}

func renderURL(cfg HTTPConfig, tmpl *template.Template, data map[string]any) (string, error) {
	target := cfg.URL
	if tmpl != nil {
		buf := &strings.Builder{}
		if err := tmpl.Execute(buf, data); err != nil {
			return "", err
		}
		target = buf.String()
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for key, value := range cfg.QueryParams {
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func renderBody(tmpl *template.Template, data map[string]any) (io.Reader, error) {
	if tmpl == nil {
		return nil, nil
	}
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}

func init() {
	Register(Definition{
		ID:          "http",
		Description: "Executes an HTTP request and stores the response in the node's component.",
		Example:     `nodes.NewHTTPNode(nodes.HTTPConfig{Name: "notify", URL: "https://example.com/event", Method: http.MethodPost, BodyTemplate: "{\"text\": \"{{.message}}\"}"})`,
	})
}
