package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/registry"
	"github.com/morezero/method-pipe/pkg/semver"
)

// maxCallBody caps the size of a POST /call envelope.
const maxCallBody = 1 << 20

// MethodsOutput is the body of GET /methods.
type MethodsOutput struct {
	Registry   string                          `json:"registry"`
	Count      int                             `json:"count"`
	Namespaces map[string][]method.Description `json:"namespaces"`
	Aliases    map[string]string               `json:"aliases,omitempty"`
}

// Handler returns the HTTP mux of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/methods", s.handleMethods)
	mux.HandleFunc("/call", s.handleCall)
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) health(ctx context.Context) *registry.HealthOutput {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HealthCheckTimeout)
	defer cancel()
	return s.reg.Health(ctx, s.probes...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.health(r.Context())
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

// methods describes every method the pipe resolves, grouped by namespace.
func (s *Server) methods() *MethodsOutput {
	names := s.pipe.Methods()
	out := &MethodsOutput{
		Registry:   s.reg.Name(),
		Count:      len(names),
		Namespaces: make(map[string][]method.Description),
	}
	for ns, members := range semver.GroupByNamespace(names) {
		for _, name := range members {
			m, ok := s.pipe.Lookup(name)
			if !ok {
				continue
			}
			out.Namespaces[ns] = append(out.Namespaces[ns], method.Describe(m))
		}
	}
	if aliases := s.bootstrap.Aliases(); len(aliases) > 0 {
		out.Aliases = make(map[string]string, len(aliases))
		for _, a := range aliases {
			out.Aliases[a] = s.bootstrap.ResolveAlias(a)
		}
	}
	return out
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.methods())
}

// handleCall runs one call envelope. Every outcome, including a malformed
// envelope, is a 200 with a response envelope.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.disp.DispatchBytes(r.Context(), body))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", logPrefix, err))
	}
}

// homePageTemplate is the HTML of the home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Method Pipe</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Method Pipe</h1>
  <p class="meta">Registry {{.Methods.Registry}}: health and bound methods.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    {{range $name, $ok := .Health.Checks}}
    <p>{{$name}}: {{if $ok}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>
    {{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Methods</h2>
    <p>Total methods: <span class="stat">{{.Methods.Count}}</span></p>
    {{if not .Namespaces}}
    <p>No methods registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Namespace</th><th>Method</th><th>Params</th><th>Result</th></tr>
      </thead>
      <tbody>
        {{range .Namespaces}}{{$ns := .Name}}{{range .Methods}}
        <tr>
          <td>{{$ns}}</td>
          <td>{{.Name}}</td>
          <td>{{range .Params}}{{.Name}}:{{.Kind}}{{if .Required}}*{{end}} {{end}}</td>
          <td>{{range .Result}}{{.Name}}:{{.Kind}} {{end}}</td>
        </tr>
        {{end}}{{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  {{if .Methods.Aliases}}
  <section>
    <h2>Aliases</h2>
    <table>
      <thead><tr><th>Alias</th><th>Method</th></tr></thead>
      <tbody>
        {{range $alias, $target := .Methods.Aliases}}
        <tr><td>{{$alias}}</td><td>{{$target}}</td></tr>
        {{end}}
      </tbody>
    </table>
  </section>
  {{end}}
</body>
</html>
`

type namespaceView struct {
	Name    string
	Methods []method.Description
}

// homeData is the data passed to the home page template.
type homeData struct {
	Health     *registry.HealthOutput
	Methods    *MethodsOutput
	Namespaces []namespaceView
}

func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data := homeData{Health: s.health(r.Context()), Methods: s.methods()}
		for ns, descs := range data.Methods.Namespaces {
			data.Namespaces = append(data.Namespaces, namespaceView{Name: ns, Methods: descs})
		}
		sort.Slice(data.Namespaces, func(i, j int) bool { return data.Namespaces[i].Name < data.Namespaces[j].Name })

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
