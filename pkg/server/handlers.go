package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
)

// handleRoot serves a query page for the endpoint
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s/sparql", scheme, r.Host)

	page := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>rdfixture</title>
    <link href="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.css" rel="stylesheet" type="text/css" />
    <script src="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.js"></script>
    <style>
        body { margin: 0; font-family: sans-serif; display: flex; flex-direction: column; height: 100vh; }
        header { background: #34495e; color: white; padding: 10px 16px; }
        header code { background: rgba(255,255,255,0.2); padding: 1px 5px; }
        #yasgui { flex: 1; overflow: hidden; }
    </style>
</head>
<body>
    <header>
        Fixture endpoint <code>` + endpointURL + `</code>,
        ` + fmt.Sprintf("%d", s.QuadCount()) + ` quads
    </header>
    <div id="yasgui"></div>
    <script>
        new Yasgui(document.getElementById("yasgui"), {
            requestConfig: { endpoint: "` + endpointURL + `", method: "POST" },
            copyEndpointOnNewTab: false
        });
    </script>
</body>
</html>`

	_, _ = w.Write([]byte(page)) // #nosec G104 - nothing to do about a failed write
}

// handleSPARQL answers queries per the SPARQL 1.1 Protocol. Updates are
// rejected.
// https://www.w3.org/TR/sparql11-protocol/
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	var query string
	switch r.Method {
	case http.MethodGet:
		query = r.URL.Query().Get("query")

	case http.MethodPost:
		contentType := r.Header.Get("Content-Type")
		if strings.Contains(contentType, "application/x-www-form-urlencoded") {
			if err := r.ParseForm(); err != nil {
				s.writeError(w, http.StatusBadRequest, "failed to parse form")
				return
			}
			if r.PostForm.Has("update") {
				s.writeError(w, http.StatusForbidden, "the fixture endpoint is read-only")
				return
			}
			query = r.PostForm.Get("query")
		} else {
			if strings.Contains(contentType, "application/sparql-update") {
				s.writeError(w, http.StatusForbidden, "the fixture endpoint is read-only")
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			query = string(body)
		}

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed, use GET or POST")
		return
	}

	if strings.TrimSpace(query) == "" {
		s.writeError(w, http.StatusBadRequest, "missing 'query' parameter")
		return
	}

	result, err := s.engine.Query(query)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("query error: %v", err))
		return
	}

	s.writeResult(w, result, r.Header.Get("Accept"))
}

// handleData dumps the fixture. The graph parameter selects one named
// graph and the default parameter selects the default graph, both
// following the SPARQL 1.1 Graph Store Protocol.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed, use GET")
		return
	}

	params := r.URL.Query()
	format := negotiateRDF(r.Header.Get("Accept"))

	var dataset *rdf.Dataset
	switch {
	case params.Has("graph") || params.Has("default"):
		var graph rdf.Term
		if iri := params.Get("graph"); iri != "" {
			graph = rdf.NewNamedNode(iri)
		}
		quads, err := s.graph(r, graph)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		dataset = rdf.NewDataset(quads...)
		if !format.SupportsGraphs() {
			dataset = dataset.Map(func(q *rdf.Quad) *rdf.Quad { return q.InGraph(nil) })
		}

	default:
		var err error
		dataset, err = s.data.Dataset()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !format.SupportsGraphs() {
			format = rdf.FormatNQuads
		}
	}

	w.Header().Set("Content-Type", format.MediaType()+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := dataset.Serialize(w, format); err != nil {
		s.logger.Error("serialize dataset", "format", format, "error", err)
	}
}

// graph collects one graph through the graph store client
func (s *Server) graph(r *http.Request, graph rdf.Term) ([]*rdf.Quad, error) {
	stream, err := s.data.StreamClient.Store().Get(r.Context(), graph)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var quads []*rdf.Quad
	for stream.Next() {
		quads = append(quads, stream.Quad())
	}
	return quads, stream.Err()
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}
