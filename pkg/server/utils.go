package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aleksaelezovic/rdfixture/pkg/client"
	"github.com/aleksaelezovic/rdfixture/pkg/rdf"
	"github.com/aleksaelezovic/rdfixture/pkg/results"
	"github.com/aleksaelezovic/rdfixture/pkg/sparql"
)

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.logger.Warn("request failed", "status", statusCode, "message", message)

	var body errorBody
	body.Error.Code = statusCode
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body) // #nosec G104 - nothing to do about a failed write
}

// negotiateResults picks a result format from an Accept header, JSON by
// default
func negotiateResults(accept string) results.Format {
	for _, mediaType := range strings.Split(accept, ",") {
		if f, err := results.ParseFormat(mediaType); err == nil {
			return f
		}
	}
	return results.FormatJSON
}

// negotiateRDF picks an RDF format from an Accept header, N-Quads by
// default
func negotiateRDF(accept string) rdf.Format {
	for _, mediaType := range strings.Split(accept, ",") {
		if f, err := rdf.ParseFormat(mediaType); err == nil && f.MediaType() != "" {
			return f
		}
	}
	return rdf.FormatNQuads
}

// writeResult writes a query result. CONSTRUCT results are RDF, the
// others SPARQL results.
func (s *Server) writeResult(w http.ResponseWriter, result sparql.Result, accept string) {
	var err error

	switch r := result.(type) {
	case *sparql.ConstructResult:
		format := negotiateRDF(accept)
		w.Header().Set("Content-Type", format.MediaType()+"; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		err = rdf.NewDataset(r.Quads...).Serialize(w, format)

	case *sparql.SelectResult:
		rows := make([]client.Bindings, len(r.Bindings))
		for i, b := range r.Bindings {
			rows[i] = client.Bindings(b.Vars)
		}
		format := negotiateResults(accept)
		w.Header().Set("Content-Type", format.MediaType()+"; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		err = results.Write(w, r.Variables, rows, format)

	case *sparql.AskResult:
		format := negotiateResults(accept)
		w.Header().Set("Content-Type", format.MediaType()+"; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		err = results.WriteBoolean(w, r.Value, format)

	default:
		s.writeError(w, http.StatusInternalServerError, "unsupported query form")
		return
	}

	if err != nil {
		s.logger.Error("write query result", "error", err)
	}
}
