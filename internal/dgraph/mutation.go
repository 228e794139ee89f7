package dgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/dgo/v230/protos/api"
)

// Mutation statements use the /mutate request body format on both
// transports:
//
//	{ set { <n-quads> } delete { <n-quads> } }
//	upsert { query { ... } mutation @if(...) { set { ... } } }
//	{"set": [...], "delete": [...], "query": "...", "cond": "@if(...)"}
//
// The HTTP executor posts the statement as is. The gRPC executor unwraps
// it with parseMutation into the request query and api.Mutation fields.

type jsonMutation struct {
	Query  string          `json:"query,omitempty"`
	Cond   string          `json:"cond,omitempty"`
	Set    json.RawMessage `json:"set,omitempty"`
	Delete json.RawMessage `json:"delete,omitempty"`
}

// parseMutation returns the upsert query (empty for plain mutations) and the
// mutations carried by stmt.
func parseMutation(stmt string) (string, []*api.Mutation, error) {
	if isJSON(stmt) {
		return parseJSONMutation(stmt)
	}
	return parseRDFMutation(stmt)
}

func parseJSONMutation(stmt string) (string, []*api.Mutation, error) {
	dec := json.NewDecoder(strings.NewReader(stmt))
	dec.DisallowUnknownFields()
	var m jsonMutation
	if err := dec.Decode(&m); err != nil {
		return "", nil, fmt.Errorf("invalid json mutation: %w", err)
	}

	mu := &api.Mutation{Cond: m.Cond}
	if !isNull(m.Set) {
		mu.SetJson = m.Set
	}
	if !isNull(m.Delete) {
		mu.DeleteJson = m.Delete
	}
	if len(mu.SetJson) == 0 && len(mu.DeleteJson) == 0 {
		return "", nil, fmt.Errorf("invalid json mutation: no set or delete")
	}
	return m.Query, []*api.Mutation{mu}, nil
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || string(s) == "null"
}

func parseRDFMutation(stmt string) (string, []*api.Mutation, error) {
	top, err := splitBlocks(stmt)
	if err != nil {
		return "", nil, err
	}
	if len(top) != 1 {
		return "", nil, fmt.Errorf("invalid rdf mutation: want one top-level block, got %d", len(top))
	}

	switch b := top[0]; b.name {
	case "":
		mu, err := rdfMutation(b.body, "")
		if err != nil {
			return "", nil, err
		}
		return "", []*api.Mutation{mu}, nil
	case "upsert":
		return rdfUpsert(b.body)
	default:
		return "", nil, fmt.Errorf("invalid rdf mutation: unexpected block %q", b.name)
	}
}

func rdfUpsert(body string) (string, []*api.Mutation, error) {
	blocks, err := splitBlocks(body)
	if err != nil {
		return "", nil, err
	}

	var query string
	var mus []*api.Mutation
	for _, b := range blocks {
		switch b.name {
		case "query":
			query = "{" + b.body + "}"
		case "mutation":
			mu, err := rdfMutation(b.body, b.header)
			if err != nil {
				return "", nil, err
			}
			mus = append(mus, mu)
		default:
			return "", nil, fmt.Errorf("invalid upsert: unexpected block %q", b.name)
		}
	}
	if query == "" || len(mus) == 0 {
		return "", nil, fmt.Errorf("invalid upsert: needs a query and at least one mutation")
	}
	return query, mus, nil
}

func rdfMutation(body, cond string) (*api.Mutation, error) {
	blocks, err := splitBlocks(body)
	if err != nil {
		return nil, err
	}

	mu := &api.Mutation{Cond: cond}
	for _, b := range blocks {
		if b.header != "" {
			return nil, fmt.Errorf("invalid rdf mutation: unexpected %q after %s", b.header, b.name)
		}
		nquads := strings.TrimSpace(b.body)
		switch b.name {
		case "set":
			mu.SetNquads = appendNquads(mu.SetNquads, nquads)
		case "delete":
			mu.DelNquads = appendNquads(mu.DelNquads, nquads)
		default:
			return nil, fmt.Errorf("invalid rdf mutation: unexpected block %q", b.name)
		}
	}
	if len(mu.SetNquads) == 0 && len(mu.DelNquads) == 0 {
		return nil, fmt.Errorf("invalid rdf mutation: no set or delete block")
	}
	return mu, nil
}

func appendNquads(dst []byte, nquads string) []byte {
	if nquads == "" {
		return dst
	}
	if len(dst) > 0 {
		dst = append(dst, '\n')
	}
	return append(dst, nquads...)
}

// block is one `name header { body }` section of an RDF statement.
type block struct {
	name   string
	header string
	body   string
}

// splitBlocks reads a sequence of blocks. Braces inside quoted literals do
// not count.
func splitBlocks(s string) ([]block, error) {
	var out []block
	for {
		s = strings.TrimSpace(s)
		if s == "" {
			return out, nil
		}
		open := strings.IndexByte(s, '{')
		if open < 0 {
			return nil, fmt.Errorf("invalid rdf mutation: expected a block at %q", snippet([]byte(s)))
		}
		end, err := matchBrace(s, open)
		if err != nil {
			return nil, err
		}

		head := strings.TrimSpace(s[:open])
		b := block{name: head, body: s[open+1 : end]}
		if i := strings.IndexAny(head, " \t\r\n@"); i >= 0 {
			b.name, b.header = head[:i], strings.TrimSpace(head[i:])
		}
		out = append(out, b)
		s = s[end+1:]
	}
}

// matchBrace returns the index of the brace closing s[open].
func matchBrace(s string, open int) (int, error) {
	depth := 0
	inString := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid rdf mutation: unbalanced braces")
}
