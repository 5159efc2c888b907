package graph

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format names a supported graph file format.
type Format string

const (
	FormatEdgeList Format = "edgelist"
	FormatAdjList  Format = "adjlist"
	FormatGML      Format = "gml"
	FormatGraphML  Format = "graphml"
)

// ValidFormats lists the accepted format names.
var ValidFormats = map[string]bool{
	string(FormatEdgeList): true,
	string(FormatAdjList):  true,
	string(FormatGML):      true,
	string(FormatGraphML):  true,
}

// FormatFromPath infers the format from the file extension. Unknown extensions
// are read as edge lists.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gml":
		return FormatGML
	case ".graphml", ".xml":
		return FormatGraphML
	case ".adjlist", ".adj":
		return FormatAdjList
	}
	return FormatEdgeList
}

// IsGraphFile reports whether path has an extension the batch loader picks up.
func IsGraphFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gml", ".graphml", ".edgelist", ".edges", ".adjlist", ".txt":
		return true
	}
	return false
}

// ReadFile loads a graph from path. The graph is named after the file stem.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open graph %s", path)
	}
	defer func() { _ = f.Close() }()
	g, err := Read(f, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "read graph %s", path)
	}
	g.SetName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	return g, nil
}

// Read parses a graph in the given format. Edge direction, weights and
// attributes are ignored; self-loops are dropped and parallel edges collapsed.
func Read(r io.Reader, format Format) (*Graph, error) {
	switch format {
	case FormatEdgeList:
		return readLines(r, false)
	case FormatAdjList:
		return readLines(r, true)
	case FormatGML:
		return readGML(r)
	case FormatGraphML:
		return readGraphML(r)
	}
	return nil, fmt.Errorf("unknown graph format %q", format)
}

// Write emits g as an edge list: one "u v" line per edge, then isolated nodes.
func Write(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "%s %s\n", e.U, e.V); err != nil {
			return err
		}
	}
	for _, n := range g.Nodes() {
		if g.Degree(n) == 0 {
			if _, err := fmt.Fprintf(bw, "%s\n", n); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func readLines(r io.Reader, adjacency bool) (*Graph, error) {
	g := New("")
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		src := NodeID(fields[0])
		g.AddNode(src)
		targets := fields[1:]
		if !adjacency && len(targets) > 1 {
			// Remaining columns are weights or attributes.
			targets = targets[:1]
		}
		for _, t := range targets {
			g.AddEdge(src, NodeID(t))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNo, err)
	}
	return g, nil
}

// === GML ===

// gmlList is a parsed GML bracket list: ordered key/value pairs where a value is
// either a scalar token or a nested list.
type gmlList []gmlPair

type gmlPair struct {
	key   string
	value string
	list  gmlList
}

func readGML(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	toks, err := gmlTokens(string(data))
	if err != nil {
		return nil, err
	}
	pos := 0
	root, err := parseGMLList(toks, &pos, false)
	if err != nil {
		return nil, err
	}
	body := root
	for _, p := range root {
		if p.key == "graph" && p.list != nil {
			body = p.list
			break
		}
	}

	g := New("")
	for _, p := range body {
		switch p.key {
		case "node":
			id, ok := gmlValue(p.list, "id")
			if !ok {
				id, ok = gmlValue(p.list, "label")
			}
			if !ok {
				return nil, fmt.Errorf("gml node without id")
			}
			g.AddNode(NodeID(id))
		case "edge":
			src, okS := gmlValue(p.list, "source")
			dst, okT := gmlValue(p.list, "target")
			if !okS || !okT {
				return nil, fmt.Errorf("gml edge without source or target")
			}
			g.AddEdge(NodeID(src), NodeID(dst))
		}
	}
	return g, nil
}

func gmlValue(l gmlList, key string) (string, bool) {
	for _, p := range l {
		if p.key == key && p.list == nil {
			return p.value, true
		}
	}
	return "", false
}

func parseGMLList(toks []string, pos *int, nested bool) (gmlList, error) {
	var out gmlList
	for *pos < len(toks) {
		key := toks[*pos]
		if key == "]" {
			if !nested {
				return nil, fmt.Errorf("gml: unexpected ']'")
			}
			*pos++
			return out, nil
		}
		*pos++
		if *pos >= len(toks) {
			return nil, fmt.Errorf("gml: key %q without value", key)
		}
		if toks[*pos] == "[" {
			*pos++
			sub, err := parseGMLList(toks, pos, true)
			if err != nil {
				return nil, err
			}
			out = append(out, gmlPair{key: key, list: sub})
			continue
		}
		out = append(out, gmlPair{key: key, value: toks[*pos]})
		*pos++
	}
	if nested {
		return nil, fmt.Errorf("gml: unterminated '['")
	}
	return out, nil
}

// gmlTokens splits GML text into brackets, bare words and unquoted strings.
// Lines starting with '#' are comments.
func gmlTokens(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '[' || c == ']':
			toks = append(toks, string(c))
			i++
		case c == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("gml: unterminated string at offset %d", i)
			}
			toks = append(toks, s[i+1:i+1+end])
			i += end + 2
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t\r\n[]\"", rune(s[j])) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks, nil
}

// === GraphML ===

type graphMLDoc struct {
	Graphs []struct {
		Nodes []struct {
			ID string `xml:"id,attr"`
		} `xml:"node"`
		Edges []struct {
			Source string `xml:"source,attr"`
			Target string `xml:"target,attr"`
		} `xml:"edge"`
	} `xml:"graph"`
}

func readGraphML(r io.Reader) (*Graph, error) {
	var doc graphMLDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("graphml: %w", err)
	}
	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("graphml: no <graph> element")
	}
	g := New("")
	for _, n := range doc.Graphs[0].Nodes {
		g.AddNode(NodeID(n.ID))
	}
	for _, e := range doc.Graphs[0].Edges {
		g.AddEdge(NodeID(e.Source), NodeID(e.Target))
	}
	return g, nil
}
