package config

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// parseKDL walks a parsed .ff.kdl document and applies every node it
// recognizes onto cfg, leaving the built-in default for anything the file
// doesn't mention. Shape:
//
//	cache {
//	    path "/var/cache/ff/cache.db"
//	}
//	ignore {
//	    files ".gitignore" ".ignore" ".ffignore"
//	}
//	plugins {
//	    dirs "/usr/local/lib/ff/plugins"
//	}
//	workers 8
//	color "always"
//	halt "soon"
func parseKDL(content string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse .ff.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "cache":
			for _, cn := range n.Children {
				assignSimpleString(cn, "path", func(v string) { cfg.CachePath = v })
			}
		case "ignore":
			for _, cn := range n.Children {
				if nodeName(cn) == "files" {
					if files := collectStringArgs(cn); len(files) > 0 {
						cfg.IgnoreFiles = files
					}
				}
			}
		case "plugins":
			for _, cn := range n.Children {
				if nodeName(cn) == "dirs" {
					cfg.PluginDirs = append(cfg.PluginDirs, collectStringArgs(cn)...)
				}
			}
		case "workers":
			if v, ok := firstIntArg(n); ok {
				cfg.Workers = v
			}
		case "color":
			if s, ok := firstStringArg(n); ok {
				cfg.Color = s
			}
		case "halt":
			if s, ok := firstStringArg(n); ok {
				cfg.Halt = s
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

// collectStringArgs reads string values either from a node's inline
// arguments (`files ".gitignore" ".ignore"`) or, failing that, from its
// children's names (`files { ".gitignore" ; ".ignore" }`).
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
