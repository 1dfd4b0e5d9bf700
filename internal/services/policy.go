package services

import (
	"path/filepath"
	"strings"
)

var (
	DefaultIgnorePrefixes   = []string{"$"}
	DefaultIgnoreNames      = []string{"System Volume Information", "Config.Msi"}
	DefaultScriptExtensions = []string{".exe", ".dll", ".bat", ".vbs", ".ps1"}
)

// Policy decides which paths are skipped, measured as a unit, or counted as
// scripts. A Policy is not modified after construction.
type Policy struct {
	ignorePrefixes   []string
	ignoreNames      []string
	scriptExtensions map[string]struct{}
	opaqueDotfiles   bool
}

type PolicyOptions struct {
	IgnorePrefixes   []string
	IgnoreNames      []string
	ScriptExtensions []string
	OpaqueDotfiles   bool
}

func DefaultPolicy() Policy {
	return NewPolicy(PolicyOptions{
		IgnorePrefixes:   DefaultIgnorePrefixes,
		IgnoreNames:      DefaultIgnoreNames,
		ScriptExtensions: DefaultScriptExtensions,
	})
}

func NewPolicy(options PolicyOptions) Policy {
	extensions := make(map[string]struct{}, len(options.ScriptExtensions))
	for _, ext := range options.ScriptExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}
	return Policy{
		ignorePrefixes:   append([]string{}, options.IgnorePrefixes...),
		ignoreNames:      append([]string{}, options.IgnoreNames...),
		scriptExtensions: extensions,
		opaqueDotfiles:   options.OpaqueDotfiles,
	}
}

func (policy Policy) IsIgnored(path string) bool {
	name := baseName(path)
	if name == "" {
		return false
	}
	for _, prefix := range policy.ignorePrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, reserved := range policy.ignoreNames {
		if reserved != "" && strings.HasSuffix(name, reserved) {
			return true
		}
	}
	return false
}

func (policy Policy) IsOpaqueLeaf(path string) bool {
	if !policy.opaqueDotfiles {
		return false
	}
	name := baseName(path)
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func (policy Policy) IsScript(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	_, ok := policy.scriptExtensions[ext]
	return ok
}

func baseName(path string) string {
	if parentPath(path) == "" {
		return ""
	}
	return filepath.Base(path)
}
