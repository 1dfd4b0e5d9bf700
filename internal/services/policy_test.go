package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyIsIgnored(t *testing.T) {
	policy := DefaultPolicy()

	cases := map[string]bool{
		"/mnt/d/$RECYCLE.BIN":                 true,
		"/mnt/d/$Extend":                      true,
		"/mnt/d/System Volume Information":    true,
		"/mnt/d/Config.Msi":                   true,
		"/mnt/d/projects":                     false,
		"/mnt/d/projects/a$b":                 false,
		"/":                                   false,
		"/mnt/d/projects/System Volume Notes": false,
	}
	for path, want := range cases {
		assert.Equal(t, want, policy.IsIgnored(path), path)
	}
}

func TestPolicyIsScript(t *testing.T) {
	policy := DefaultPolicy()

	assert.True(t, policy.IsScript("/r/setup.exe"))
	assert.True(t, policy.IsScript("/r/SETUP.EXE"))
	assert.True(t, policy.IsScript("/r/lib/core.dll"))
	assert.True(t, policy.IsScript("/r/run.ps1"))
	assert.False(t, policy.IsScript("/r/readme.txt"))
	assert.False(t, policy.IsScript("/r/exe"))
}

func TestPolicyOpaqueLeaf(t *testing.T) {
	assert.False(t, DefaultPolicy().IsOpaqueLeaf("/r/.git"))

	policy := NewPolicy(PolicyOptions{OpaqueDotfiles: true, ScriptExtensions: []string{"sh"}})
	assert.True(t, policy.IsOpaqueLeaf("/r/.git"))
	assert.False(t, policy.IsOpaqueLeaf("/r/src"))
	assert.True(t, policy.IsScript("/r/build.sh"))
	assert.False(t, policy.IsIgnored("/r/$tmp"))
}
