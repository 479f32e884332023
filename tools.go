//go:build tools
// +build tools

// Package tools tracks the code generators used by go generate so their
// versions are pinned in go.mod.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
