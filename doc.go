// Package main provides the go-buildvariant CLI tool for resolving Android
// build variants.
//
// For the library API, see the variant subpackage:
//
//	import "github.com/aluedeke/go-buildvariant/pkg/variant"
//
// # Installation
//
// Install the CLI:
//
//	go install github.com/aluedeke/go-buildvariant@latest
package main
