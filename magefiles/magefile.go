//go:build mage

// Package main provides build targets for the tablestore project using Mage.
//
// Usage:
//
//	mage build        Compile tablestore binary to bin/
//	mage test:all     Run all tests
//	mage test:short   Run tests with -short
//	mage test:race    Run tests with the race detector
//	mage test:cover   Write coverage.out and print the total
//	mage lint         Run go vet and golangci-lint
//	mage clean        Remove build artifacts
//	mage install      Install tablestore to GOPATH/bin
package main

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "tablestore"
	binaryDir  = "bin"
	cmdDir     = "./cmd/tablestore"
	coverFile  = "coverage.out"
)
