//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the propsync project using Mage.
//
// Usage:
//
//	mage build          Compile propdash binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests that need no external services
//	mage test:postgres  Run the postgres backend tests against PROPSYNC_TEST_POSTGRES_DSN
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install propdash to GOPATH/bin
//	mage stats          Print Go LOC counts
package main
