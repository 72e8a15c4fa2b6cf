//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// postgresDSNEnv enables the postgres backend tests.
const postgresDSNEnv = "PROPSYNC_TEST_POSTGRES_DSN"

// Test groups test targets (all, unit, postgres).
type Test mg.Namespace

// All runs every test. Postgres tests skip themselves without a DSN.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the tests of every package except the postgres backend.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/internal/postgres") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Postgres runs the postgres backend tests. It fails when the DSN is unset
// rather than letting every test skip.
func (Test) Postgres() error {
	if os.Getenv(postgresDSNEnv) == "" {
		return fmt.Errorf("%s is not set", postgresDSNEnv)
	}
	return sh.RunV(binGo, "test", "-v", "-count=1", "./internal/postgres/...")
}
