package analyzer

import (
	"testing"

	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/parser"
)

func analyzeScript(t *testing.T, path, source string) *AnalysisUnit {
	t.Helper()
	unit, err := NewScript(parser.DetectLanguage(path)).Analyze(path, []byte(source))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return unit
}

func TestScriptFunctionDeclarations(t *testing.T) {
	unit := analyzeScript(t, "src/util.js", `
function plain(a, b) {
  return a + b;
}

const arrow = (x) => {
  return x * 2;
};

const shortArrow = x => x + 1;

export async function fetchData(url) {
  return fetch(url);
}
`)

	names := functionNames(unit)
	for _, want := range []string{"plain", "arrow", "shortArrow", "fetchData"} {
		if !names[want] {
			t.Errorf("missing function %q in %v", want, names)
		}
	}
}

func TestScriptClassMethods(t *testing.T) {
	unit := analyzeScript(t, "src/service.ts", `
export class UserService {
  find(id: string): User {
    return this.repo.get(id);
  }

  async save(user: User) {
    await this.repo.put(user);
  }
}
`)

	names := functionNames(unit)
	if !names["UserService.find"] || !names["UserService.save"] {
		t.Errorf("missing class methods in %v", names)
	}
}

func TestScriptImports(t *testing.T) {
	unit := analyzeScript(t, "src/app.js", `
import React from 'react';
import { useState, useEffect as effect } from 'react';
import * as path from 'path';
import './styles.css';
const fs = require('fs');
const { join, resolve: res } = require('path');
`)

	type key struct {
		module, symbol, alias string
		wildcard              bool
	}
	got := make(map[key]bool)
	for _, imp := range unit.Imports {
		got[key{imp.Module, imp.Symbol, imp.Alias, imp.Wildcard}] = true
	}

	want := []key{
		{"react", "default", "React", false},
		{"react", "useState", "", false},
		{"react", "useEffect", "effect", false},
		{"path", "", "path", true},
		{"./styles.css", "", "", false},
		{"fs", "", "fs", false},
		{"path", "join", "", false},
		{"path", "resolve", "res", false},
	}
	for _, k := range want {
		if !got[k] {
			t.Errorf("missing import %+v in %+v", k, unit.Imports)
		}
	}
}

func TestScriptCallSitesWithEnclosingFunction(t *testing.T) {
	unit := analyzeScript(t, "src/main.js", `
function outer() {
  helper(1);
  api.send(payload);
}

bootstrap();
`)

	found := func(caller, target string) bool {
		for _, c := range unit.Calls {
			if c.Caller == caller && c.Target == target {
				return true
			}
		}
		return false
	}

	if !found("outer", "helper") {
		t.Error("missing helper call inside outer")
	}
	if !found("outer", "api.send") {
		t.Error("missing dotted call inside outer")
	}
	if !found("", "bootstrap") {
		t.Error("missing module-scope call")
	}
}

func TestScriptExportsAreReexportRoots(t *testing.T) {
	unit := analyzeScript(t, "src/lib.js", `
function internal() {
  return 1;
}

function published() {
  return 2;
}

export { published };
`)

	if _, ok := unit.HeuristicRoots["published"]; !ok {
		t.Error("exported function should be a re-export root")
	}
	if _, ok := unit.HeuristicRoots["internal"]; ok {
		t.Error("unexported function must not be a re-export root")
	}

	reasons := unit.HeuristicRoots["published"]
	if len(reasons) == 0 || reasons[0] != models.HeuristicReexport {
		t.Errorf("expected reexport reason, got %v", reasons)
	}
}

func TestScriptMetricsAndFragments(t *testing.T) {
	unit := analyzeScript(t, "src/calc.js", `
function branchy(x) {
  if (x > 0) {
    return 1;
  }
  return 0;
}
`)

	m, ok := unit.Metrics["branchy"]
	if !ok {
		t.Fatal("expected metrics for branchy")
	}
	if m.Complexity < 2 {
		t.Errorf("expected complexity >= 2, got %d", m.Complexity)
	}
	if len(unit.Fragments) == 0 {
		t.Fatal("expected a fragment for branchy")
	}
}

func TestScriptUnclosedFunctionAtEOF(t *testing.T) {
	unit := analyzeScript(t, "src/broken.js", "function dangling() {\n  doWork();\n")

	names := functionNames(unit)
	if !names["dangling"] {
		t.Errorf("unclosed function should still be recorded, got %v", names)
	}
}
