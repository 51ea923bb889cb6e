package parser

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, filename, source string) *Tree {
	t.Helper()
	tree, err := NewParser().Parse(context.Background(), filename, []byte(source))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		ok       bool
	}{
		{"main.go", "Go", true},
		{"script.py", "Python", true},
		{"app.js", "JavaScript", true},
		{"App.jsx", "JavaScript", true},
		{"app.ts", "TypeScript", true},
		{"View.tsx", "TypeScript", true},
		{"Main.java", "Java", true},
		{"lib.rs", "Rust", true},
		{"script.rb", "Ruby", true},
		{"main.c", "C", true},
		{"header.h", "C", true},
		{"main.cpp", "C++", true},
		{"MAIN.GO", "Go", true},
		{"file.xyz", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			l, ok := Detect(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, l.Name)
		})
	}
}

func TestParseUnknownExtension(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), "file.xyz", []byte("some content"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestGoImportsAndDeclarations(t *testing.T) {
	tree := parse(t, "main.go", `package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type Foo struct{}

func (f *Foo) Bar() {}

func main() {
	fmt.Println(os.Args, cobra.Command{})
}
`)
	assert.Equal(t, "Go", tree.Language().Name)
	assert.Equal(t, []string{"fmt", "os", "github.com/spf13/cobra"}, tree.Imports())
	assert.Equal(t, 3, tree.Declarations())
}

func TestGoSingleImport(t *testing.T) {
	tree := parse(t, "main.go", "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println() }\n")
	assert.Equal(t, []string{"fmt"}, tree.Imports())
}

func TestPythonImports(t *testing.T) {
	tree := parse(t, "script.py", `import os, sys as system
from flask import Flask

class App:
    pass

def main():
    pass
`)
	assert.Equal(t, []string{"os", "sys", "flask"}, tree.Imports())
	assert.Equal(t, 2, tree.Declarations())
}

func TestJavaScriptImports(t *testing.T) {
	tree := parse(t, "imports.js", `import 'side-effect-module';
import { useState } from 'react';
const express = require("express");

function hello() {
  console.log("hello");
}
`)
	imports := tree.Imports()
	assert.Contains(t, imports, "side-effect-module")
	assert.Contains(t, imports, "react")
	assert.Contains(t, imports, "express")
	assert.Equal(t, 1, tree.Declarations())
}

func TestTypeScriptImports(t *testing.T) {
	tree := parse(t, "app.ts", `import { Injectable } from '@nestjs/common';

function greet(name: string): void {
  console.log(name);
}
`)
	assert.Equal(t, []string{"@nestjs/common"}, tree.Imports())
	assert.Equal(t, 1, tree.Declarations())
}

func TestRustImports(t *testing.T) {
	tree := parse(t, "lib.rs", `use std::io;
use serde::Deserialize;

fn main() {}
`)
	assert.Equal(t, []string{"std::io", "serde::Deserialize"}, tree.Imports())
	assert.Equal(t, 1, tree.Declarations())
}

func TestCIncludes(t *testing.T) {
	tree := parse(t, "main.c", `#include <stdio.h>
#include "myheader.h"

int main() {
    return 0;
}
`)
	assert.Equal(t, []string{"stdio.h", "myheader.h"}, tree.Imports())
	assert.Equal(t, 1, tree.Declarations())
}

func TestRubyRequires(t *testing.T) {
	tree := parse(t, "script.rb", `require 'json'
require_relative 'helper'

def greet(name)
  puts "Hello, #{name}"
end
`)
	imports := tree.Imports()
	assert.Contains(t, imports, "json")
	assert.Contains(t, imports, "./helper")
}

func TestJavaImports(t *testing.T) {
	tree := parse(t, "Main.java", `import java.util.List;
import org.springframework.boot.SpringApplication;

public class Main {
    public static void main(String[] args) {}
}
`)
	assert.Equal(t, []string{"java.util.List", "org.springframework.boot.SpringApplication"}, tree.Imports())
	assert.Equal(t, 2, tree.Declarations())
}

func TestCloseIsIdempotent(t *testing.T) {
	tree, err := NewParser().Parse(context.Background(), "main.go", []byte("package main\n"))
	require.NoError(t, err)
	tree.Close()
	tree.Close()
}

func TestWalkNilNode(t *testing.T) {
	var called bool
	walk(nil, func(_ *sitter.Node) { called = true })
	assert.False(t, called)
}

func TestTrimQuotes(t *testing.T) {
	for in, want := range map[string]string{
		`"fmt"`:        "fmt",
		`'react';`:     "react",
		"  `lodash`  ": "lodash",
		`("express")`:  "express",
		"std::io;":     "std::io",
	} {
		assert.Equal(t, want, trimQuotes(in), in)
	}
}
