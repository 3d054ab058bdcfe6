// Copyright (C) 2025 The Libra Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package specfile parses the text specification of which network inputs are
// sensitive and which are one-hot-encoded "uncontroversial" groups, leaving
// every remaining input as a real-valued uncontroversial feature.
package specfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/libra-go/libra/services/bias/domain"
	"github.com/libra-go/libra/services/bias/symbolic"
)

// ErrSpecificationMalformed is returned when a line that should hold an
// arity integer, or a following variable-name line, is missing or empty.
var ErrSpecificationMalformed = errors.New("specfile: malformed specification")

// ErrUnknownVariable is returned when a variable named in the specification
// is not among the network's declared inputs.
var ErrUnknownVariable = errors.New("specfile: unknown variable")

// Specification is the parsed content of a spec-file: which inputs form the
// (one-hot encoded) sensitive group, which remaining inputs are grouped into
// one-hot "uncontroversial" encodings, and which are left as plain
// real-valued uncontroversial features.
type Specification struct {
	// Sensitive is the one-hot encoded sensitive attribute's member
	// variables, in declaration order.
	Sensitive []symbolic.Variable

	// OneHotGroups are the uncontroversial one-hot encoded feature groups,
	// in declaration order.
	OneHotGroups [][]symbolic.Variable

	// RealFeatures are the network inputs not mentioned in Sensitive or any
	// OneHotGroups — real-valued uncontroversial features.
	RealFeatures []symbolic.Variable

	// Bounds conjoins 0<=v<=1 for every variable in Sensitive and every
	// OneHotGroups member.
	Bounds symbolic.Expr

	// Ranges gives each RealFeatures member its default [0,1] range.
	Ranges map[symbolic.Variable]domain.Interval
}

// Parse reads a spec-file (spec.md §6's text format: an arity line followed
// by that many variable-name lines, repeated — the first group is the
// sensitive attribute, every following group is a one-hot uncontroversial
// group, terminated by a line that does not parse as an integer or by EOF)
// against the network's declared input variables.
func Parse(r io.Reader, inputs []symbolic.Variable) (*Specification, error) {
	scanner := bufio.NewScanner(r)

	known := make(map[symbolic.Variable]bool, len(inputs))
	for _, v := range inputs {
		known[v] = true
	}
	used := make(map[symbolic.Variable]bool, len(inputs))

	sensitive, err := readGroup(scanner, known, used)
	if errors.Is(err, errNotAnArity) {
		return nil, fmt.Errorf("%w: missing sensitive group arity line", ErrSpecificationMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("specfile: reading sensitive group: %w", err)
	}
	if len(sensitive) == 0 {
		return nil, fmt.Errorf("%w: sensitive group must not be empty", ErrSpecificationMalformed)
	}

	var groups [][]symbolic.Variable
	for {
		group, err := readGroup(scanner, known, used)
		if err != nil {
			if errors.Is(err, errNotAnArity) {
				break
			}
			return nil, fmt.Errorf("specfile: reading uncontroversial group %d: %w", len(groups), err)
		}
		if len(group) == 0 {
			break
		}
		groups = append(groups, group)
	}

	var real []symbolic.Variable
	for _, v := range inputs {
		if !used[v] {
			real = append(real, v)
		}
	}

	bounds := unitBounds(sensitive)
	for _, g := range groups {
		bounds = symbolic.And(bounds, unitBounds(g))
	}

	ranges := make(map[symbolic.Variable]domain.Interval, len(real))
	for _, v := range real {
		ranges[v] = domain.Interval{Lo: big.NewRat(0, 1), Hi: big.NewRat(1, 1)}
	}

	return &Specification{
		Sensitive:    sensitive,
		OneHotGroups: groups,
		RealFeatures: real,
		Bounds:       bounds,
		Ranges:       ranges,
	}, nil
}

var errNotAnArity = errors.New("specfile: line is not an arity")

// readGroup reads one "<arity>\n<name>\n...<name>\n" group. It returns
// errNotAnArity (unwrapped by callers that treat it as "no more groups")
// when the scanner is exhausted or the arity line does not parse as a
// non-negative integer — mirroring the original parser's "stop at the first
// non-integer line" termination rule.
func readGroup(scanner *bufio.Scanner, known, used map[symbolic.Variable]bool) ([]symbolic.Variable, error) {
	if !scanner.Scan() {
		return nil, errNotAnArity
	}
	line := strings.TrimSpace(scanner.Text())
	arity, err := strconv.Atoi(line)
	if err != nil || arity < 0 {
		return nil, errNotAnArity
	}

	group := make([]symbolic.Variable, 0, arity)
	for i := 0; i < arity; i++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("%w: expected %d variable names, got %d", ErrSpecificationMalformed, arity, i)
		}
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			return nil, fmt.Errorf("%w: empty variable name", ErrSpecificationMalformed)
		}
		v := symbolic.Variable(name)
		if !known[v] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		}
		used[v] = true
		group = append(group, v)
	}
	return group, nil
}

func unitBounds(vars []symbolic.Variable) symbolic.Expr {
	exprs := make([]symbolic.Expr, 0, len(vars))
	for _, v := range vars {
		exprs = append(exprs, symbolic.Bounds(v, big.NewRat(0, 1), big.NewRat(1, 1)))
	}
	return symbolic.And(exprs...)
}
