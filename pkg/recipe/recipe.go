// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package recipe handles per-device recipes: YAML documents, found by serial
// number under install_path, listing licenses, RPMs and certificates to put
// on the switch along with the image.
package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nmortari/nxospoap/pkg/fault"
	"github.com/nmortari/nxospoap/pkg/log"
)

// Recipe is the parsed descriptor. Field names are the YAML keys.
type Recipe struct {
	Version     int                          `yaml:"Version" json:"Version" jsonschema:"minimum=1,maximum=1"`
	TargetImage string                       `yaml:"Target_image,omitempty" json:"Target_image,omitempty"`
	License     []string                     `yaml:"License,omitempty" json:"License,omitempty"`
	RPM         []string                     `yaml:"RPM,omitempty" json:"RPM,omitempty"`
	Certificate []string                     `yaml:"Certificate,omitempty" json:"Certificate,omitempty"`
	Trustpoint  map[string]map[string]string `yaml:"Trustpoint,omitempty" json:"Trustpoint,omitempty"`
}

// Load reads and parses a recipe file.
func Load(name string) (*Recipe, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fault.Wrap(err, fault.NotFound, "read recipe")
	}
	return Parse(data)
}

// Parse validates data and decodes it. All failures are Validation faults.
func Parse(data []byte) (*Recipe, error) {
	const op = "parse recipe"
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fault.Wrap(err, fault.Validation, op)
	}

	var null []string
	for k, v := range doc {
		if v == nil {
			null = append(null, k)
		}
	}
	if len(null) > 0 {
		sort.Strings(null)
		for _, k := range null {
			log.Logf("Key %s has value None", k)
		}
		return nil, fault.New(fault.Validation, op, "keys with no value: %s; remove unwanted keys from the recipe", strings.Join(null, ", "))
	}
	v, ok := doc["Version"]
	if !ok {
		return nil, fault.New(fault.Validation, op, "Version keyword not found in yaml. Cannot proceed with installation.")
	}
	if n, ok := v.(int); !ok || n != 1 {
		return nil, fault.New(fault.Validation, op, "Version given is not 1. Cannot be parsed for installation.")
	}

	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fault.Wrap(err, fault.Validation, op)
	}
	sch, err := compiled()
	if err != nil {
		return nil, fault.Wrap(err, fault.Fatal, "compile recipe schema")
	}
	if err = sch.Validate(bytes.NewReader(js)); err != nil {
		return nil, fault.Wrap(err, fault.Validation, op)
	}

	r := &Recipe{}
	if err = yaml.Unmarshal(data, r); err != nil {
		return nil, fault.Wrap(err, fault.Validation, op)
	}
	r.trim()
	if err = r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recipe) trim() {
	for _, l := range [][]string{r.License, r.RPM, r.Certificate} {
		for i := range l {
			l[i] = strings.TrimSpace(l[i])
		}
	}
	for ca, certs := range r.Trustpoint {
		trimmed := make(map[string]string, len(certs))
		for c, pass := range certs {
			trimmed[strings.TrimSpace(c)] = pass
		}
		r.Trustpoint[ca] = trimmed
	}
}

// Validate checks file extensions, reporting every offending file.
func (r *Recipe) Validate() error {
	var wrong []string
	check := func(f string, exts ...string) {
		for _, e := range exts {
			if strings.HasSuffix(f, e) {
				return
			}
		}
		wrong = append(wrong, f)
	}
	for _, f := range r.License {
		check(f, ".lic")
	}
	for _, f := range r.RPM {
		check(f, ".rpm")
	}
	for _, ca := range r.CAs() {
		for _, c := range r.Certs(ca) {
			check(c, ".pfx", ".p12")
		}
	}
	if len(wrong) == 0 {
		return nil
	}
	log.Logf("Expected extensions are .lic for licenses, .rpm for RPM files and .pfx or .p12 for Trustpoint based certificates.")
	log.Logf("The below files have wrong extension. Please rename in rpm source location and update YAML file accordingly.")
	for _, f := range wrong {
		log.Logf("%s", f)
	}
	return fault.New(fault.Validation, "validate recipe", "wrong extension: %s", strings.Join(wrong, ", "))
}

// CAs returns the trustpoint names, sorted.
func (r *Recipe) CAs() []string {
	var cas []string
	for ca := range r.Trustpoint {
		cas = append(cas, ca)
	}
	sort.Strings(cas)
	return cas
}

// Certs returns the certificate paths of trustpoint ca, sorted.
func (r *Recipe) Certs(ca string) []string {
	var certs []string
	for c := range r.Trustpoint[ca] {
		certs = append(certs, c)
	}
	sort.Strings(certs)
	return certs
}

// File is one remote file named by a recipe and where it goes in the workspace.
type File struct {
	Remote string // relative to install_path
	Local  string // relative to the workspace
}

// Files lists every file to stage, in recipe order: licenses, RPMs,
// certificates, then trustpoint certificates under a directory per CA.
func (r *Recipe) Files() []File {
	var files []File
	for _, l := range [][]string{r.License, r.RPM, r.Certificate} {
		for _, f := range l {
			files = append(files, File{Remote: f, Local: path.Base(f)})
		}
	}
	for _, ca := range r.CAs() {
		for _, c := range r.Certs(ca) {
			files = append(files, File{Remote: c, Local: path.Join(ca, path.Base(c))})
		}
	}
	return files
}

func (r *Recipe) String() string {
	return fmt.Sprintf("recipe v%d: %d licenses, %d rpms, %d certificates, %d trustpoints",
		r.Version, len(r.License), len(r.RPM), len(r.Certificate), len(r.Trustpoint))
}
