// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package recipe

import (
	"bytes"
	"encoding/json"
	"sync"

	schemagen "github.com/alecthomas/jsonschema"
	"github.com/santhosh-tekuri/jsonschema"
)

const schemaURL = "recipe.json"

// Schema reflects the JSON schema of Recipe. Keys other than those of Recipe
// are allowed; they are ignored.
func Schema() *schemagen.Schema {
	r := &schemagen.Reflector{AllowAdditionalProperties: true}
	return r.Reflect(&Recipe{})
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var js []byte
		js, schemaErr = SchemaJSON()
		if schemaErr != nil {
			return
		}
		c := jsonschema.NewCompiler()
		if schemaErr = c.AddResource(schemaURL, bytes.NewReader(js)); schemaErr != nil {
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}
