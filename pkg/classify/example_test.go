package classify_test

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/esmstat/pkg/classify"
)

func ExampleClassifier_Classify() {
	doc := []byte(`{
		"name": "left-pad",
		"dist-tags": {"latest": "2.0.0"},
		"versions": {
			"2.0.0": {
				"type": "module",
				"exports": {".": {"import": "./index.mjs", "require": "./index.cjs"}}
			}
		}
	}`)

	var p classify.Packument
	if err := json.Unmarshal(doc, &p); err != nil {
		panic(err)
	}

	res := classify.New(nil).Classify(&p)
	fmt.Println(res.Style)
	// Output: dual
}

func ExampleClassifyManifest() {
	m := classify.Manifest{
		Module: "./es/index.js",
		Main:   "./lib/index.js",
	}
	style, _ := classify.ClassifyManifest(&m)
	fmt.Println(style)
	// Output: faux
}
