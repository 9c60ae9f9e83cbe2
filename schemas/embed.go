// Package schemas holds the JSON Schemas shipped with the engine.
package schemas

import _ "embed"

// QuestionBank is the schema every question bank file must satisfy.
//
//go:embed question_bank.schema.json
var QuestionBank string
