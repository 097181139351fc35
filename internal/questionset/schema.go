package questionset

// setSchema is the JSON Schema for the BYOS question-set format. Structural
// validation happens against this schema first; cross-field rules (duplicate
// ids, answer keys referencing unknown choices) are checked afterwards in
// Parse, since JSON Schema cannot express them.
var setSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"set_id": map[string]any{"type": "string", "minLength": 1},
		"title":  map[string]any{"type": "string", "minLength": 1},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"text": map[string]any{"type": "string", "minLength": 1},
					"choices": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":   map[string]any{"type": "string", "minLength": 1},
								"text": map[string]any{"type": "string", "minLength": 1},
							},
							"required":             []any{"id", "text"},
							"additionalProperties": false,
						},
					},
					"answer_choice_ids": map[string]any{
						"type":  []any{"array", "null"},
						"items": map[string]any{"type": "string"},
					},
					"is_multi_select": map[string]any{"type": []any{"boolean", "null"}},
					"explanation":     map[string]any{"type": []any{"string", "null"}},
					"tags": map[string]any{
						"type":  []any{"array", "null"},
						"items": map[string]any{"type": "string"},
					},
				},
				"required":             []any{"id", "text", "choices"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []any{"set_id", "title", "questions"},
	"additionalProperties": false,
}
