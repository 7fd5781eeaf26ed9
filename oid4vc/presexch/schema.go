package presexch

// definitionSchema follows DIF Presentation Exchange 2.0.0.
const definitionSchema = `
{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "definitions": {
        "format": {
            "type": "object",
            "additionalProperties": {
                "type": "object",
                "properties": {
                    "alg": {
                        "type": "array",
                        "minItems": 1,
                        "items": { "type": "string" }
                    },
                    "proof_type": {
                        "type": "array",
                        "minItems": 1,
                        "items": { "type": "string" }
                    }
                },
                "additionalProperties": false
            }
        },
        "submission_requirement": {
            "type": "object",
            "oneOf": [
                {
                    "properties": {
                        "name": { "type": "string" },
                        "purpose": { "type": "string" },
                        "rule": { "type": "string", "enum": ["all", "pick"] },
                        "count": { "type": "integer", "minimum": 1 },
                        "min": { "type": "integer", "minimum": 0 },
                        "max": { "type": "integer", "minimum": 0 },
                        "from": { "type": "string" }
                    },
                    "required": ["rule", "from"],
                    "additionalProperties": false
                },
                {
                    "properties": {
                        "name": { "type": "string" },
                        "purpose": { "type": "string" },
                        "rule": { "type": "string", "enum": ["all", "pick"] },
                        "count": { "type": "integer", "minimum": 1 },
                        "min": { "type": "integer", "minimum": 0 },
                        "max": { "type": "integer", "minimum": 0 },
                        "from_nested": {
                            "type": "array",
                            "minItems": 1,
                            "items": { "$ref": "#/definitions/submission_requirement" }
                        }
                    },
                    "required": ["rule", "from_nested"],
                    "additionalProperties": false
                }
            ]
        },
        "field": {
            "type": "object",
            "properties": {
                "id": { "type": "string" },
                "name": { "type": "string" },
                "purpose": { "type": "string" },
                "optional": { "type": "boolean" },
                "path": {
                    "type": "array",
                    "minItems": 1,
                    "items": { "type": "string" }
                },
                "filter": { "type": "object" }
            },
            "required": ["path"],
            "additionalProperties": false
        },
        "input_descriptor": {
            "type": "object",
            "properties": {
                "id": { "type": "string", "minLength": 1 },
                "name": { "type": "string" },
                "purpose": { "type": "string" },
                "format": { "$ref": "#/definitions/format" },
                "group": {
                    "type": "array",
                    "items": { "type": "string" }
                },
                "constraints": {
                    "type": "object",
                    "properties": {
                        "limit_disclosure": {
                            "type": "string",
                            "enum": ["required", "preferred"]
                        },
                        "fields": {
                            "type": "array",
                            "items": { "$ref": "#/definitions/field" }
                        }
                    },
                    "additionalProperties": false
                }
            },
            "required": ["id"],
            "additionalProperties": false
        }
    },
    "type": "object",
    "properties": {
        "presentation_definition": {
            "type": "object",
            "properties": {
                "id": { "type": "string", "minLength": 1 },
                "name": { "type": "string" },
                "purpose": { "type": "string" },
                "format": { "$ref": "#/definitions/format" },
                "submission_requirements": {
                    "type": "array",
                    "items": { "$ref": "#/definitions/submission_requirement" }
                },
                "input_descriptors": {
                    "type": "array",
                    "items": { "$ref": "#/definitions/input_descriptor" }
                }
            },
            "required": ["id", "input_descriptors"],
            "additionalProperties": false
        }
    }
}`
