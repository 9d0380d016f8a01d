// Package docs registers the Ballot Service OpenAPI document with swag so
// http-swagger can serve it at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/ballots/v1/ballots": {
            "post": {
                "summary": "Create a ballot; the caller becomes chairperson",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBallotRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replayed", "schema": {"$ref": "#/definitions/BallotResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/BallotResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}": {
            "get": {
                "summary": "Read a ballot",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/BallotResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}/rights": {
            "post": {
                "summary": "Give a voter the right to vote (chairperson only)",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GrantRightRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VoterResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}/delegations": {
            "post": {
                "summary": "Delegate the caller's vote",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DelegateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DelegationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}/votes": {
            "post": {
                "summary": "Cast the caller's vote",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CastVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VoterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}/winner": {
            "get": {
                "summary": "Read the winning proposal and standings",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/WinnerResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}/voters/{principal}": {
            "get": {
                "summary": "Read a voter record",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true},
                    {"type": "string", "name": "principal", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/VoterResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/ballots/v1/ballots/{ballot_id}/proposals/{index}": {
            "get": {
                "summary": "Read a proposal",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "ballot_id", "in": "path", "required": true},
                    {"type": "integer", "name": "index", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProposalResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "CreateBallotRequest": {
            "type": "object",
            "properties": {
                "proposals": {"type": "array", "items": {"type": "string"}}
            }
        },
        "GrantRightRequest": {
            "type": "object",
            "properties": {
                "voter": {"type": "string"}
            }
        },
        "DelegateRequest": {
            "type": "object",
            "properties": {
                "to": {"type": "string"}
            }
        },
        "CastVoteRequest": {
            "type": "object",
            "properties": {
                "proposal": {"type": "integer"}
            }
        },
        "ProposalResponse": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "name": {"type": "string"},
                "vote_count": {"type": "integer"}
            }
        },
        "VoterResponse": {
            "type": "object",
            "properties": {
                "principal": {"type": "string"},
                "weight": {"type": "integer"},
                "voted": {"type": "boolean"},
                "delegate": {"type": "string"},
                "vote": {"type": "integer"}
            }
        },
        "BallotResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "chairperson": {"type": "string"},
                "proposals": {"type": "array", "items": {"$ref": "#/definitions/ProposalResponse"}},
                "total_votes": {"type": "integer"},
                "version": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        },
        "DelegationResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "delegate": {"type": "string"},
                "final_delegate": {"type": "string"},
                "weight": {"type": "integer"},
                "counted": {"type": "boolean"},
                "proposal": {"type": "integer"}
            }
        },
        "WinnerResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "winning_proposal": {"type": "integer"},
                "winner_name": {"type": "string"},
                "vote_count": {"type": "integer"},
                "standings": {"type": "array", "items": {"$ref": "#/definitions/ProposalResponse"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ballot Service API",
	Description:      "Delegable weighted voting ballots.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
