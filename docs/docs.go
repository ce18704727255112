// Package docs registers the OpenAPI description of the workbench API.
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
        "/login": {
            "post": {
                "description": "Authenticate with the upstream platform and start a session",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {
                        "description": "Login credentials",
                        "name": "credentials",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/upstream.Credentials"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.LoginResponse"}},
                    "400": {"description": "Invalid request payload", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Login failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/logout": {
            "post": {
                "description": "Drop the session and its upstream connection. Always succeeds.",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log out",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/refresh-session": {
            "post": {
                "description": "Reset the idle timeout of a live session",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.RefreshResponse"}},
                    "401": {"description": "Session not found or expired", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth-status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Authentication status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthStatus"}}
                }
            }
        },
        "/query": {
            "post": {
                "description": "Run a query, following continuation pages until done, the record limit or the iteration cap",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["query"],
                "summary": "Run query",
                "parameters": [
                    {
                        "description": "Query text and record limit",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.QueryRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.QueryResponse"}},
                    "400": {"description": "Query failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Not authenticated", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/describe/{object}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metadata"],
                "summary": "Describe object",
                "parameters": [
                    {"type": "string", "description": "Object API name", "name": "object", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Describe failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Not authenticated", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/objects": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metadata"],
                "summary": "List objects",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Listing failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "401": {"description": "Not authenticated", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/statistics": {
            "post": {
                "description": "Per-field type, null, numeric and frequency statistics of the posted records",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["data"],
                "summary": "Field statistics",
                "parameters": [
                    {
                        "description": "Records",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.StatisticsRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.StatisticsResponse"}},
                    "400": {"description": "Invalid request payload", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/export/csv": {
            "post": {
                "description": "Render records as CSV. Commas inside values become semicolons; nothing is quoted.",
                "consumes": ["application/json"],
                "produces": ["text/csv"],
                "tags": ["data"],
                "summary": "Export CSV",
                "parameters": [
                    {
                        "description": "Records and columns",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handler.ExportRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "CSV document", "schema": {"type": "string"}},
                    "400": {"description": "Invalid request payload", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "handler.LoginResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "userInfo": {"$ref": "#/definitions/model.UserInfo"},
                "sessionId": {"type": "string"}
            }
        },
        "handler.RefreshResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "sessionId": {"type": "string"}
            }
        },
        "handler.AuthStatus": {
            "type": "object",
            "properties": {
                "authenticated": {"type": "boolean"},
                "userInfo": {"$ref": "#/definitions/model.UserInfo"},
                "sessionId": {"type": "string"}
            }
        },
        "handler.QueryRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "maxRecords": {"type": "integer"}
            }
        },
        "handler.QueryResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "columns": {"type": "array", "items": {"type": "string"}},
                "totalSize": {"type": "integer"},
                "fetchedCount": {"type": "integer"},
                "done": {"type": "boolean"},
                "recordLimit": {"type": "integer"},
                "isUnlimited": {"type": "boolean"}
            }
        },
        "handler.StatisticsRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"type": "object", "additionalProperties": true}}
            }
        },
        "handler.StatisticsResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "statistics": {"type": "object", "additionalProperties": {"$ref": "#/definitions/model.FieldStatistic"}}
            }
        },
        "handler.ExportRequest": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "columns": {"type": "array", "items": {"type": "string"}}
            }
        },
        "model.UserInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "organizationId": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "model.FieldStatistic": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "type": {"type": "string"},
                "totalCount": {"type": "integer"},
                "nonNullCount": {"type": "integer"},
                "nullCount": {"type": "integer"},
                "nullPercentage": {"type": "string"},
                "min": {"type": "number"},
                "max": {"type": "number"},
                "mean": {"type": "string"},
                "median": {"type": "string"},
                "uniqueCount": {"type": "integer"},
                "duplicateCount": {"type": "integer"},
                "topValues": {"type": "array", "items": {"type": "array", "items": {}}}
            }
        },
        "upstream.Credentials": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "environment": {"type": "string", "enum": ["production", "sandbox"]},
                "customDomain": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "SOQL Workbench API",
	Description:      "Query workbench for a CRM platform: login, paginated queries, object metadata, statistics and CSV export.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
