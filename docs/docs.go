// Package docs serves the OpenAPI description at /swagger. Regenerate with
// `swag init -g cmd/tabgo/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "StaffBearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/checks": {
            "post": {
                "security": [{"StaffBearer": []}],
                "tags": ["checks"],
                "summary": "Find or open the check for a table set",
                "parameters": [
                    {"type": "string", "description": "Terminal id", "name": "X-Device-ID", "in": "header", "required": true},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.EnsureCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "already open", "schema": {"$ref": "#/definitions/domain.Check"}},
                    "201": {"description": "created", "schema": {"$ref": "#/definitions/domain.Check"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "table belongs to another open check", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/checks/{id}": {
            "get": {
                "security": [{"StaffBearer": []}],
                "tags": ["checks"],
                "summary": "Get a check with its lines and per-seat totals",
                "parameters": [{"type": "string", "description": "Check ID (uuid)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CheckDetail"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"StaffBearer": []}],
                "tags": ["checks"],
                "summary": "Update check fields",
                "parameters": [
                    {"type": "string", "description": "Check ID (uuid)", "name": "id", "in": "path", "required": true},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpdateCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Check"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "403": {"description": "voiding needs a manager", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "revision conflict / check closed", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/checks/{id}/events": {
            "get": {
                "security": [{"StaffBearer": []}],
                "tags": ["checks"],
                "summary": "Stream changes of one check (server-sent events)",
                "parameters": [{"type": "string", "description": "Check ID (uuid)", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "text/event-stream", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "503": {"description": "change feed unavailable", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/checks/{id}/lines": {
            "post": {
                "security": [{"StaffBearer": []}],
                "tags": ["lines"],
                "summary": "Add a line (idempotent with Idempotency-Key)",
                "parameters": [
                    {"type": "string", "description": "Check ID (uuid)", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "client generated key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.AddLineRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httpgin.LineResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "revision conflict / check closed / key in progress", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "429": {"description": "rate limited", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"StaffBearer": []}],
                "tags": ["lines"],
                "summary": "Update a line; qty <= 0 removes it",
                "parameters": [
                    {"type": "string", "description": "Check ID (uuid)", "name": "id", "in": "path", "required": true},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpdateLineRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.LineResponse"}},
                    "204": {"description": "line removed"},
                    "403": {"description": "comping needs a manager", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"StaffBearer": []}],
                "tags": ["lines"],
                "summary": "Remove every line of a check",
                "parameters": [
                    {"type": "string", "description": "Check ID (uuid)", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "revision the client last saw", "name": "expectedRevision", "in": "query"}
                ],
                "responses": {
                    "204": {"description": "cleared"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/tables": {
            "get": {
                "security": [{"StaffBearer": []}],
                "tags": ["tables"],
                "summary": "Table board",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Table"}}}
                }
            }
        },
        "/tables/{id}/status": {
            "put": {
                "security": [{"StaffBearer": []}],
                "tags": ["tables"],
                "summary": "Mark a table served or paying",
                "parameters": [
                    {"type": "string", "description": "Table ID", "name": "id", "in": "path", "required": true},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.SetTableStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Table"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "transition not allowed", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/menu/{id}": {
            "get": {
                "security": [{"StaffBearer": []}],
                "tags": ["menu"],
                "summary": "Menu item lookup",
                "parameters": [{"type": "string", "description": "Menu item ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.MenuItem"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}
                }
            }
        },
        "/admin/tables": {
            "post": {
                "security": [{"StaffBearer": []}],
                "tags": ["admin"],
                "summary": "Create or update tables",
                "parameters": [{"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpsertTablesRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/httpgin.CountResponse"}}}
            }
        },
        "/admin/menu-items": {
            "post": {
                "security": [{"StaffBearer": []}],
                "tags": ["admin"],
                "summary": "Create or update menu items",
                "parameters": [{"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpsertMenuItemsRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/httpgin.CountResponse"}}}
            }
        },
        "/admin/devices": {
            "post": {
                "security": [{"StaffBearer": []}],
                "tags": ["admin"],
                "summary": "Register trusted terminals",
                "parameters": [{"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.TrustDevicesRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/httpgin.CountResponse"}}}
            }
        }
    },
    "definitions": {
        "domain.Table": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"},
                "zone": {"type": "string"},
                "seats": {"type": "integer"},
                "combinable": {"type": "boolean"},
                "status": {"type": "string", "enum": ["open", "ordering", "served", "paying"]},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.Check": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "tableIds": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["open", "active", "closed", "voided"]},
                "guestNames": {"type": "array", "items": {"type": "string"}},
                "currentCourse": {"type": "string"},
                "receiptNote": {"type": "string"},
                "subtotal": {"type": "number"},
                "compTotal": {"type": "number"},
                "tax": {"type": "number"},
                "total": {"type": "number"},
                "revision": {"type": "integer"},
                "openedBy": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "closedAt": {"type": "string"}
            }
        },
        "domain.CheckLine": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "checkId": {"type": "string"},
                "tableId": {"type": "string"},
                "menuItemId": {"type": "string"},
                "name": {"type": "string"},
                "seat": {"type": "string"},
                "price": {"type": "number"},
                "qty": {"type": "integer"},
                "modifierKey": {"type": "string"},
                "modifiers": {"type": "array", "items": {"type": "string"}},
                "comp": {"type": "boolean"},
                "splitMode": {"type": "string", "enum": ["none", "even", "custom"]},
                "transferTo": {"type": "string"},
                "customSplitNote": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.SeatTotals": {
            "type": "object",
            "properties": {
                "seat": {"type": "string"},
                "subtotal": {"type": "number"},
                "compTotal": {"type": "number"},
                "chargeable": {"type": "number"}
            }
        },
        "domain.CheckDetail": {
            "allOf": [
                {"$ref": "#/definitions/domain.Check"},
                {
                    "type": "object",
                    "properties": {
                        "lines": {"type": "array", "items": {"$ref": "#/definitions/domain.CheckLine"}},
                        "seats": {"type": "array", "items": {"$ref": "#/definitions/domain.SeatTotals"}}
                    }
                }
            ]
        },
        "domain.MenuItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "modifierKey": {"type": "string"},
                "modifiers": {"type": "array", "items": {"type": "string"}},
                "available": {"type": "boolean"}
            }
        },
        "httpgin.EnsureCheckRequest": {
            "type": "object",
            "required": ["tableIds"],
            "properties": {"tableIds": {"type": "array", "items": {"type": "string"}}}
        },
        "httpgin.UpdateCheckRequest": {
            "type": "object",
            "required": ["expectedRevision"],
            "properties": {
                "guestNames": {"type": "array", "items": {"type": "string"}},
                "currentCourse": {"type": "string"},
                "receiptNote": {"type": "string"},
                "status": {"type": "string", "enum": ["closed", "voided"]},
                "expectedRevision": {"type": "integer", "minimum": 1}
            }
        },
        "httpgin.AddLineRequest": {
            "type": "object",
            "required": ["seat"],
            "properties": {
                "name": {"type": "string"},
                "seat": {"type": "string"},
                "tableId": {"type": "string"},
                "price": {"type": "number", "minimum": 0, "maximum": 1000000, "multipleOf": 0.01},
                "qty": {"type": "integer", "minimum": 1, "maximum": 10000},
                "menuItemId": {"type": "string"},
                "modifierKey": {"type": "string"},
                "modifiers": {"type": "array", "items": {"type": "string"}},
                "expectedRevision": {"type": "integer", "minimum": 1}
            }
        },
        "httpgin.UpdateLineRequest": {
            "type": "object",
            "required": ["lineId"],
            "properties": {
                "lineId": {"type": "string"},
                "qty": {"type": "integer", "maximum": 10000},
                "comp": {"type": "boolean"},
                "splitMode": {"type": "string", "enum": ["none", "even", "custom"]},
                "transferTo": {"type": "string"},
                "customSplitNote": {"type": "string"},
                "modifiers": {"type": "array", "items": {"type": "string"}},
                "expectedRevision": {"type": "integer", "minimum": 1}
            }
        },
        "httpgin.SetTableStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string", "enum": ["served", "paying"]}}
        },
        "httpgin.TableInput": {
            "type": "object",
            "required": ["id", "seats"],
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"},
                "zone": {"type": "string"},
                "seats": {"type": "integer"},
                "combinable": {"type": "boolean"}
            }
        },
        "httpgin.UpsertTablesRequest": {
            "type": "object",
            "required": ["tables"],
            "properties": {"tables": {"type": "array", "items": {"$ref": "#/definitions/httpgin.TableInput"}}}
        },
        "httpgin.MenuItemInput": {
            "type": "object",
            "required": ["id", "name", "price"],
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number", "minimum": 0, "exclusiveMinimum": true, "maximum": 1000000, "multipleOf": 0.01},
                "modifierKey": {"type": "string"},
                "modifiers": {"type": "array", "items": {"type": "string"}},
                "available": {"type": "boolean"}
            }
        },
        "httpgin.UpsertMenuItemsRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/httpgin.MenuItemInput"}}}
        },
        "httpgin.TrustDevicesRequest": {
            "type": "object",
            "required": ["deviceIds"],
            "properties": {"deviceIds": {"type": "array", "items": {"type": "string"}}}
        },
        "httpgin.LineResponse": {
            "type": "object",
            "properties": {
                "line": {"$ref": "#/definitions/domain.CheckLine"},
                "check": {"$ref": "#/definitions/domain.Check"}
            }
        },
        "httpgin.CountResponse": {
            "type": "object",
            "properties": {"saved": {"type": "integer"}}
        },
        "httpgin.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "field": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "TabGo API",
	Description:      "Order and billing checks for restaurant terminals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
