// Package docs registers the swagger document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "API Support"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Login", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/refresh": {"post": {"tags": ["Auth"], "summary": "Rotate refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/logout": {"post": {"tags": ["Auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/auth/logout-all": {"post": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Logout from all devices", "responses": {"200": {"description": "OK"}}}},
        "/auth/register": {"post": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Create operator account", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}},
        "/auth/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/users": {"get": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "List users", "responses": {"200": {"description": "OK"}}}},
        "/users/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Get user by ID", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Update user", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Users"], "summary": "Delete user", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/profile": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Get own profile", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Update own profile", "responses": {"200": {"description": "OK"}}}
        },
        "/profile/password": {"put": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Change password", "responses": {"200": {"description": "OK"}}}},
        "/bills": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "List bills", "parameters": [{"type": "string", "name": "customer", "in": "query"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "Create bill", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/bills/summary": {"get": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "Bill summary per staff", "responses": {"200": {"description": "OK"}}}},
        "/bills/register.xlsx": {"get": {"security": [{"BearerAuth": []}], "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"], "tags": ["Bills"], "summary": "Download bill register", "responses": {"200": {"description": "OK"}}}},
        "/bills/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "Get bill", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "Update bill", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "Delete bill", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/bills/{id}/download": {"get": {"security": [{"BearerAuth": []}], "produces": ["application/pdf"], "tags": ["Bills"], "summary": "Download bill PDF", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error"}}}},
        "/bills/{id}/history": {"get": {"security": [{"BearerAuth": []}], "tags": ["Bills"], "summary": "Bill history", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Transport Billing API",
	Description:      "Bill issuing, numbering and export for a transport booking office",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
