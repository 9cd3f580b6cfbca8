// Package docs holds the swagger document served at /swagger. Regenerate with
// `swag init -g cmd/ledger_backend/main.go -o cmd/docs`.
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
        "/transfers": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transfers"],
                "summary": "Transfer funds",
                "parameters": [
                    {"type": "string", "description": "Client generated idempotency key", "name": "Idempotency-Key", "in": "header", "required": true},
                    {"description": "Transfer details", "name": "transfer", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateTransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replay of an earlier request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "201": {"description": "Transfer executed", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/transfers/{reference}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["transfers"],
                "summary": "Get a transfer",
                "parameters": [{"type": "string", "description": "Transfer reference", "name": "reference", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/loans/{loanId}/payment": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["loans"],
                "summary": "Pay towards a loan",
                "parameters": [
                    {"type": "string", "description": "Loan ID", "name": "loanId", "in": "path", "required": true},
                    {"type": "string", "description": "Client generated idempotency key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Payment details", "name": "payment", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.LoanPaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "data": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "dto.CreateTransferRequest": {
            "type": "object",
            "required": ["amount", "currency", "fromAccountId"],
            "properties": {
                "amount": {"type": "string"},
                "bankCode": {"type": "string"},
                "currency": {"type": "string"},
                "description": {"type": "string"},
                "fromAccountId": {"type": "string"},
                "toAccountId": {"type": "string"},
                "toAccountNumber": {"type": "string"}
            }
        },
        "dto.LoanPaymentRequest": {
            "type": "object",
            "required": ["accountId", "amount"],
            "properties": {
                "accountId": {"type": "string"},
                "amount": {"type": "string"}
            }
        }
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
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Banking Ledger API",
	Description:      "Accounts, transfers, loan payments and external settlement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
