// Package docs registers the OpenAPI description served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/transactions": {
            "post": {"tags": ["transactions"], "summary": "Register a transaction", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}, "409": {"description": "Already registered"}}}
        },
        "/transactions/{transactionID}": {
            "get": {"tags": ["transactions"], "summary": "Get a transaction", "parameters": [{"type": "string", "name": "transactionID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/transactions/{transactionID}/payments": {
            "get": {"tags": ["payments"], "summary": "List the payments of a transaction", "parameters": [{"type": "string", "name": "transactionID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["payments"], "summary": "Record a payment against a transaction", "parameters": [{"type": "string", "name": "transactionID", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "State or concurrency conflict"}, "422": {"description": "Overpayment"}}}
        },
        "/transactions/{transactionID}/complete": {
            "post": {"tags": ["transactions"], "summary": "Complete a transaction", "parameters": [{"type": "string", "name": "transactionID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Remaining balance outside tolerance"}}}
        },
        "/transactions/{transactionID}/cancel": {
            "post": {"tags": ["transactions"], "summary": "Cancel a transaction", "parameters": [{"type": "string", "name": "transactionID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Terminal or settled"}}}
        },
        "/transactions/{transactionID}/edits": {
            "get": {"tags": ["transactions"], "summary": "List the status changes of a transaction", "parameters": [{"type": "string", "name": "transactionID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/payments/{paymentID}": {
            "put": {"tags": ["payments"], "summary": "Edit a payment", "parameters": [{"type": "string", "name": "paymentID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "Overpayment"}}}
        },
        "/payments/{paymentID}/cancel": {
            "post": {"tags": ["payments"], "summary": "Cancel a payment", "parameters": [{"type": "string", "name": "paymentID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/payments/{paymentID}/edits": {
            "get": {"tags": ["payments"], "summary": "List the edit history of a payment", "parameters": [{"type": "string", "name": "paymentID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/branches/{branchID}/balances": {
            "get": {"tags": ["balances"], "summary": "List the balances of a branch", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/branches/{branchID}/balances/{currency}": {
            "get": {"tags": ["balances"], "summary": "Get a branch balance", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}, {"type": "string", "name": "currency", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/branches/{branchID}/balances/{currency}/recompute": {
            "post": {"tags": ["balances"], "summary": "Recompute a balance from history", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}, {"type": "string", "name": "currency", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/branches/{branchID}/balances/{currency}/adjustments": {
            "get": {"tags": ["balances"], "summary": "List the adjustments of a balance", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}, {"type": "string", "name": "currency", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["balances"], "summary": "Adjust a balance manually", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}, {"type": "string", "name": "currency", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/branches/{branchID}/reconciliations": {
            "post": {"tags": ["reconciliations"], "summary": "Record an end-of-day cash count", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Already reconciled"}}}
        },
        "/branches/{branchID}/expected-balance": {
            "get": {"tags": ["reconciliations"], "summary": "Get what a branch should hold", "parameters": [{"type": "string", "name": "branchID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/reconciliations/variance-report": {
            "get": {"tags": ["reconciliations"], "summary": "List reconciliations, newest first", "responses": {"200": {"description": "OK"}}}
        },
        "/reconciliations/{reconciliationID}": {
            "get": {"tags": ["reconciliations"], "summary": "Get a reconciliation", "parameters": [{"type": "string", "name": "reconciliationID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/obligations": {
            "get": {"tags": ["settlements"], "summary": "List remittance obligations", "responses": {"200": {"description": "OK"}}}
        },
        "/obligations/{obligationID}/settlement-suggestions": {
            "get": {"tags": ["settlements"], "summary": "Suggest how to settle an incoming obligation", "parameters": [{"type": "string", "name": "obligationID", "in": "path", "required": true}, {"type": "string", "name": "strategy", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/obligations/{obligationID}/auto-settle": {
            "post": {"tags": ["settlements"], "summary": "Settle an incoming obligation automatically", "parameters": [{"type": "string", "name": "obligationID", "in": "path", "required": true}, {"type": "string", "name": "strategy", "in": "query"}], "responses": {"200": {"description": "OK"}}}
        },
        "/obligations/{obligationID}/settlements": {
            "get": {"tags": ["settlements"], "summary": "List the settlements of an obligation", "parameters": [{"type": "string", "name": "obligationID", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/settlements": {
            "post": {"tags": ["settlements"], "summary": "Settle an amount between two obligations", "responses": {"201": {"description": "Created"}, "409": {"description": "Obligation fully settled"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Remittance Ledger API",
	Description:      "Branch cash balances, payment drawdowns, remittance settlement and end-of-day reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
