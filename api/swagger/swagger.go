package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Feeline API",
        "description": "WhatsApp-driven school fee management gateway",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Webhook", "description": "WhatsApp Cloud API webhook"},
        {"name": "Payments", "description": "Razorpay order creation and capture events"},
        {"name": "Admin", "description": "JWT-guarded ledger reads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/webhook": {
            "get": {
                "tags": ["Webhook"],
                "summary": "WhatsApp verification handshake",
                "parameters": [
                    {"name": "hub.mode", "in": "query", "type": "string", "required": true},
                    {"name": "hub.verify_token", "in": "query", "type": "string", "required": true},
                    {"name": "hub.challenge", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Challenge echoed"},
                    "403": {"description": "Forbidden"}
                }
            },
            "post": {
                "tags": ["Webhook"],
                "summary": "Inbound WhatsApp events",
                "responses": {
                    "200": {"description": "Acknowledged"}
                }
            }
        },
        "/payments/orders/{studentId}": {
            "post": {
                "tags": ["Payments"],
                "summary": "Create a gateway order for a student's dues",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/CreateOrderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid amount"},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/payments/webhook": {
            "post": {
                "tags": ["Payments"],
                "summary": "Razorpay event webhook",
                "parameters": [
                    {"name": "X-Razorpay-Signature", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid signature"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Admin"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "class", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/fees": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get a student's fee account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/students/{id}/installments": {
            "get": {
                "tags": ["Admin"],
                "summary": "List a student's installments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "description": "csv for a CSV download"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/logs": {
            "get": {
                "tags": ["Admin"],
                "summary": "List audit log entries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "studId", "in": "query", "type": "string"},
                    {"name": "result", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "Student": {
            "type": "object",
            "properties": {
                "stud_id": {"type": "string"},
                "name": {"type": "string"},
                "class": {"type": "string"},
                "parent_name": {"type": "string"},
                "parent_no": {"type": "string"},
                "phone_no": {"type": "string"},
                "email": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "FeeAccount": {
            "type": "object",
            "properties": {
                "stud_id": {"type": "string"},
                "name": {"type": "string"},
                "class": {"type": "string"},
                "total_fees": {"type": "integer"},
                "total_paid": {"type": "integer"},
                "balance": {"type": "integer"},
                "status": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "Installment": {
            "type": "object",
            "properties": {
                "inst_id": {"type": "string"},
                "stud_id": {"type": "string"},
                "amount": {"type": "integer"},
                "paid_on": {"type": "string"},
                "mode": {"type": "string"},
                "remarks": {"type": "string"},
                "recorded_by": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "LogEntry": {
            "type": "object",
            "properties": {
                "log_id": {"type": "string"},
                "action": {"type": "string"},
                "stud_id": {"type": "string"},
                "raw_message": {"type": "string"},
                "parsed_json": {"type": "string"},
                "result": {"type": "string"},
                "error_msg": {"type": "string"},
                "performed_by": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "CreateOrderRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer", "description": "Partial amount in rupees; omit for the full balance"}
            }
        },
        "PaymentOrder": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "amount": {"type": "integer"},
                "currency": {"type": "string"},
                "stud_id": {"type": "string"},
                "student_name": {"type": "string"},
                "no_due": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
