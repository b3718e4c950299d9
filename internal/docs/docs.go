// Package docs registra el documento OpenAPI del servicio en swag.
// Regenerar con: swag init -g cmd/api/main.go -o internal/docs
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Estado del servicio y del poller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/router.healthResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Tipos de evento suscribibles",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/events.eventTypeResponse"}}}
                }
            }
        },
        "/poll": {
            "post": {
                "tags": ["system"],
                "summary": "Forzar un ciclo de polling",
                "parameters": [{"type": "string", "name": "X-Api-Key", "in": "header"}],
                "responses": {
                    "202": {"description": "Accepted"},
                    "401": {"description": "unauthorized"}
                }
            }
        },
        "/webhooks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Listar webhooks",
                "parameters": [{"type": "string", "name": "X-Api-Key", "in": "header"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/subscribers.subscriberResponse"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Registrar webhook",
                "parameters": [
                    {"type": "string", "name": "X-Api-Key", "in": "header"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/subscribers.createSubscriberRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/subscribers.subscriberResponse"}},
                    "400": {"description": "invalid json / validación", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks/{webhookID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Obtener webhook",
                "parameters": [
                    {"type": "string", "name": "X-Api-Key", "in": "header"},
                    {"type": "string", "name": "webhookID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/subscribers.subscriberResponse"}},
                    "404": {"description": "webhook not found", "schema": {"type": "string"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Actualizar webhook",
                "parameters": [
                    {"type": "string", "name": "X-Api-Key", "in": "header"},
                    {"type": "string", "name": "webhookID", "in": "path", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/subscribers.updateSubscriberRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/subscribers.subscriberResponse"}},
                    "400": {"description": "invalid json / validación", "schema": {"type": "string"}},
                    "404": {"description": "webhook not found", "schema": {"type": "string"}}
                }
            },
            "delete": {
                "tags": ["webhooks"],
                "summary": "Eliminar webhook",
                "parameters": [
                    {"type": "string", "name": "X-Api-Key", "in": "header"},
                    {"type": "string", "name": "webhookID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "webhook not found", "schema": {"type": "string"}}
                }
            }
        },
        "/webhooks/{webhookID}/test": {
            "post": {
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Enviar evento de prueba",
                "parameters": [
                    {"type": "string", "name": "X-Api-Key", "in": "header"},
                    {"type": "string", "name": "webhookID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/deliveries.Entry"}},
                    "404": {"description": "webhook not found", "schema": {"type": "string"}}
                }
            }
        },
        "/deliveries": {
            "get": {
                "produces": ["application/json"],
                "tags": ["deliveries"],
                "summary": "Entregas recientes",
                "parameters": [
                    {"type": "string", "name": "X-Api-Key", "in": "header"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "webhookId", "in": "query"},
                    {"enum": ["success", "failed"], "type": "string", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/deliveries.Entry"}}},
                    "400": {"description": "invalid query", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "deliveries.Entry": {
            "type": "object",
            "properties": {
                "eventId": {"type": "string"},
                "eventType": {"type": "string"},
                "webhookId": {"type": "string"},
                "url": {"type": "string"},
                "status": {"type": "string", "enum": ["success", "failed"]},
                "attempts": {"type": "integer"},
                "statusCode": {"type": "integer"},
                "error": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "events.eventTypeResponse": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "router.healthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "knownBounties": {"type": "integer"},
                "webhooks": {"type": "integer"},
                "storage": {"type": "string"},
                "lastPollAt": {"type": "string"},
                "lastPollError": {"type": "string"},
                "cycles": {"type": "integer"},
                "poller": {"type": "object"}
            }
        },
        "subscribers.createSubscriberRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "events": {"type": "array", "items": {"type": "string", "enum": ["bounty.created", "bounty.claimed", "bounty.submitted", "bounty.completed"]}},
                "secret": {"type": "string"},
                "description": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "subscribers.updateSubscriberRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "events": {"type": "array", "items": {"type": "string"}},
                "active": {"type": "boolean"},
                "description": {"type": "string"},
                "secret": {"type": "string"}
            }
        },
        "subscribers.subscriberResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "url": {"type": "string"},
                "events": {"type": "array", "items": {"type": "string"}},
                "active": {"type": "boolean"},
                "hasSecret": {"type": "boolean"},
                "description": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
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
	Title:            "Bounty Webhooks API",
	Description:      "Polls the bounty API, detects lifecycle transitions and delivers signed webhooks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
