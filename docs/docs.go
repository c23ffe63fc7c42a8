// Package docs registers the storefront's OpenAPI description with swag.
// Keep it in step with the @-annotations on the handlers; `swag init -g
// cmd/server/main.go` regenerates it from them.
package docs

import "github.com/swaggo/swag/v2"

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
        "/carrito": {
            "get": {
                "produces": ["application/json", "text/html"],
                "tags": ["cart"],
                "summary": "Show the cart",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.CartResponse"}}}]}}
                }
            }
        },
        "/carrito/agregar": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Add one unit of a product",
                "parameters": [
                    {"description": "Product to add", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.AddToCartRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.CartResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/carrito/lineas/{id}/cantidad": {
            "put": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Step or set a line quantity",
                "parameters": [
                    {"type": "integer", "description": "Cart line ID", "name": "id", "in": "path", "required": true},
                    {"description": "op inc/dec, or cantidad", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.QuantityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.CartResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/carrito/lineas/{id}": {
            "delete": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Remove a cart line",
                "parameters": [
                    {"type": "integer", "description": "Cart line ID", "name": "id", "in": "path", "required": true},
                    {"description": "confirm must be true", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.RemoveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.CartResponse"}}}]}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/carrito/pago": {
            "get": {
                "description": "Prepares the PayPal panel and lists the payment methods for the current cart.",
                "produces": ["application/json", "text/html"],
                "tags": ["checkout"],
                "summary": "Show the payment view",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.PaymentResponse"}}}]}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/carrito/badge": {
            "get": {
                "produces": ["application/json"],
                "tags": ["badge"],
                "summary": "Current cart badge",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/badge.State"}}}]}}
                }
            }
        },
        "/carrito/badge/stream": {
            "get": {
                "description": "Server-Sent Events; each \"badge\" event carries a badge state.",
                "produces": ["text/event-stream"],
                "tags": ["badge"],
                "summary": "Stream cart badge updates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/badge.State"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/checkout/paypal": {
            "post": {
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "Create the PayPal order",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.PayPalOrderResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/checkout/paypal/capture": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "Capture an approved PayPal order",
                "parameters": [
                    {"description": "PayPal order to capture", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CaptureRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.RedirectResponse"}}}]}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        },
        "/checkout/mercadopago": {
            "post": {
                "produces": ["application/json"],
                "tags": ["checkout"],
                "summary": "Create the Mercado Pago preference",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/dto.Response"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.RedirectResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/dto.Response"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.Response"}}
                }
            }
        }
    },
    "definitions": {
        "badge.State": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "text": {"type": "string"},
                "display": {"type": "string"},
                "position": {"type": "string"},
                "top": {"type": "string"},
                "right": {"type": "string"},
                "zIndex": {"type": "integer"},
                "selectors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "cart.Line": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "producto_id": {"type": "integer"},
                "nombre": {"type": "string"},
                "imagen": {"type": "string"},
                "precio_unitario": {"type": "string"},
                "cantidad": {"type": "integer"},
                "stock": {"type": "integer"},
                "total": {"type": "string"}
            }
        },
        "cart.Snapshot": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/cart.Line"}},
                "subtotal": {"type": "string"},
                "total": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "dto.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "code": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "dto.CartResponse": {
            "type": "object",
            "properties": {
                "cart": {"$ref": "#/definitions/cart.Snapshot"},
                "badge": {"$ref": "#/definitions/badge.State"}
            }
        },
        "dto.AddToCartRequest": {
            "type": "object",
            "required": ["producto_id"],
            "properties": {
                "producto_id": {"type": "integer", "minimum": 1},
                "cantidad": {"type": "integer"}
            }
        },
        "dto.QuantityRequest": {
            "type": "object",
            "properties": {
                "op": {"type": "string", "enum": ["inc", "dec"]},
                "cantidad": {"type": "integer"}
            }
        },
        "dto.RemoveRequest": {
            "type": "object",
            "properties": {
                "confirm": {"type": "boolean"}
            }
        },
        "dto.CaptureRequest": {
            "type": "object",
            "required": ["order_id"],
            "properties": {
                "order_id": {"type": "string"}
            }
        },
        "dto.PayPalOrderResponse": {
            "type": "object",
            "properties": {
                "order_id": {"type": "string"},
                "approve_url": {"type": "string"},
                "pedido_id": {"type": "string"},
                "synthetic": {"type": "boolean"}
            }
        },
        "dto.RedirectResponse": {
            "type": "object",
            "properties": {
                "redirect_url": {"type": "string"}
            }
        },
        "dto.PaymentMethod": {
            "type": "object",
            "properties": {
                "action_url": {"type": "string"},
                "pedido_id": {"type": "string"},
                "synthetic": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "dto.PaymentResponse": {
            "type": "object",
            "properties": {
                "cart": {"$ref": "#/definitions/cart.Snapshot"},
                "paypal": {"$ref": "#/definitions/dto.PaymentMethod"},
                "mercadopago": {"$ref": "#/definitions/dto.PaymentMethod"}
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
	Title:            "GameStore Storefront",
	Description:      "Cart, checkout and badge endpoints of the GameStore storefront. Every endpoint also serves HTML to browsers; JSON is returned when the request accepts it.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
