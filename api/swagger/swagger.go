package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Markaz Admin API",
        "description": "Administrative API for Mahad and Dugsi programs",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Students", "description": "Student listing and detail"},
        {"name": "Duplicates", "description": "Duplicate detection and resolution"},
        {"name": "Attendance", "description": "Weekend session lifecycle and marking"},
        {"name": "Enrollment", "description": "Batch membership"},
        {"name": "Siblings", "description": "Sibling relationship graph"},
        {"name": "Check-in", "description": "Geofenced teacher check-in"},
        {"name": "Billing", "description": "Family subscriptions"},
        {"name": "Dashboard", "description": "Cached admin aggregates"},
        {"name": "Exports", "description": "Roster exports"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "program", "in": "query", "type": "string", "enum": ["MAHAD", "DUGSI"]},
                    {"name": "batch_id", "in": "query", "type": "string"},
                    {"name": "family_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/duplicates": {
            "get": {
                "tags": ["Duplicates"],
                "summary": "Detect duplicate students",
                "parameters": [
                    {"name": "program", "in": "query", "type": "string", "enum": ["MAHAD", "DUGSI"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/duplicates/resolve": {
            "post": {
                "tags": ["Duplicates"],
                "summary": "Resolve a duplicate group",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveDuplicatesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/sessions": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List sessions",
                "parameters": [
                    {"name": "class_id", "in": "query", "type": "string"},
                    {"name": "date_from", "in": "query", "type": "string"},
                    {"name": "date_to", "in": "query", "type": "string"},
                    {"name": "closed", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Create session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate session"},
                    "412": {"description": "No active teacher assignment"}
                }
            }
        },
        "/attendance/sessions/{id}/records": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Session roster",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Attendance"],
                "summary": "Mark attendance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session closed"}
                }
            }
        },
        "/attendance/sessions/{id}/close": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Close session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches/assign": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Assign students to a batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignToBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkins": {
            "post": {
                "tags": ["Check-in"],
                "summary": "Teacher check-in",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckInRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Out of range"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "ResolveDuplicatesRequest": {
            "type": "object",
            "properties": {
                "keep_id": {"type": "string"},
                "delete_ids": {"type": "array", "items": {"type": "string"}},
                "merge_data": {"type": "boolean"}
            },
            "required": ["keep_id", "delete_ids"]
        },
        "CreateSessionRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "date": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["class_id", "date"]
        },
        "MarkAttendanceRequest": {
            "type": "object",
            "properties": {
                "records": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/MarkAttendanceEntry"}
                }
            },
            "required": ["records"]
        },
        "MarkAttendanceEntry": {
            "type": "object",
            "properties": {
                "profile_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "ABSENT", "LATE", "EXCUSED"]},
                "lesson_completed": {"type": "boolean"},
                "lesson_name": {"type": "string"},
                "lesson_from": {"type": "integer"},
                "lesson_to": {"type": "integer"},
                "notes": {"type": "string"}
            },
            "required": ["profile_id", "status"]
        },
        "AssignToBatchRequest": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "profile_ids": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["batch_id", "profile_ids"]
        },
        "CheckInRequest": {
            "type": "object",
            "properties": {
                "class_id": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            },
            "required": ["class_id", "latitude", "longitude"]
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "errors": {"type": "array", "items": {"type": "string"}},
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
