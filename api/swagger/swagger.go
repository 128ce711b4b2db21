package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scheduling Admin Console API",
        "description": "Master-data console backend for the campus course-scheduling store",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Console", "description": "Per-session tab, form and notification state"},
        {"name": "Drafts", "description": "Unsaved entity drafts and submission"},
        {"name": "Collections", "description": "Cached teachers, courses, sections and assignments"}
    ],
    "paths": {
        "/console/state": {
            "get": {
                "tags": ["Console"],
                "summary": "Current console state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/console/tab": {
            "put": {
                "tags": ["Console"],
                "summary": "Switch the active tab; the destination form starts hidden",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectTabRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown kind", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/console/form/open": {
            "post": {
                "tags": ["Console"],
                "summary": "Show the active kind's form",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/console/form/cancel": {
            "post": {
                "tags": ["Console"],
                "summary": "Discard the active draft and hide its form",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/console/drafts/{kind}": {
            "get": {
                "tags": ["Drafts"],
                "summary": "Get a draft",
                "parameters": [{"$ref": "#/parameters/kind"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Drafts"],
                "summary": "Set one draft field",
                "parameters": [
                    {"$ref": "#/parameters/kind"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditFieldRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown field or invalid enum value", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/console/drafts/{kind}/submit": {
            "post": {
                "tags": ["Drafts"],
                "summary": "Create an entity from the draft",
                "parameters": [{"$ref": "#/parameters/kind"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A change for this kind is already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Draft incomplete; nothing was sent", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Store rejected the change", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/console/notifications": {
            "get": {
                "tags": ["Console"],
                "summary": "Visible notifications",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/console/notifications/{severity}": {
            "delete": {
                "tags": ["Console"],
                "summary": "Dismiss a notification",
                "parameters": [{"name": "severity", "in": "path", "required": true, "type": "string", "enum": ["success", "error"]}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/console/assignments/options": {
            "get": {
                "tags": ["Console"],
                "summary": "Selectable teacher, course and section ids for the assignment form",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/collections/{kind}": {
            "get": {
                "tags": ["Collections"],
                "summary": "List a collection",
                "description": "A store failure yields an empty list with meta.state=unavailable.",
                "parameters": [{"$ref": "#/parameters/kind"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/collections/{kind}/refresh": {
            "post": {
                "tags": ["Collections"],
                "summary": "Invalidate and refetch a collection",
                "parameters": [{"$ref": "#/parameters/kind"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/collections/{kind}/{id}": {
            "delete": {
                "tags": ["Collections"],
                "summary": "Delete an entity",
                "parameters": [
                    {"$ref": "#/parameters/kind"},
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Store reported the entity missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "kind": {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["teachers", "courses", "sections", "assignments"]}
    },
    "definitions": {
        "SelectTabRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {"kind": {"type": "string"}}
        },
        "EditFieldRequest": {
            "type": "object",
            "required": ["field"],
            "properties": {
                "field": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "Teacher": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "employee_no": {"type": "string"},
                "full_name": {"type": "string"},
                "title": {"type": "string", "enum": ["INSTRUCTOR_I", "INSTRUCTOR_II", "ASST_PROF_III", "ASST_PROF_IV", "ASSOC_PROF_V"]},
                "status": {"type": "string", "enum": ["CONTRACT_OF_SERVICE", "PERMANENT"]},
                "workload": {"type": "string", "enum": ["FULL_TIME", "PART_TIME", "VISITING"]},
                "is_senior_old": {"type": "boolean"},
                "active": {"type": "boolean"}
            }
        },
        "Course": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "course_code": {"type": "string"},
                "course_name": {"type": "string"},
                "units": {"type": "number"},
                "course_type": {"type": "string", "enum": ["STANDARD", "LAB", "SHOP", "SCIENCE_LAB", "CWATS"]},
                "default_duration_minutes": {"type": "integer"}
            }
        },
        "Section": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "code": {"type": "string"},
                "year_level": {"type": "integer", "minimum": 1, "maximum": 4},
                "is_first_year": {"type": "boolean"}
            }
        },
        "TeachingAssignment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "teacher_id": {"type": "integer"},
                "course_id": {"type": "integer"},
                "section_id": {"type": "integer"},
                "term_id": {"type": "integer"},
                "teacher": {"$ref": "#/definitions/Teacher"},
                "course": {"$ref": "#/definitions/Course"},
                "section": {"$ref": "#/definitions/Section"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "severity": {"type": "string", "enum": ["success", "error"]},
                "message": {"type": "string"},
                "shown_at": {"type": "string"},
                "expires_at": {"type": "string"}
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
