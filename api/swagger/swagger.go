package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Completion Report API",
        "description": "Course completion reports with an enrolment status filter",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Completion", "description": "Course and activity completion reports"},
        {"name": "Preferences", "description": "Viewer report preferences"}
    ],
    "parameters": {
        "courseId": {"name": "courseId", "in": "path", "required": true, "type": "integer"},
        "enrolstat": {"name": "enrolstat", "in": "query", "type": "string", "enum": ["all", "active", "suspended", "notsuspended", "notactive", "notcurrent"]},
        "group": {"name": "group", "in": "query", "type": "integer"},
        "search": {"name": "search", "in": "query", "type": "string"},
        "sort": {"name": "sort", "in": "query", "type": "string", "enum": ["id", "idnumber", "firstname", "lastname", "email"]},
        "order": {"name": "order", "in": "query", "type": "string", "enum": ["asc", "desc"]},
        "page": {"name": "page", "in": "query", "type": "integer"},
        "limit": {"name": "limit", "in": "query", "type": "integer"}
    },
    "paths": {
        "/courses/{courseId}/navigation": {
            "get": {
                "tags": ["Completion"],
                "summary": "Report links for a course",
                "parameters": [{"$ref": "#/parameters/courseId"}, {"$ref": "#/parameters/group"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/completion/activities": {
            "get": {
                "tags": ["Completion"],
                "summary": "Activities with completion tracking",
                "parameters": [{"$ref": "#/parameters/courseId"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/completion/criteria": {
            "get": {
                "tags": ["Completion"],
                "summary": "Course completion criteria",
                "parameters": [
                    {"$ref": "#/parameters/courseId"},
                    {"name": "type", "in": "query", "type": "integer", "description": "Criteria type, 0 for all"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/completion/users": {
            "get": {
                "tags": ["Completion"],
                "summary": "Tracked users of the completion report",
                "parameters": [
                    {"$ref": "#/parameters/courseId"},
                    {"$ref": "#/parameters/enrolstat"},
                    {"$ref": "#/parameters/group"},
                    {"$ref": "#/parameters/search"},
                    {"$ref": "#/parameters/sort"},
                    {"$ref": "#/parameters/order"},
                    {"$ref": "#/parameters/page"},
                    {"$ref": "#/parameters/limit"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Completion disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/completion/users/{userId}/tracked": {
            "get": {
                "tags": ["Completion"],
                "summary": "Whether a user is tracked in the course",
                "parameters": [
                    {"$ref": "#/parameters/courseId"},
                    {"name": "userId", "in": "path", "required": true, "type": "integer"},
                    {"$ref": "#/parameters/enrolstat"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/completion/progress": {
            "get": {
                "tags": ["Completion"],
                "summary": "Activity completion progress",
                "parameters": [
                    {"$ref": "#/parameters/courseId"},
                    {"$ref": "#/parameters/enrolstat"},
                    {"$ref": "#/parameters/group"},
                    {"$ref": "#/parameters/search"},
                    {"$ref": "#/parameters/sort"},
                    {"$ref": "#/parameters/order"},
                    {"$ref": "#/parameters/page"},
                    {"$ref": "#/parameters/limit"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Completion disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/completion/export": {
            "get": {
                "tags": ["Completion"],
                "summary": "Download the progress report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/courseId"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"$ref": "#/parameters/enrolstat"},
                    {"$ref": "#/parameters/group"},
                    {"$ref": "#/parameters/search"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/preferences/enrolstat": {
            "get": {
                "tags": ["Preferences"],
                "summary": "Current enrolment status filter",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Preferences"],
                "summary": "Store the enrolment status filter",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrolStatusPreferenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Preference store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/page-types": {
            "get": {
                "tags": ["Completion"],
                "summary": "Report page types",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EnrolStatusPreferenceRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "string", "enum": ["all", "active", "suspended", "notsuspended", "notactive", "notcurrent"]}
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
