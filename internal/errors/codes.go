// Package errors provides structured error handling for the onboarding workflow.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unexpected failure.
	CodeUnknown Code = "UNKNOWN"

	// Workflow precondition errors
	CodeConfigMissing   Code = "CONFIG_MISSING"
	CodeWrongStage      Code = "WRONG_STAGE"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeCaseDataLost    Code = "CASE_DATA_LOST"
	CodeCaseNotFound    Code = "CASE_NOT_FOUND"
	CodeCaseAlreadyOpen Code = "CASE_ALREADY_OPEN"
	CodeInvalidInput    Code = "INVALID_INPUT"

	// Role errors
	CodeRoleMissing                  Code = "ROLE_MISSING"
	CodeRoleNotFound                 Code = "ROLE_NOT_FOUND"
	CodeRoleHierarchyViolation       Code = "ROLE_HIERARCHY_VIOLATION"
	CodeMissingManageRolesPermission Code = "MISSING_MANAGE_ROLES_PERMISSION"

	// Channel errors
	CodeCategoryCreateFailed Code = "CATEGORY_CREATE_FAILED"
	CodeChannelCreateFailed  Code = "CHANNEL_CREATE_FAILED"
	CodeMoveFailed           Code = "MOVE_FAILED"
	CodeSendFailed           Code = "SEND_FAILED"
)

// IsPrecondition reports whether the code is a terminal precondition failure:
// the attempt is rejected before any mutation and is never retried.
func (c Code) IsPrecondition() bool {
	switch c {
	case CodeConfigMissing, CodeWrongStage, CodeUnauthorized, CodeCaseDataLost,
		CodeCaseNotFound, CodeCaseAlreadyOpen, CodeInvalidInput, CodeRoleMissing:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the code to the status used by the HTTP ingress.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeConfigMissing, CodeCaseNotFound, CodeCaseDataLost:
		return http.StatusNotFound
	case CodeWrongStage, CodeCaseAlreadyOpen:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidInput, CodeRoleMissing, CodeRoleNotFound, CodeRoleHierarchyViolation:
		return http.StatusUnprocessableEntity
	case CodeMissingManageRolesPermission, CodeCategoryCreateFailed, CodeChannelCreateFailed,
		CodeMoveFailed, CodeSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
