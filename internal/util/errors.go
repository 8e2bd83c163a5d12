package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrProjectNotFound     = errors.New("project not found")
	ErrVideoNotFound       = errors.New("video not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrGroupNotFound       = errors.New("question group not found")
	ErrGroupNotInProject   = errors.New("question group not in project schema")
	ErrGroundTruthNotFound = errors.New("ground truth not found")

	// 校验类错误：调用方可修正，任何数据都未写入
	ErrValueNotInOptions         = errors.New("answer value not in declared options")
	ErrQuestionNotInGroup        = errors.New("question does not belong to group")
	ErrOptionWeightMismatch      = errors.New("options, weights and display values must have equal length")
	ErrDuplicateOption           = errors.New("duplicate option value")
	ErrUnknownVerificationHook   = errors.New("verification hook not registered")
	ErrReusableDisplayOverride   = errors.New("reusable group questions cannot carry per-project display overrides")
	ErrAmbiguousVirtualResponses = errors.New("more than one virtual response for a free-text question")
	ErrInvalidRole               = errors.New("invalid role")
	ErrInvalidQuestionType       = errors.New("invalid question type")
	ErrIncompleteGroundTruth     = errors.New("project does not yet have full ground truth coverage")
	ErrRoleAssignmentNotFound    = errors.New("role assignment not found")
)
