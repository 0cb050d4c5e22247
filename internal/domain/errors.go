package domain

import "errors"

// Sentinel errors for the wiki core. Use with errors.Is().
//
// The *Updated errors signal an optimistic-version conflict: the caller's
// view of the tree or article is stale and the operation must be retried
// after a reload. The engine never retries on its own.
var (
	// ErrTreeUpdated means the tree changed since the caller loaded it.
	ErrTreeUpdated = errors.New("tree updated")

	// ErrArticleUpdated means the article changed since the caller loaded it.
	ErrArticleUpdated = errors.New("article updated")

	// ErrTreeNotExist means no tree root exists for the space/tree pair.
	ErrTreeNotExist = errors.New("tree not exist")

	// ErrArticleNotExist means the requested article was never created.
	ErrArticleNotExist = errors.New("article not exist")

	// ErrArticleRemoved means the article exists but is soft-deleted.
	ErrArticleRemoved = errors.New("article removed")

	// ErrIllegalOperation means the request violates a structural invariant
	// (mutating the root, creating a cycle, self-as-predecessor). This is a
	// caller bug and is never retryable.
	ErrIllegalOperation = errors.New("illegal operation")

	// ErrPermissionDenied means the permission gate rejected the call.
	ErrPermissionDenied = errors.New("permission denied")

	ErrSpaceNotExist      = errors.New("space not exist")
	ErrMemberNotExist     = errors.New("member not exist")
	ErrAttachmentNotExist = errors.New("attachment not exist")

	// ErrValidation indicates invalid input, wrapped with detail.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized means the request carried no usable identity.
	ErrUnauthorized = errors.New("unauthorized")
)
