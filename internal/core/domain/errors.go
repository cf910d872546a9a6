package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the operator lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidCredentials indicates wrong username/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidProvider indicates an unknown embedding or classifier provider
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a remote model service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidImage indicates the payload is not a decodable raster image
	ErrInvalidImage = errors.New("invalid image")

	// ErrClassification indicates the defect classifier failed or returned garbage
	ErrClassification = errors.New("classification failed")

	// ErrIndexEmpty indicates the manual corpus produced no usable chunks
	ErrIndexEmpty = errors.New("manual index is empty")

	// ErrCorruptSnapshot indicates a persisted index snapshot could not be read
	ErrCorruptSnapshot = errors.New("corrupt index snapshot")

	// ErrEmbeddingDimensionMismatch indicates query and index vectors come from different spaces
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidChunkConfig indicates a chunk size/overlap pair that cannot advance
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrRebuildInProgress indicates another index rebuild currently holds the lock
	ErrRebuildInProgress = errors.New("index rebuild already in progress")

	// ErrLogWrite indicates the request log could not be persisted
	ErrLogWrite = errors.New("log write failed")
)
