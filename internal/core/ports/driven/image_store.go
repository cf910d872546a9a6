package driven

import "context"

// ImageStore keeps the raw images submitted for analysis
type ImageStore interface {
	// Save writes the image under name and returns its stored path
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Delete removes a stored image. Missing files are not an error.
	Delete(ctx context.Context, path string) error
}
