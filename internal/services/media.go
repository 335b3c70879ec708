package services

import "mime/multipart"

// MediaUploader is the outbound contract to the external media host.
// Reference URLs returned by UploadFile/UploadRemote are permanent and are
// the only on-record representation of an image.
type MediaUploader interface {
	// UploadFile stores binary image data and returns its reference URL.
	UploadFile(filename, contentType string, data []byte) (string, error)
	// UploadRemote fetches an image from an arbitrary URL, re-hosts it, and
	// returns the new reference URL.
	UploadRemote(srcURL string) (string, error)
	// Delete removes a previously uploaded image by its reference URL.
	Delete(refURL string) error
	// Owns reports whether a URL points at this media host. It gates
	// caller-supplied references so arbitrary URLs never get stored on a
	// product.
	Owns(refURL string) bool
}

// EventPublisher publishes catalog lifecycle events. A nil publisher is
// tolerated everywhere; publishing is always best effort.
type EventPublisher interface {
	Publish(event string, body []byte) error
}

// ImageInput collapses the three request shapes a client may use for product
// images into one value: multipart file parts, a "keep these references"
// side-channel, and the legacy flat URL list that replaces everything.
// The Supplied flags distinguish "field absent" from "field present but
// empty", which is what separates "no change" from "remove all images".
type ImageInput struct {
	Files []*multipart.FileHeader

	Keep         []string
	KeepSupplied bool

	Replace         []string
	ReplaceSupplied bool
}

// UploadWarning records a single image that could not be processed. Warnings
// ride along on successful responses; one bad image never fails a request.
type UploadWarning struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
