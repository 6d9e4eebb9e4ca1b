package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// URIScheme prefixes every display URI minted by this package.
const URIScheme = "blob:heicrop/"

// ErrRevoked is returned when reading a handle whose URI has been revoked.
var ErrRevoked = errors.New("image handle revoked")

// Tag identifies which step of the workflow produced a handle.
type Tag string

const (
	TagOriginal  Tag = "original"
	TagConverted Tag = "converted"
	TagCropped   Tag = "cropped"
)

// Tags lists every tag in workflow order.
var Tags = []Tag{TagOriginal, TagConverted, TagCropped}

// ParseTag maps a user-supplied string onto a Tag.
func ParseTag(raw string) (Tag, error) {
	for _, tag := range Tags {
		if string(tag) == raw {
			return tag, nil
		}
	}
	return "", fmt.Errorf("unknown image tag %q", raw)
}

func (t Tag) rank() int {
	for i, tag := range Tags {
		if tag == t {
			return i
		}
	}
	return len(Tags)
}

// Handle is an opaque reference to encoded image bytes plus a revocable
// display URI.
type Handle struct {
	id        uuid.UUID
	uri       string
	tag       Tag
	name      string
	mediaType string
	width     int
	height    int
	size      int
	data      []byte
	revoked   bool
}

// NewHandle wraps data under a freshly minted display URI. The slice is
// retained, not copied; callers must not mutate it afterwards.
func NewHandle(tag Tag, name, mediaType string, data []byte) *Handle {
	id := uuid.New()
	return &Handle{
		id:        id,
		uri:       URIScheme + id.String(),
		tag:       tag,
		name:      name,
		mediaType: mediaType,
		size:      len(data),
		data:      data,
	}
}

// WithDimensions records the pixel size of the image and returns h.
func (h *Handle) WithDimensions(width, height int) *Handle {
	h.width = width
	h.height = height
	return h
}

func (h *Handle) ID() uuid.UUID     { return h.id }
func (h *Handle) URI() string       { return h.uri }
func (h *Handle) Tag() Tag          { return h.tag }
func (h *Handle) Name() string      { return h.name }
func (h *Handle) MediaType() string { return h.mediaType }

// Size reports the encoded byte length captured at creation.
func (h *Handle) Size() int { return h.size }

// Dimensions reports the pixel size; zero when unknown.
func (h *Handle) Dimensions() (int, int) { return h.width, h.height }

// Revoked reports whether the display URI has been revoked.
func (h *Handle) Revoked() bool { return h.revoked }

// Bytes returns the encoded image. It fails once the handle is revoked.
func (h *Handle) Bytes() ([]byte, error) {
	if h.revoked {
		return nil, fmt.Errorf("%s: %w", h.uri, ErrRevoked)
	}
	return h.data, nil
}

// Open returns a reader over the encoded image.
func (h *Handle) Open() (io.Reader, error) {
	data, err := h.Bytes()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s(%s %s)", h.tag, h.name, h.uri)
}

func (h *Handle) revoke() {
	h.revoked = true
	h.data = nil
}
